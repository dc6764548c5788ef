// Package feed joins the event store and the broadcast hub into the agent event feed.
//
// Service.Ingest normalizes raw fields, inserts the event and publishes the stored form.
// Service.Subscribe registers with the hub before reading history, and the returned Feed
// drops live events whose id is already part of that history, so a subscriber sees every
// event exactly once: history first, then live.
//
// Inserts and publishes are serialized inside one Service, so frames reach subscribers in id order.
package feed
