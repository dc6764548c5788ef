// Package simulation drives the feed with fake agents.
//
// Each Persona emits events with its own level distribution, strategies, messages,
// hashrate band and home location. A Runner paces every persona independently and
// hands the generated fields to an Ingester, either a feed.Service in the same process
// or a remote server reached over HTTP.
package simulation
