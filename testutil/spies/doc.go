// Package spies provides test doubles that capture log records, metrics and spans
// emitted by the event stores, the broadcast hub and the feed service.
package spies
