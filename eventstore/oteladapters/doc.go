// Package oteladapters implements the eventstore observability interfaces on top of OpenTelemetry.
//
// The store, the broadcast hub, the feed service and the simulator all report through
// eventstore.MetricsCollector, eventstore.TracingCollector and eventstore.ContextualLogger.
// The types in this package forward those calls to a Meter, a Tracer and the otelslog bridge,
// so any OTLP backend can receive them.
package oteladapters
