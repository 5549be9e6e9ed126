// Package ldevents implements the analytics event pipeline: buffering, summarization,
// user deduplication, and delivery of analytics events to the LaunchDarkly event
// ingestion service.
//
// Application code does not use this package directly; events are generated by the
// SDK client and consumed here. The entry point is NewDefaultEventProcessor.
package ldevents
