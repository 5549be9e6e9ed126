package ldevents

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

// The dispatcher-owned buffer of full events pending the next flush, together with the
// summarizer and the dropped-event counter. Not thread-safe; the dispatcher goroutine is
// its only owner.
type eventsOutbox struct {
	events           []Event
	summarizer       eventSummarizer
	capacity         int
	capacityExceeded bool
	droppedEvents    int
	loggers          ldlog.Loggers
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		events:     make([]Event, 0, capacity),
		summarizer: newEventSummarizer(),
		capacity:   capacity,
		loggers:    loggers,
	}
}

// Adds a full event to the outbox, unless the buffer is already at capacity, in which
// case the event is dropped and counted. The warning is logged once per saturation
// episode: it is re-armed as soon as an event fits again.
func (b *eventsOutbox) addEvent(event Event) {
	if len(b.events) >= b.capacity {
		b.droppedEvents++
		if !b.capacityExceeded {
			b.capacityExceeded = true
			b.loggers.Warn("Exceeded event queue capacity. Increase capacity to avoid dropping events.")
		}
		return
	}
	b.capacityExceeded = false
	b.events = append(b.events, event)
}

// Adds an event to the summary counters if it is a summarizable event. Summary counters
// are not subject to the capacity limit, since they are of fixed size per flag.
func (b *eventsOutbox) addToSummary(event Event) {
	b.summarizer.summarizeEvent(event)
}

// Returns the current payload, without clearing it. Ownership of the returned slices is
// transferred to the caller only once clear is called.
func (b *eventsOutbox) getPayload() flushPayload {
	return flushPayload{
		events:  b.events,
		summary: b.summarizer.snapshot(),
	}
}

// Resets the outbox to fresh empty containers. Any payload previously returned by
// getPayload is no longer referenced by the outbox and may safely be handed to a flush
// worker.
func (b *eventsOutbox) clear() {
	b.events = make([]Event, 0, b.capacity)
	b.summarizer.reset()
}
