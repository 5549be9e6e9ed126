package ldevents

import (
	"sync"
	"sync/atomic"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

// The thread-safe producer-side facade of the event pipeline. Any number of goroutines
// may call SendEvent and Flush concurrently; all real work happens on the single
// dispatcher goroutine that consumes the inbox channel.
type defaultEventProcessor struct {
	inboxCh   chan eventDispatcherMessage
	inboxFull int32
	closeOnce sync.Once
	loggers   ldlog.Loggers
}

// Payload of the inbox channel.
type eventDispatcherMessage interface{}

type sendEventMessage struct {
	event Event
}

type flushEventsMessage struct{}

type flushUsersMessage struct{}

type shutdownEventsMessage struct {
	replyCh chan struct{}
}

// Test instrumentation: the dispatcher replies after all in-flight flushes have finished.
type syncEventsMessage struct {
	replyCh chan struct{}
}

// NewDefaultEventProcessor creates an instance of the default implementation of analytics
// event processing.
func NewDefaultEventProcessor(config EventsConfiguration) EventProcessor {
	if config.Capacity < MinimumCapacity {
		config.Capacity = MinimumCapacity
	}
	inboxCh := make(chan eventDispatcherMessage, config.Capacity)
	startEventDispatcher(config, inboxCh)
	return &defaultEventProcessor{
		inboxCh: inboxCh,
		loggers: config.Loggers,
	}
}

func (ep *defaultEventProcessor) SendEvent(e Event) {
	ep.postNonBlockingMessageToInbox(sendEventMessage{event: e})
}

func (ep *defaultEventProcessor) Flush() {
	ep.postNonBlockingMessageToInbox(flushEventsMessage{})
}

func (ep *defaultEventProcessor) postNonBlockingMessageToInbox(m eventDispatcherMessage) {
	select {
	case ep.inboxCh <- m:
		atomic.StoreInt32(&ep.inboxFull, 0)
		return
	default:
	}
	// A full inbox means the dispatcher is seriously backed up. Blocking here would slow
	// down every goroutine that is evaluating flags, which is much worse than losing some
	// analytics data, so the message is dropped instead. The warning is logged once per
	// saturation episode; it is re-armed as soon as a message fits again.
	if atomic.CompareAndSwapInt32(&ep.inboxFull, 0, 1) {
		ep.loggers.Warn("Events are being produced faster than they can be processed; some events will be dropped")
	}
}

func (ep *defaultEventProcessor) Close() error {
	ep.closeOnce.Do(func() {
		// These two messages are posted with a blocking send, unlike analytics events:
		// they are necessary for an orderly shutdown, so it is worth waiting for room in
		// the channel rather than dropping them.
		ep.inboxCh <- flushEventsMessage{}
		m := shutdownEventsMessage{replyCh: make(chan struct{})}
		ep.inboxCh <- m
		<-m.replyCh
	})
	return nil
}
