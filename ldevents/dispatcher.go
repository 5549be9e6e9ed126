package ldevents

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// The maximum number of concurrent analytics payload sends. When all workers are busy,
// flush attempts fail and the outbox keeps accumulating (up to its own capacity), which
// is the backpressure mechanism for a slow events endpoint.
const maxFlushWorkers = 5

// The single consumer of the inbox channel. All mutable pipeline state (outbox,
// summarizer, user-key cache, counters) is owned by the dispatcher goroutine, so none of
// it needs locking; the few values that other goroutines read or write are atomics.
type eventDispatcher struct {
	config             EventsConfiguration
	outbox             *eventsOutbox
	flushCh            chan *flushPayload
	diagnosticCh       chan ldvalue.Value
	workersGroup       *sync.WaitGroup
	userKeys           lruCache
	lastKnownPastTime  uint64 // atomic; ldtime.UnixMillisecondTime
	disabled           int32  // atomic
	deduplicatedUsers  int
	eventsInLastBatch  int
	currentTimestampFn func() ldtime.UnixMillisecondTime
}

type flushPayload struct {
	events  []Event
	summary eventSummary
}

func startEventDispatcher(config EventsConfiguration, inboxCh <-chan eventDispatcherMessage) {
	ed := &eventDispatcher{
		config:             config,
		outbox:             newEventsOutbox(config.Capacity, config.Loggers),
		flushCh:            make(chan *flushPayload, 1),
		diagnosticCh:       make(chan ldvalue.Value, 1),
		workersGroup:       &sync.WaitGroup{},
		userKeys:           newLruCache(config.UserKeysCapacity),
		currentTimestampFn: config.currentTimeProvider,
	}
	if ed.currentTimestampFn == nil {
		ed.currentTimestampFn = ldtime.UnixMillisNow
	}

	// Fixed-size pool of workers that wait on flushCh; this caps the number of
	// concurrent sends.
	for i := 0; i < maxFlushWorkers; i++ {
		go runFlushTask(config, ed.flushCh, ed.workersGroup, ed.handleResult)
	}
	// Diagnostic events get their own single worker so that they never compete with
	// analytics payloads for send capacity.
	go runDiagnosticSendTask(config, ed.diagnosticCh, ed.workersGroup)

	if config.DiagnosticsManager != nil {
		ed.sendDiagnosticsEvent(config.DiagnosticsManager.CreateInitEvent())
	}
	go ed.runMainLoop(inboxCh)
}

func (ed *eventDispatcher) runMainLoop(inboxCh <-chan eventDispatcherMessage) {
	flushInterval := ed.config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	userKeysFlushInterval := ed.config.UserKeysFlushInterval
	if userKeysFlushInterval <= 0 {
		userKeysFlushInterval = DefaultUserKeysFlushInterval
	}
	flushTicker := time.NewTicker(flushInterval)
	usersResetTicker := time.NewTicker(userKeysFlushInterval)

	var diagnosticsTicker *time.Ticker
	var diagnosticsTickerCh <-chan time.Time
	diagnosticsManager := ed.config.DiagnosticsManager
	if diagnosticsManager != nil {
		interval := ed.config.DiagnosticRecordingInterval
		switch {
		case interval > 0 && interval < MinimumDiagnosticRecordingInterval:
			interval = DefaultDiagnosticRecordingInterval
		case interval <= 0 && ed.config.forceDiagnosticRecordingInterval > 0:
			interval = ed.config.forceDiagnosticRecordingInterval
		case interval <= 0:
			interval = DefaultDiagnosticRecordingInterval
		}
		diagnosticsTicker = time.NewTicker(interval)
		diagnosticsTickerCh = diagnosticsTicker.C
	}

	for {
		select {
		case message := <-inboxCh:
			switch m := message.(type) {
			case sendEventMessage:
				ed.safely("processing event", func() { ed.processEvent(m.event) })
			case flushEventsMessage:
				ed.safely("flushing events", func() { ed.triggerFlush() })
			case flushUsersMessage:
				ed.userKeys.clear()
			case syncEventsMessage:
				ed.workersGroup.Wait()
				m.replyCh <- struct{}{}
			case shutdownEventsMessage:
				flushTicker.Stop()
				usersResetTicker.Stop()
				if diagnosticsTicker != nil {
					diagnosticsTicker.Stop()
				}
				ed.workersGroup.Wait() // wait for all in-progress sends to complete
				close(ed.flushCh)      // terminates the idle flush workers
				close(ed.diagnosticCh) // terminates the diagnostic worker
				if closer, ok := ed.config.EventSender.(io.Closer); ok {
					_ = closer.Close()
				}
				m.replyCh <- struct{}{}
				return
			}
		case <-flushTicker.C:
			ed.safely("flushing events", func() { ed.triggerFlush() })
		case <-usersResetTicker.C:
			ed.userKeys.clear()
		case <-diagnosticsTickerCh:
			if diagnosticsManager == nil || !diagnosticsManager.CanSendStatsEvent() {
				break
			}
			event := diagnosticsManager.CreateStatsEventAndReset(
				ed.outbox.droppedEvents,
				ed.deduplicatedUsers,
				ed.eventsInLastBatch,
			)
			ed.outbox.droppedEvents = 0
			ed.deduplicatedUsers = 0
			ed.eventsInLastBatch = 0
			ed.sendDiagnosticsEvent(event)
		}
	}
}

// A panic escaping from a single message must not take down the dispatcher loop: the
// event or flush is lost, but processing continues.
func (ed *eventDispatcher) safely(action string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			ed.config.Loggers.Errorf("Unexpected panic while %s: %+v", action, r)
		}
	}()
	f()
}

func (ed *eventDispatcher) processEvent(evt Event) {
	if ed.isDisabled() {
		return
	}

	// Alias events carry keys rather than a user, so they bypass summarization and user
	// deduplication entirely.
	if alias, ok := evt.(AliasEvent); ok {
		ed.outbox.addEvent(alias)
		return
	}

	// Every summarizable event is recorded in the summarizer, whether or not a full
	// event is emitted for it.
	ed.outbox.addToSummary(evt)

	// Decide whether to add the event to the payload. Feature events may be added twice,
	// once for the event (if tracked) and once for debugging.
	willAddFullEvent := true
	var debugEvent Event
	inlinedUser := ed.config.InlineUsersInEvents
	switch evt := evt.(type) {
	case FeatureRequestEvent:
		willAddFullEvent = evt.TrackEvents
		if ed.shouldDebugEvent(&evt) {
			de := evt
			de.Debug = true
			debugEvent = de
		}
	case IdentifyEvent:
		inlinedUser = true
	}

	// For each user we haven't seen before, an index event is prepended before the event
	// that referenced the user - unless that event will already contain the inline user
	// (when InlineUsersInEvents is on, or for an identify event).
	user := evt.GetBase().User
	alreadySeenUser := ed.userKeys.add(user.GetKey())
	if !(willAddFullEvent && inlinedUser) {
		if alreadySeenUser {
			ed.deduplicatedUsers++
		} else {
			ed.outbox.addEvent(IndexEvent{
				BaseEvent{CreationDate: evt.GetBase().CreationDate, User: user},
			})
		}
	}
	if willAddFullEvent {
		ed.outbox.addEvent(evt)
	}
	if debugEvent != nil {
		ed.outbox.addEvent(debugEvent)
	}
}

func (ed *eventDispatcher) shouldDebugEvent(evt *FeatureRequestEvent) bool {
	if evt.DebugEventsUntilDate == 0 {
		return false
	}
	// The "last known past time" comes from the last HTTP response we got from the
	// server. In case the local clock is set wrong, any expiration date earlier than that
	// point is definitely in the past. If there is any discrepancy, we want to err on the
	// side of cutting off event debugging sooner.
	lastPast := ldtime.UnixMillisecondTime(atomic.LoadUint64(&ed.lastKnownPastTime))
	return evt.DebugEventsUntilDate > lastPast &&
		evt.DebugEventsUntilDate > ed.currentTimestampFn()
}

// Attempts to hand the current outbox contents to a flush worker.
func (ed *eventDispatcher) triggerFlush() {
	if ed.isDisabled() {
		// Anything accumulated before the shutdown signal is discarded.
		ed.outbox.clear()
		return
	}

	payload := ed.outbox.getPayload()
	totalEventCount := len(payload.events)
	if payload.summary.hasCounters() {
		totalEventCount++
	}
	if totalEventCount == 0 {
		ed.eventsInLastBatch = 0
		return
	}

	ed.workersGroup.Add(1) // increment the count of active flushes
	select {
	case ed.flushCh <- &payload:
		// A worker was available, so it now owns the payload; the outbox can be reset to
		// fresh containers from the dispatcher goroutine.
		ed.eventsInLastBatch = totalEventCount
		ed.outbox.clear()
	default:
		// All the workers are busy with active flushes. Leave the outbox as-is so the
		// same data will be retried on the next flush.
		ed.workersGroup.Done()
	}
}

func (ed *eventDispatcher) isDisabled() bool {
	return atomic.LoadInt32(&ed.disabled) != 0
}

// Called from flush worker goroutines with each send result.
func (ed *eventDispatcher) handleResult(result EventSenderResult) {
	if result.MustShutDown {
		atomic.StoreInt32(&ed.disabled, 1)
		return
	}
	if result.TimeFromServer > 0 {
		// Concurrent flushes can deliver server timestamps out of order; the stored value
		// only ever advances.
		for {
			old := atomic.LoadUint64(&ed.lastKnownPastTime)
			if uint64(result.TimeFromServer) <= old {
				return
			}
			if atomic.CompareAndSwapUint64(&ed.lastKnownPastTime, old, uint64(result.TimeFromServer)) {
				return
			}
		}
	}
}

func (ed *eventDispatcher) sendDiagnosticsEvent(event ldvalue.Value) {
	ed.workersGroup.Add(1)
	select {
	case ed.diagnosticCh <- event:
	default:
		// The diagnostic worker is still busy with the previous event. Diagnostics are
		// nonessential, so this one is simply discarded; another will be produced on the
		// next interval.
		ed.workersGroup.Done()
	}
}

func runFlushTask(config EventsConfiguration, flushCh <-chan *flushPayload,
	workersGroup *sync.WaitGroup, resultFn func(EventSenderResult)) {
	formatter := eventOutputFormatter{
		userFilter: newUserFilter(config),
		config:     config,
	}
	for payload := range flushCh {
		outputEvents := formatter.makeOutputEvents(payload.events, payload.summary)
		if len(outputEvents) > 0 {
			bytes, err := json.Marshal(outputEvents)
			if err != nil {
				config.Loggers.Errorf("Unexpected error marshalling event JSON: %+v", err)
			} else {
				resultFn(config.EventSender.SendEventData(AnalyticsEventDataKind, bytes, len(outputEvents)))
			}
		}
		workersGroup.Done() // decrement the count of in-progress flushes
	}
}

func runDiagnosticSendTask(config EventsConfiguration, diagnosticCh <-chan ldvalue.Value,
	workersGroup *sync.WaitGroup) {
	for event := range diagnosticCh {
		bytes, err := json.Marshal(event)
		if err != nil {
			config.Loggers.Errorf("Unexpected error marshalling diagnostic event: %+v", err)
		} else {
			_ = config.EventSender.SendEventData(DiagnosticEventDataKind, bytes, 1)
		}
		workersGroup.Done()
	}
}
