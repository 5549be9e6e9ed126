package ldevents

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const briefRetryDelay = 50 * time.Millisecond

var fakeBaseTime = ldtime.UnixMillisecondTime(100000)

var testUser = User(lduser.NewUserBuilder("userKey").Name("Red").Build())

var userJSON = ldvalue.ObjectBuild().
	Set("key", ldvalue.String("userKey")).
	Set("name", ldvalue.String("Red")).
	Build()

var filteredUserJSON = ldvalue.ObjectBuild().
	Set("key", ldvalue.String("userKey")).
	Set("privateAttrs", ldvalue.ArrayOf(ldvalue.String("name"))).
	Build()

type flagEventPropertiesImpl struct {
	Key                  string
	Version              int
	TrackEvents          bool
	DebugEventsUntilDate ldtime.UnixMillisecondTime
	IsExperiment         bool
}

func (f flagEventPropertiesImpl) GetKey() string  { return f.Key }
func (f flagEventPropertiesImpl) GetVersion() int { return f.Version }
func (f flagEventPropertiesImpl) IsFullEventTrackingEnabled() bool {
	return f.TrackEvents
}
func (f flagEventPropertiesImpl) GetDebugEventsUntilDate() ldtime.UnixMillisecondTime {
	return f.DebugEventsUntilDate
}
func (f flagEventPropertiesImpl) IsExperimentationEnabled(reason ldreason.EvaluationReason) bool {
	return f.IsExperiment
}

// mockEventSender decodes each payload it receives and pushes the individual events onto
// channels, so that tests can make assertions about them one at a time.
type mockEventSender struct {
	eventsCh           chan ldvalue.Value
	diagnosticEventsCh chan ldvalue.Value
	payloadCount       int
	result             EventSenderResult
	gateCh             <-chan struct{}
	waitingCh          chan<- struct{}
	lock               sync.Mutex
}

func newMockEventSender() *mockEventSender {
	return &mockEventSender{
		eventsCh:           make(chan ldvalue.Value, 100),
		diagnosticEventsCh: make(chan ldvalue.Value, 100),
		result:             EventSenderResult{Success: true},
	}
}

func (ms *mockEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	ms.lock.Lock()
	gateCh, waitingCh := ms.gateCh, ms.waitingCh
	result := ms.result
	ms.payloadCount++
	ms.lock.Unlock()

	if gateCh != nil {
		// instrumentation used for testing the behavior of busy flush workers
		if waitingCh != nil {
			waitingCh <- struct{}{}
		}
		<-gateCh
	}

	if kind == DiagnosticEventDataKind {
		var event ldvalue.Value
		if err := json.Unmarshal(data, &event); err == nil {
			ms.diagnosticEventsCh <- event
		}
	} else {
		var events []ldvalue.Value
		if err := json.Unmarshal(data, &events); err == nil {
			for _, event := range events {
				ms.eventsCh <- event
			}
		}
	}
	return result
}

func (ms *mockEventSender) setResult(result EventSenderResult) {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.result = result
}

func (ms *mockEventSender) setGate(gateCh <-chan struct{}, waitingCh chan<- struct{}) {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.gateCh = gateCh
	ms.waitingCh = waitingCh
}

func (ms *mockEventSender) getPayloadCount() int {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	return ms.payloadCount
}

func (ms *mockEventSender) awaitEvent(t *testing.T) ldvalue.Value {
	return awaitValue(t, ms.eventsCh, "expected an analytics event but did not receive one")
}

func (ms *mockEventSender) awaitDiagnosticEvent(t *testing.T) ldvalue.Value {
	return awaitValue(t, ms.diagnosticEventsCh, "expected a diagnostic event but did not receive one")
}

func (ms *mockEventSender) assertNoMoreEvents(t *testing.T) {
	require.Len(t, ms.eventsCh, 0)
}

func awaitValue(t *testing.T, ch <-chan ldvalue.Value, failMessage string) ldvalue.Value {
	select {
	case value := <-ch:
		return value
	case <-time.After(time.Second):
		require.Fail(t, failMessage)
		return ldvalue.Null()
	}
}

func basicConfigWithSender(sender EventSender) EventsConfiguration {
	return EventsConfiguration{
		Capacity:              1000,
		EventSender:           sender,
		FlushInterval:         time.Hour,
		Loggers:               ldlog.NewDisabledLoggers(),
		UserKeysCapacity:      1000,
		UserKeysFlushInterval: time.Hour,
		currentTimeProvider:   func() ldtime.UnixMillisecondTime { return fakeBaseTime },
	}
}

func withProcessor(t *testing.T, config EventsConfiguration, action func(*defaultEventProcessor)) {
	ep := NewDefaultEventProcessor(config).(*defaultEventProcessor)
	defer ep.Close()
	action(ep)
}

// Blocks until the dispatcher has finished all in-progress flushes.
func (ep *defaultEventProcessor) waitUntilInactive() {
	m := syncEventsMessage{replyCh: make(chan struct{})}
	ep.inboxCh <- m
	<-m.replyCh
}

func (ep *defaultEventProcessor) flushUserKeysCache() {
	ep.inboxCh <- flushUsersMessage{}
}

func basicEventFactory() EventFactory {
	return NewEventFactory(false, func() ldtime.UnixMillisecondTime { return fakeBaseTime })
}

func reasonEventFactory() EventFactory {
	return NewEventFactory(true, func() ldtime.UnixMillisecondTime { return fakeBaseTime })
}

func expectedIndexEvent(sourceEvent Event, encodedUser ldvalue.Value) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("index")).
		Set("creationDate", ldvalue.Float64(float64(sourceEvent.GetBase().CreationDate))).
		Set("user", encodedUser).
		Build()
}

func expectedIdentifyEvent(sourceEvent Event, encodedUser ldvalue.Value) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("identify")).
		Set("creationDate", ldvalue.Float64(float64(sourceEvent.GetBase().CreationDate))).
		Set("key", ldvalue.String(sourceEvent.GetBase().User.GetKey())).
		Set("user", encodedUser).
		Build()
}

func expectedFeatureEvent(
	sourceEvent FeatureRequestEvent,
	flag FlagEventProperties,
	value ldvalue.Value,
	debug bool,
	inlineUser *ldvalue.Value,
) ldvalue.Value {
	kind := "feature"
	if debug {
		kind = "debug"
	}
	builder := ldvalue.ObjectBuild().
		Set("kind", ldvalue.String(kind)).
		Set("creationDate", ldvalue.Float64(float64(sourceEvent.CreationDate))).
		Set("key", ldvalue.String(flag.GetKey())).
		Set("version", ldvalue.Int(flag.GetVersion())).
		Set("value", value)
	if !sourceEvent.Default.IsNull() {
		builder.Set("default", sourceEvent.Default)
	}
	if sourceEvent.Variation != NoVariation {
		builder.Set("variation", ldvalue.Int(sourceEvent.Variation))
	}
	if sourceEvent.Reason.GetKind() != "" {
		var reasonValue ldvalue.Value
		reasonBytes, _ := json.Marshal(sourceEvent.Reason)
		_ = json.Unmarshal(reasonBytes, &reasonValue)
		builder.Set("reason", reasonValue)
	}
	if inlineUser == nil {
		builder.Set("userKey", ldvalue.String(sourceEvent.User.GetKey()))
	} else {
		builder.Set("user", *inlineUser)
	}
	return builder.Build()
}

func assertSummaryEventHasFlag(t *testing.T, flag FlagEventProperties, output ldvalue.Value) bool {
	if assert.Equal(t, "summary", output.GetByKey("kind").StringValue()) {
		flags := output.GetByKey("features")
		return !flags.GetByKey(flag.GetKey()).IsNull()
	}
	return false
}

func assertSummaryEventHasCounter(
	t *testing.T,
	flag FlagEventProperties,
	variation int,
	value ldvalue.Value,
	count int,
	output ldvalue.Value,
) {
	if assert.Equal(t, "summary", output.GetByKey("kind").StringValue()) {
		f := output.GetByKey("features").GetByKey(flag.GetKey())
		assert.Equal(t, ldvalue.ObjectType, f.Type())
		expected := ldvalue.ObjectBuild().
			Set("value", value).
			Set("count", ldvalue.Int(count)).
			Set("variation", ldvalue.Int(variation)).
			Set("version", ldvalue.Int(flag.GetVersion())).
			Build()
		counters := []ldvalue.Value{}
		f.GetByKey("counters").Enumerate(func(i int, k string, v ldvalue.Value) bool {
			counters = append(counters, v)
			return true
		})
		assert.Contains(t, counters, expected)
	}
}
