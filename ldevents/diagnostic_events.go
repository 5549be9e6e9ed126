package ldevents

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

type diagnosticStreamInitInfo struct {
	timestamp      ldtime.UnixMillisecondTime
	failed         bool
	durationMillis uint64
}

// DiagnosticsManager accumulates state for diagnostic events and produces them as JSON
// data. The event format is subject to change, so events are represented opaquely with
// the Value type.
//
// The streamInits list is the only state that is written from outside the event
// pipeline (stream connections report their attempts from their own goroutines), hence
// the lock.
type DiagnosticsManager struct {
	id                ldvalue.Value
	configData        ldvalue.Value
	sdkData           ldvalue.Value
	startTime         ldtime.UnixMillisecondTime
	dataSinceTime     ldtime.UnixMillisecondTime
	streamInits       []diagnosticStreamInitInfo
	periodicEventGate <-chan struct{}
	lock              sync.Mutex
}

// NewDiagnosticID creates a unique identifier for this SDK instance. It contains a
// random UUID plus the last few characters of the SDK key, so that events from multiple
// environments can be told apart without exposing the key itself.
func NewDiagnosticID(sdkKey string) ldvalue.Value {
	randomID, _ := uuid.NewRandom()
	suffix := sdkKey
	if len(sdkKey) > 6 {
		suffix = sdkKey[len(sdkKey)-6:]
	}
	return ldvalue.ObjectBuild().
		Set("diagnosticId", ldvalue.String(randomID.String())).
		Set("sdkKeySuffix", ldvalue.String(suffix)).
		Build()
}

// NewDiagnosticsManager creates an instance of DiagnosticsManager.
//
// The periodicEventGate parameter is test instrumentation; see CanSendStatsEvent.
func NewDiagnosticsManager(
	id ldvalue.Value,
	configData ldvalue.Value,
	sdkData ldvalue.Value,
	startTime time.Time,
	periodicEventGate <-chan struct{},
) *DiagnosticsManager {
	timestamp := ldtime.UnixMillisFromTime(startTime)
	return &DiagnosticsManager{
		id:                id,
		configData:        configData,
		sdkData:           sdkData,
		startTime:         timestamp,
		dataSinceTime:     timestamp,
		periodicEventGate: periodicEventGate,
	}
}

// RecordStreamInit is called by the stream processor when a stream connection attempt
// has either succeeded or failed.
func (m *DiagnosticsManager) RecordStreamInit(
	timestamp ldtime.UnixMillisecondTime,
	failed bool,
	durationMillis uint64,
) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.streamInits = append(m.streamInits, diagnosticStreamInitInfo{
		timestamp:      timestamp,
		failed:         failed,
		durationMillis: durationMillis,
	})
}

// CreateInitEvent is called by the event processor to create the one-time diagnostic
// event that describes the configuration.
func (m *DiagnosticsManager) CreateInitEvent() ldvalue.Value {
	// GOARCH is fixed at compile time rather than detected at runtime, and Go has no
	// portable way to report the OS version, so platformData is approximate.
	platformData := ldvalue.ObjectBuild().
		Set("name", ldvalue.String("Go")).
		Set("goVersion", ldvalue.String(runtime.Version())).
		Set("osName", ldvalue.String(normalizeOSName(runtime.GOOS))).
		Set("osArch", ldvalue.String(runtime.GOARCH)).
		Build()
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("diagnostic-init")).
		Set("id", m.id).
		Set("creationDate", ldvalue.Float64(float64(m.startTime))).
		Set("sdk", m.sdkData).
		Set("configuration", m.configData).
		Set("platform", platformData).
		Build()
}

// CanSendStatsEvent is test instrumentation. In unit tests we need to keep the event
// processor from constructing the periodic event until the test has set up its
// preconditions; the test passes in a periodicEventGate channel and pushes to it when
// ready. In normal use there is no gate and this is always true.
func (m *DiagnosticsManager) CanSendStatsEvent() bool {
	if m.periodicEventGate != nil {
		select {
		case <-m.periodicEventGate:
			return true
		default:
			return false
		}
	}
	return true
}

// CreateStatsEventAndReset is called by the event processor to create the periodic
// event containing usage statistics. The counters are passed in as parameters because
// the dispatcher owns them; keeping them here would mean taking the lock on every
// processed event.
func (m *DiagnosticsManager) CreateStatsEventAndReset(
	droppedEvents int,
	deduplicatedUsers int,
	eventsInLastBatch int,
) ldvalue.Value {
	m.lock.Lock()
	defer m.lock.Unlock()
	timestamp := ldtime.UnixMillisNow()
	streamInitsBuilder := ldvalue.ArrayBuildWithCapacity(len(m.streamInits))
	for _, si := range m.streamInits {
		streamInitsBuilder.Add(ldvalue.ObjectBuild().
			Set("timestamp", ldvalue.Float64(float64(si.timestamp))).
			Set("failed", ldvalue.Bool(si.failed)).
			Set("durationMillis", ldvalue.Float64(float64(si.durationMillis))).
			Build())
	}
	event := ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("diagnostic")).
		Set("id", m.id).
		Set("creationDate", ldvalue.Float64(float64(timestamp))).
		Set("dataSinceDate", ldvalue.Float64(float64(m.dataSinceTime))).
		Set("droppedEvents", ldvalue.Int(droppedEvents)).
		Set("deduplicatedUsers", ldvalue.Int(deduplicatedUsers)).
		Set("eventsInLastBatch", ldvalue.Int(eventsInLastBatch)).
		Set("streamInits", streamInitsBuilder.Build()).
		Build()
	m.streamInits = nil
	m.dataSinceTime = timestamp
	return event
}

func normalizeOSName(osName string) string {
	switch osName {
	case "darwin":
		return "MacOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	}
	return osName
}
