package ldconfig

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ct "github.com/launchdarkly/go-configtypes"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

func TestEventsConfigDefaults(t *testing.T) {
	var c EventsConfig
	assert.Equal(t, defaultEventCapacity, c.GetCapacity())
	assert.Equal(t, DefaultEventsFlushInterval, c.GetFlushInterval())
	assert.Equal(t, defaultUserKeysCapacity, c.GetUserKeysCapacity())
	assert.Equal(t, DefaultUserKeysFlushInterval, c.GetUserKeysFlushInterval())
	assert.Equal(t, DefaultDiagnosticRecordingInterval, c.GetDiagnosticRecordingInterval())
}

func TestEventsConfigExplicitValues(t *testing.T) {
	c := EventsConfig{
		Capacity:                    mustOptIntGreaterThanZero(500),
		FlushInterval:               ct.NewOptDuration(time.Second),
		UserKeysCapacity:            mustOptIntGreaterThanZero(200),
		UserKeysFlushInterval:       ct.NewOptDuration(time.Minute),
		DiagnosticRecordingInterval: ct.NewOptDuration(2 * time.Minute),
	}
	assert.Equal(t, 500, c.GetCapacity())
	assert.Equal(t, time.Second, c.GetFlushInterval())
	assert.Equal(t, 200, c.GetUserKeysCapacity())
	assert.Equal(t, time.Minute, c.GetUserKeysFlushInterval())
	assert.Equal(t, 2*time.Minute, c.GetDiagnosticRecordingInterval())
}

func TestDiagnosticRecordingIntervalHasMinimum(t *testing.T) {
	c := EventsConfig{DiagnosticRecordingInterval: ct.NewOptDuration(time.Second)}
	assert.Equal(t, MinimumDiagnosticRecordingInterval, c.GetDiagnosticRecordingInterval())
}

func TestMakeEventsConfiguration(t *testing.T) {
	config := DefaultConfig
	config.Events.Capacity = mustOptIntGreaterThanZero(500)
	config.Events.InlineUsersInEvents = true
	config.Events.AllAttributesPrivate = true

	ec := MakeEventsConfiguration(config, ldlog.NewDisabledLoggers())
	assert.Equal(t, 500, ec.Capacity)
	assert.True(t, ec.InlineUsersInEvents)
	assert.True(t, ec.AllAttributesPrivate)
	assert.Equal(t, DefaultEventsFlushInterval, ec.FlushInterval)
}

func TestMakeStreamProcessorConfig(t *testing.T) {
	config := DefaultConfig
	config.Main.SDKKey = "my-key"

	sc := MakeStreamProcessorConfig(config, http.DefaultClient, nil, ldlog.NewDisabledLoggers())
	assert.Equal(t, "my-key", sc.SDKKey)
	assert.Equal(t, DefaultStreamURI, sc.StreamURI)
	assert.Equal(t, DefaultBaseURI, sc.BaseURI)
	assert.Equal(t, time.Duration(0), sc.InitialReconnectDelay)

	config.Main.StreamURI = newOptURLAbsoluteMustBeValid("http://stream")
	config.Main.InitialReconnectDelay = ct.NewOptDuration(time.Second)
	sc = MakeStreamProcessorConfig(config, http.DefaultClient, nil, ldlog.NewDisabledLoggers())
	assert.Equal(t, "http://stream", sc.StreamURI)
	assert.Equal(t, time.Second, sc.InitialReconnectDelay)
}

func TestMakeBigSegmentsStoreWrapperWithoutRedis(t *testing.T) {
	wrapper, err := MakeBigSegmentsStoreWrapper(DefaultConfig, ldlog.NewDisabledLoggers())
	require.NoError(t, err)
	assert.Nil(t, wrapper)
}

func TestMakeBigSegmentsStoreWrapperWithUnreachableRedis(t *testing.T) {
	config := DefaultConfig
	config.Redis.URL = newOptURLAbsoluteMustBeValid("redis://127.0.0.1:1")

	_, err := MakeBigSegmentsStoreWrapper(config, ldlog.NewDisabledLoggers())
	require.Error(t, err)
}
