package ldconfig

import (
	"net/http"

	"github.com/launchdarkly/go-configtypes"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"

	"gopkg.in/launchdarkly/go-sdk-core.v1/bigsegments"
	"gopkg.in/launchdarkly/go-sdk-core.v1/ldevents"
	"gopkg.in/launchdarkly/go-sdk-core.v1/ldstream"
)

// These functions translate the validated Config sections into the configuration
// structs that the individual components consume, applying defaults for anything that
// was not set.

// MakeEventsConfiguration produces the events engine configuration corresponding to
// the [Events] section.
func MakeEventsConfiguration(c Config, loggers ldlog.Loggers) ldevents.EventsConfiguration {
	return ldevents.EventsConfiguration{
		AllAttributesPrivate:        c.Events.AllAttributesPrivate,
		Capacity:                    c.Events.GetCapacity(),
		DiagnosticRecordingInterval: c.Events.GetDiagnosticRecordingInterval(),
		FlushInterval:               c.Events.GetFlushInterval(),
		InlineUsersInEvents:         c.Events.InlineUsersInEvents,
		Loggers:                     loggers,
		UserKeysCapacity:            c.Events.GetUserKeysCapacity(),
		UserKeysFlushInterval:       c.Events.GetUserKeysFlushInterval(),
	}
}

// MakeStreamProcessorConfig produces the stream processor configuration corresponding
// to the [Main] section.
func MakeStreamProcessorConfig(
	c Config,
	httpClient *http.Client,
	diagnosticsManager *ldevents.DiagnosticsManager,
	loggers ldlog.Loggers,
) ldstream.StreamProcessorConfig {
	return ldstream.StreamProcessorConfig{
		SDKKey:                c.Main.SDKKey.GetAuthorizationHeaderValue(),
		StreamURI:             configtypes.StringOrElse(c.Main.StreamURI, DefaultStreamURI),
		BaseURI:               configtypes.StringOrElse(c.Main.BaseURI, DefaultBaseURI),
		InitialReconnectDelay: c.Main.InitialReconnectDelay.GetOrElse(0),
		HTTPClient:            httpClient,
		DiagnosticsManager:    diagnosticsManager,
		Loggers:               loggers,
	}
}

// MakeBigSegmentsStoreWrapper creates the Redis big segment store and its caching
// wrapper from the [Redis] and [BigSegments] sections, or returns nil if Redis is not
// configured. ValidateConfig must have been called first so that Redis host/port
// settings have been canonicalized into a URL.
func MakeBigSegmentsStoreWrapper(c Config, loggers ldlog.Loggers) (*bigsegments.StoreWrapper, error) {
	if !c.Redis.URL.IsDefined() {
		return nil, nil
	}
	store, err := bigsegments.NewRedisBigSegmentStore(c.Redis.URL.String(), c.Redis.Prefix, true, loggers)
	if err != nil {
		return nil, err
	}
	return bigsegments.NewStoreWrapper(store, bigsegments.StoreWrapperConfig{
		UserCacheSize:      c.BigSegments.UserCacheSize.GetOrElse(0),
		UserCacheTime:      c.BigSegments.UserCacheTime.GetOrElse(0),
		StatusPollInterval: c.BigSegments.StatusPollInterval.GetOrElse(0),
		StaleAfter:         c.BigSegments.StaleAfter.GetOrElse(0),
	}, loggers)
}
