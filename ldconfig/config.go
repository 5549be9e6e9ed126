package ldconfig

import (
	"time"

	ct "github.com/launchdarkly/go-configtypes"
)

const (
	// DefaultBaseURI is the default value for the base URI of the polling service.
	DefaultBaseURI = "https://app.launchdarkly.com"

	// DefaultStreamURI is the default value for the base URI of the streaming service.
	DefaultStreamURI = "https://stream.launchdarkly.com"

	// DefaultEventsURI is the default value for the base URI of the events service.
	DefaultEventsURI = "https://events.launchdarkly.com"

	// DefaultEventsFlushInterval is the default value for EventsConfig.FlushInterval.
	DefaultEventsFlushInterval = time.Second * 5

	// DefaultUserKeysFlushInterval is the default value for EventsConfig.UserKeysFlushInterval.
	DefaultUserKeysFlushInterval = time.Minute * 5

	// DefaultDiagnosticRecordingInterval is the default value for
	// EventsConfig.DiagnosticRecordingInterval.
	DefaultDiagnosticRecordingInterval = time.Minute * 15

	// MinimumDiagnosticRecordingInterval is the lowest allowed value for
	// EventsConfig.DiagnosticRecordingInterval; smaller configured values are raised to it.
	MinimumDiagnosticRecordingInterval = time.Minute
)

const (
	defaultEventCapacity    = 1000
	defaultUserKeysCapacity = 1000
	defaultRedisHost        = "localhost"
	defaultRedisPort        = 6379
)

var (
	defaultBaseURI   = newOptURLAbsoluteMustBeValid(DefaultBaseURI)
	defaultStreamURI = newOptURLAbsoluteMustBeValid(DefaultStreamURI)
	defaultEventsURI = newOptURLAbsoluteMustBeValid(DefaultEventsURI)
	defaultRedisURL  = newOptURLAbsoluteMustBeValid("redis://localhost:6379")
)

// Config describes the full configuration for an SDK service instance.
//
// When configuring programmatically, start from DefaultConfig and change only the
// fields you need; then call ValidateConfig.
type Config struct {
	Main        MainConfig
	Events      EventsConfig
	Redis       RedisConfig
	BigSegments BigSegmentsConfig
}

// MainConfig contains global settings: credentials, service URIs, and logging.
//
// This corresponds to the [Main] section in the configuration file.
type MainConfig struct {
	SDKKey                SDKKey            `conf:"SDK_KEY"`
	BaseURI               ct.OptURLAbsolute `conf:"BASE_URI"`
	StreamURI             ct.OptURLAbsolute `conf:"STREAM_URI"`
	InitialReconnectDelay ct.OptDuration    `conf:"INITIAL_RECONNECT_DELAY"`
	LogLevel              OptLogLevel       `conf:"LOG_LEVEL"`
}

// EventsConfig contains settings for the analytics event pipeline.
//
// This corresponds to the [Events] section in the configuration file.
type EventsConfig struct {
	SendEvents                  bool                     `conf:"SEND_EVENTS"`
	EventsURI                   ct.OptURLAbsolute        `conf:"EVENTS_URI"`
	Capacity                    ct.OptIntGreaterThanZero `conf:"EVENTS_CAPACITY"`
	FlushInterval               ct.OptDuration           `conf:"EVENTS_FLUSH_INTERVAL"`
	UserKeysCapacity            ct.OptIntGreaterThanZero `conf:"USER_KEYS_CAPACITY"`
	UserKeysFlushInterval       ct.OptDuration           `conf:"USER_KEYS_FLUSH_INTERVAL"`
	DiagnosticRecordingInterval ct.OptDuration           `conf:"DIAGNOSTIC_RECORDING_INTERVAL"`
	DiagnosticOptOut            bool                     `conf:"DIAGNOSTIC_OPT_OUT"`
	InlineUsersInEvents         bool                     `conf:"INLINE_USERS_IN_EVENTS"`
	AllAttributesPrivate        bool                     `conf:"ALL_ATTRIBUTES_PRIVATE"`
}

// RedisConfig configures the optional Redis integration.
//
// Redis is enabled if URL or Host is non-empty or if Port is set. If only Host or Port
// is set, the other value defaults to localhost or 6379. It is an error to set Host or
// Port if URL is also set.
//
// This corresponds to the [Redis] section in the configuration file.
type RedisConfig struct {
	Host     string                   `conf:"REDIS_HOST"`
	Port     ct.OptIntGreaterThanZero `conf:"REDIS_PORT"`
	URL      ct.OptURLAbsolute        `conf:"REDIS_URL"`
	Password string                   `conf:"REDIS_PASSWORD"`
	Prefix   string                   `conf:"REDIS_PREFIX"`
}

// BigSegmentsConfig configures the big segment store wrapper. These settings only have
// an effect when Redis is configured, since the big segment store lives in the same
// database.
//
// This corresponds to the [BigSegments] section in the configuration file.
type BigSegmentsConfig struct {
	UserCacheSize      ct.OptIntGreaterThanZero `conf:"BIG_SEGMENTS_USER_CACHE_SIZE"`
	UserCacheTime      ct.OptDuration           `conf:"BIG_SEGMENTS_USER_CACHE_TIME"`
	StatusPollInterval ct.OptDuration           `conf:"BIG_SEGMENTS_STATUS_POLL_INTERVAL"`
	StaleAfter         ct.OptDuration           `conf:"BIG_SEGMENTS_STALE_AFTER"`
}

// DefaultConfig contains the default values for all configuration sections.
var DefaultConfig = Config{
	Main: MainConfig{
		BaseURI:   defaultBaseURI,
		StreamURI: defaultStreamURI,
	},
	Events: EventsConfig{
		EventsURI: defaultEventsURI,
	},
}

// GetCapacity returns the configured event buffer capacity or the default.
func (c EventsConfig) GetCapacity() int {
	return c.Capacity.GetOrElse(defaultEventCapacity)
}

// GetFlushInterval returns the configured event flush interval or the default.
func (c EventsConfig) GetFlushInterval() time.Duration {
	return c.FlushInterval.GetOrElse(DefaultEventsFlushInterval)
}

// GetUserKeysCapacity returns the configured user key LRU size or the default.
func (c EventsConfig) GetUserKeysCapacity() int {
	return c.UserKeysCapacity.GetOrElse(defaultUserKeysCapacity)
}

// GetUserKeysFlushInterval returns the configured user key flush interval or the default.
func (c EventsConfig) GetUserKeysFlushInterval() time.Duration {
	return c.UserKeysFlushInterval.GetOrElse(DefaultUserKeysFlushInterval)
}

// GetDiagnosticRecordingInterval returns the configured diagnostic recording interval,
// raised to MinimumDiagnosticRecordingInterval if a lower value was specified.
func (c EventsConfig) GetDiagnosticRecordingInterval() time.Duration {
	interval := c.DiagnosticRecordingInterval.GetOrElse(DefaultDiagnosticRecordingInterval)
	if interval < MinimumDiagnosticRecordingInterval {
		return MinimumDiagnosticRecordingInterval
	}
	return interval
}
