package ldconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ct "github.com/launchdarkly/go-configtypes"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlogtest"
)

type testDataValidConfig struct {
	name        string
	makeConfig  func(c *Config)
	envVars     map[string]string
	fileContent string
}

type testDataInvalidConfig struct {
	name         string
	envVarsError string
	fileError    string
	envVars      map[string]string
	fileContent  string
}

func (tdc testDataValidConfig) assertResult(t *testing.T, actualConfig Config, mockLog *ldlogtest.MockLog) {
	expectedConfig := DefaultConfig
	tdc.makeConfig(&expectedConfig)
	assert.Equal(t, expectedConfig, actualConfig)
}

func mustOptIntGreaterThanZero(n int) ct.OptIntGreaterThanZero {
	o, err := ct.NewOptIntGreaterThanZero(n)
	if err != nil {
		panic(err)
	}
	return o
}

func makeValidConfigs() []testDataValidConfig {
	return []testDataValidConfig{
		makeValidConfigAllBaseProperties(),
		makeValidConfigRedisMinimal(),
		makeValidConfigRedisAll(),
		makeValidConfigRedisURL(),
		makeValidConfigBigSegments(),
	}
}

func makeInvalidConfigs() []testDataInvalidConfig {
	return []testDataInvalidConfig{
		makeInvalidConfigRedisConflictingParams(),
		makeInvalidConfigBigSegmentsWithoutRedis(),
	}
}

func makeValidConfigAllBaseProperties() testDataValidConfig {
	c := testDataValidConfig{name: "all base properties"}
	c.makeConfig = func(c *Config) {
		c.Main = MainConfig{
			SDKKey:                "my-key",
			BaseURI:               newOptURLAbsoluteMustBeValid("http://base"),
			StreamURI:             newOptURLAbsoluteMustBeValid("http://stream"),
			InitialReconnectDelay: ct.NewOptDuration(500 * time.Millisecond),
			LogLevel:              NewOptLogLevel(ldlog.Warn),
		}
		c.Events = EventsConfig{
			SendEvents:                  true,
			EventsURI:                   newOptURLAbsoluteMustBeValid("http://events"),
			Capacity:                    mustOptIntGreaterThanZero(500),
			FlushInterval:               ct.NewOptDuration(120 * time.Second),
			UserKeysCapacity:            mustOptIntGreaterThanZero(2000),
			UserKeysFlushInterval:       ct.NewOptDuration(10 * time.Minute),
			DiagnosticRecordingInterval: ct.NewOptDuration(5 * time.Minute),
			DiagnosticOptOut:            true,
			InlineUsersInEvents:         true,
			AllAttributesPrivate:        true,
		}
	}
	c.envVars = map[string]string{
		"SDK_KEY":                       "my-key",
		"BASE_URI":                      "http://base",
		"STREAM_URI":                    "http://stream",
		"INITIAL_RECONNECT_DELAY":       "500ms",
		"LOG_LEVEL":                     "warn",
		"SEND_EVENTS":                   "1",
		"EVENTS_URI":                    "http://events",
		"EVENTS_CAPACITY":               "500",
		"EVENTS_FLUSH_INTERVAL":         "120s",
		"USER_KEYS_CAPACITY":            "2000",
		"USER_KEYS_FLUSH_INTERVAL":      "10m",
		"DIAGNOSTIC_RECORDING_INTERVAL": "5m",
		"DIAGNOSTIC_OPT_OUT":            "1",
		"INLINE_USERS_IN_EVENTS":        "1",
		"ALL_ATTRIBUTES_PRIVATE":        "1",
	}
	c.fileContent = `
[Main]
SdkKey = "my-key"
BaseUri = "http://base"
StreamUri = "http://stream"
InitialReconnectDelay = "500ms"
LogLevel = "warn"

[Events]
SendEvents = 1
EventsUri = "http://events"
Capacity = 500
FlushInterval = "120s"
UserKeysCapacity = 2000
UserKeysFlushInterval = "10m"
DiagnosticRecordingInterval = "5m"
DiagnosticOptOut = 1
InlineUsersInEvents = 1
AllAttributesPrivate = 1
`
	return c
}

func makeValidConfigRedisMinimal() testDataValidConfig {
	c := testDataValidConfig{name: "Redis - minimal parameters"}
	c.makeConfig = func(c *Config) {
		c.Redis.URL = defaultRedisURL
	}
	c.envVars = map[string]string{
		"USE_REDIS": "1",
	}
	c.fileContent = `
[Redis]
Host = "localhost"
`
	return c
}

func makeValidConfigRedisAll() testDataValidConfig {
	c := testDataValidConfig{name: "Redis - all parameters"}
	c.makeConfig = func(c *Config) {
		c.Redis.URL = newOptURLAbsoluteMustBeValid("redis://redishost:6400")
		c.Redis.Password = "pass"
		c.Redis.Prefix = "ld"
	}
	c.envVars = map[string]string{
		"USE_REDIS":      "1",
		"REDIS_HOST":     "redishost",
		"REDIS_PORT":     "6400",
		"REDIS_PASSWORD": "pass",
		"REDIS_PREFIX":   "ld",
	}
	c.fileContent = `
[Redis]
Host = "redishost"
Port = 6400
Password = "pass"
Prefix = "ld"
`
	return c
}

func makeValidConfigRedisURL() testDataValidConfig {
	c := testDataValidConfig{name: "Redis - URL instead of host/port"}
	c.makeConfig = func(c *Config) {
		c.Redis.URL = newOptURLAbsoluteMustBeValid("redis://redishost:6400/1")
	}
	c.envVars = map[string]string{
		"USE_REDIS": "1",
		"REDIS_URL": "redis://redishost:6400/1",
	}
	c.fileContent = `
[Redis]
Url = "redis://redishost:6400/1"
`
	return c
}

func makeValidConfigBigSegments() testDataValidConfig {
	c := testDataValidConfig{name: "big segments"}
	c.makeConfig = func(c *Config) {
		c.Redis.URL = defaultRedisURL
		c.BigSegments = BigSegmentsConfig{
			UserCacheSize:      mustOptIntGreaterThanZero(100),
			UserCacheTime:      ct.NewOptDuration(30 * time.Second),
			StatusPollInterval: ct.NewOptDuration(10 * time.Second),
			StaleAfter:         ct.NewOptDuration(5 * time.Minute),
		}
	}
	c.envVars = map[string]string{
		"USE_REDIS":                         "1",
		"BIG_SEGMENTS_USER_CACHE_SIZE":      "100",
		"BIG_SEGMENTS_USER_CACHE_TIME":      "30s",
		"BIG_SEGMENTS_STATUS_POLL_INTERVAL": "10s",
		"BIG_SEGMENTS_STALE_AFTER":          "5m",
	}
	c.fileContent = `
[Redis]
Host = "localhost"

[BigSegments]
UserCacheSize = 100
UserCacheTime = "30s"
StatusPollInterval = "10s"
StaleAfter = "5m"
`
	return c
}

func makeInvalidConfigRedisConflictingParams() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "Redis URL and host/port", envVarsError: errRedisURLWithHostAndPort.Error()}
	c.envVars = map[string]string{
		"USE_REDIS":  "1",
		"REDIS_HOST": "redishost",
		"REDIS_URL":  "redis://redishost:6400",
	}
	c.fileContent = `
[Redis]
Host = "redishost"
Url = "redis://redishost:6400"
`
	return c
}

func makeInvalidConfigBigSegmentsWithoutRedis() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "big segments without Redis", envVarsError: errBigSegmentsWithoutRedis.Error()}
	c.envVars = map[string]string{
		"BIG_SEGMENTS_USER_CACHE_SIZE": "100",
	}
	c.fileContent = `
[BigSegments]
UserCacheSize = 100
`
	return c
}
