package ldconfig

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ct "github.com/launchdarkly/go-configtypes"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlogtest"
)

func TestConfigFromEnvironmentWithValidProperties(t *testing.T) {
	for _, tdc := range makeValidConfigs() {
		t.Run(tdc.name, func(t *testing.T) {
			testValidConfigVars(t, tdc)
		})
	}
}

func TestConfigFromEnvironmentWithInvalidProperties(t *testing.T) {
	for _, tdc := range makeInvalidConfigs() {
		if len(tdc.envVars) != 0 {
			t.Run(tdc.name, func(t *testing.T) {
				testInvalidConfigVars(t, tdc.envVars, tdc.envVarsError)
			})
		}
	}
}

func TestConfigFromEnvironmentOverridesExistingSettings(t *testing.T) {
	t.Run("can change Redis port when host was preset", func(t *testing.T) {
		startingConfig := DefaultConfig
		startingConfig.Redis.Host = "redishost"
		expectedConfig := DefaultConfig
		expectedConfig.Redis.URL = newOptURLAbsoluteMustBeValid("redis://redishost:2222")
		withEnvironment(map[string]string{"REDIS_PORT": "2222"}, func() {
			c := startingConfig
			err := LoadConfigFromEnvironment(&c, ldlog.NewDisabledLoggers())
			require.NoError(t, err)

			assert.Equal(t, expectedConfig, c)
		})
	})
}

func TestConfigFromEnvironmentFieldValidation(t *testing.T) {
	t.Run("allows boolean values 0/1 or true/false", func(t *testing.T) {
		testValidConfigVars(t, testDataValidConfig{
			makeConfig: func(c *Config) { c.Events.SendEvents = true },
			envVars:    map[string]string{"SEND_EVENTS": "true"},
		})
		testValidConfigVars(t, testDataValidConfig{
			makeConfig: func(c *Config) { c.Events.SendEvents = true },
			envVars:    map[string]string{"SEND_EVENTS": "1"},
		})
		testValidConfigVars(t, testDataValidConfig{
			makeConfig: func(c *Config) { c.Events.SendEvents = false },
			envVars:    map[string]string{"SEND_EVENTS": "false"},
		})
	})

	t.Run("rejects invalid int", func(t *testing.T) {
		testInvalidConfigVars(t,
			map[string]string{"EVENTS_CAPACITY": "not-numeric"},
			"EVENTS_CAPACITY: not a valid integer",
		)
	})

	t.Run("rejects <=0 value for int that must be >0", func(t *testing.T) {
		testInvalidConfigVars(t,
			map[string]string{"EVENTS_CAPACITY": "0"},
			"EVENTS_CAPACITY: value must be greater than zero",
		)
	})

	t.Run("parses valid URI", func(t *testing.T) {
		testValidConfigVars(t, testDataValidConfig{
			makeConfig: func(c *Config) { c.Main.BaseURI = newOptURLAbsoluteMustBeValid("http://some/uri") },
			envVars:    map[string]string{"BASE_URI": "http://some/uri"},
		})
	})

	t.Run("rejects invalid URI", func(t *testing.T) {
		testInvalidConfigVars(t,
			map[string]string{"BASE_URI": "::"},
			"BASE_URI: not a valid URL/URI",
		)
		testInvalidConfigVars(t,
			map[string]string{"BASE_URI": "not/absolute"},
			"BASE_URI: must be an absolute URL/URI",
		)
	})

	t.Run("parses valid duration", func(t *testing.T) {
		testValidConfigVars(t, testDataValidConfig{
			makeConfig: func(c *Config) { c.Events.FlushInterval = ct.NewOptDuration(3 * time.Second) },
			envVars:    map[string]string{"EVENTS_FLUSH_INTERVAL": "3s"},
		})
	})

	t.Run("rejects invalid duration", func(t *testing.T) {
		testInvalidConfigVars(t,
			map[string]string{"EVENTS_FLUSH_INTERVAL": "x"},
			"EVENTS_FLUSH_INTERVAL: not a valid duration",
		)
	})

	t.Run("parses valid log level", func(t *testing.T) {
		testValidConfigVars(t, testDataValidConfig{
			makeConfig: func(c *Config) { c.Main.LogLevel = NewOptLogLevel(ldlog.Warn) },
			envVars:    map[string]string{"LOG_LEVEL": "warn"},
		})
		testValidConfigVars(t, testDataValidConfig{
			makeConfig: func(c *Config) { c.Main.LogLevel = NewOptLogLevel(ldlog.Error) },
			envVars:    map[string]string{"LOG_LEVEL": "eRrOr"},
		})
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		testInvalidConfigVars(t,
			map[string]string{"LOG_LEVEL": "wrong"},
			`LOG_LEVEL: "wrong" is not a valid log level`,
		)
	})
}

func testValidConfigVars(t *testing.T, tdc testDataValidConfig) {
	withEnvironment(tdc.envVars, func() {
		c := DefaultConfig
		mockLog := ldlogtest.NewMockLog()
		err := LoadConfigFromEnvironment(&c, mockLog.Loggers)
		require.NoError(t, err)
		tdc.assertResult(t, c, mockLog)
	})
}

func testInvalidConfigVars(t *testing.T, vars map[string]string, errMessage string) {
	withEnvironment(vars, func() {
		c := DefaultConfig
		err := LoadConfigFromEnvironment(&c, ldlog.NewDisabledLoggers())
		require.Error(t, err)
		assert.Contains(t, err.Error(), errMessage)
	})
}

func withEnvironment(vars map[string]string, action func()) {
	saved := make(map[string]string)
	for _, kv := range os.Environ() {
		p := strings.Index(kv, "=")
		saved[kv[:p]] = kv[p+1:]
	}
	defer func() {
		os.Clearenv()
		for k, v := range saved {
			os.Setenv(k, v)
		}
	}()
	os.Clearenv()
	for k, v := range vars {
		os.Setenv(k, v)
	}
	action()
}
