package ldconfig

import (
	ct "github.com/launchdarkly/go-configtypes"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

// LoadConfigFromEnvironment sets parameters in a Config struct from environment
// variables.
//
// The Config parameter should be initialized with default values first.
func LoadConfigFromEnvironment(c *Config, loggers ldlog.Loggers) error {
	reader := ct.NewVarReaderFromEnvironment()

	reader.ReadStruct(&c.Main, false)

	reader.ReadStruct(&c.Events, false)

	useRedis := false
	reader.Read("USE_REDIS", &useRedis)
	if useRedis || c.Redis.Host != "" || c.Redis.URL.IsDefined() {
		reader.ReadStruct(&c.Redis, false)
		if !c.Redis.URL.IsDefined() && c.Redis.Host == "" && !c.Redis.Port.IsDefined() {
			// all they specified was USE_REDIS
			c.Redis.URL = defaultRedisURL
		}
	}

	reader.ReadStruct(&c.BigSegments, false)

	if !reader.Result().OK() {
		return reader.Result().GetError()
	}

	return ValidateConfig(c, loggers)
}
