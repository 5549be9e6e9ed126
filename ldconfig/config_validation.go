package ldconfig

import (
	"errors"
	"fmt"

	ct "github.com/launchdarkly/go-configtypes"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

var (
	errRedisURLWithHostAndPort = errors.New("please specify Redis URL or host/port, but not both")
	errRedisBadHostname        = errors.New("invalid Redis hostname")
	errBigSegmentsWithoutRedis = errors.New("big segment settings require Redis to be configured")
)

// ValidateConfig ensures that the configuration does not contain contradictory
// properties.
//
// This method covers validation rules that can't be enforced on a per-field basis. It
// is allowed to modify the Config struct in order to canonicalize settings (for
// instance, converting Redis host/port settings into a Redis URL).
//
// LoadConfigFromEnvironment and LoadConfigFile both call this method as a last step,
// but it is also called by the client constructor because it is possible for
// application code to construct a Config programmatically.
func ValidateConfig(c *Config, loggers ldlog.Loggers) error {
	var result ct.ValidationResult

	normalizeRedisConfig(&result, c)
	validateBigSegmentsConfig(&result, c)

	if interval := c.Events.DiagnosticRecordingInterval; interval.IsDefined() &&
		interval.GetOrElse(0) < MinimumDiagnosticRecordingInterval {
		loggers.Warnf("diagnostic recording interval %s is less than the minimum of %s and will be raised",
			interval.GetOrElse(0), MinimumDiagnosticRecordingInterval)
	}

	return result.GetError()
}

func normalizeRedisConfig(result *ct.ValidationResult, c *Config) {
	if c.Redis.URL.IsDefined() {
		if c.Redis.Host != "" || c.Redis.Port.IsDefined() {
			result.AddError(nil, errRedisURLWithHostAndPort)
		}
	} else if c.Redis.Host != "" || c.Redis.Port.IsDefined() {
		host := c.Redis.Host
		if host == "" {
			host = defaultRedisHost
		}
		port := c.Redis.Port.GetOrElse(defaultRedisPort)
		url, err := ct.NewOptURLAbsoluteFromString(fmt.Sprintf("redis://%s:%d", host, port))
		if err != nil {
			result.AddError(nil, errRedisBadHostname)
		}
		c.Redis.URL = url
		c.Redis.Host = ""
		c.Redis.Port = ct.OptIntGreaterThanZero{}
	}
}

func validateBigSegmentsConfig(result *ct.ValidationResult, c *Config) {
	anyBigSegmentSetting := c.BigSegments.UserCacheSize.IsDefined() ||
		c.BigSegments.UserCacheTime.IsDefined() ||
		c.BigSegments.StatusPollInterval.IsDefined() ||
		c.BigSegments.StaleAfter.IsDefined()
	if anyBigSegmentSetting && !c.Redis.URL.IsDefined() && c.Redis.Host == "" {
		result.AddError(nil, errBigSegmentsWithoutRedis)
	}
}
