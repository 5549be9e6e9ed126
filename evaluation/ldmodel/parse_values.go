package ldmodel

import (
	"regexp"
	"time"

	"github.com/blang/semver"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// A date/time value may be either an RFC3339 string or a number of milliseconds since
// the Unix epoch. Anything else is not a date.
func parseDateTime(value ldvalue.Value) (time.Time, bool) {
	switch value.Type() {
	case ldvalue.StringType:
		if t, err := time.Parse(time.RFC3339Nano, value.StringValue()); err == nil {
			return t.UTC(), true
		}
	case ldvalue.NumberType:
		millis := value.Float64Value()
		return time.Unix(0, int64(millis)*int64(time.Millisecond)).UTC(), true
	}
	return time.Time{}, false
}

func parseRegexp(value ldvalue.Value) (*regexp.Regexp, bool) {
	if value.Type() == ldvalue.StringType {
		if r, err := regexp.Compile(value.StringValue()); err == nil {
			return r, true
		}
	}
	return nil, false
}

// Matches the numeric components at the start of a version string, so that versions
// with missing components ("2" or "2.1") can be padded out to valid semvers.
var versionNumericComponentsRegex = regexp.MustCompile(`^\d+(\.\d+)?(\.\d+)?`) //nolint:gochecknoglobals

func parseSemVer(value ldvalue.Value) (semver.Version, bool) {
	if value.Type() != ldvalue.StringType {
		return semver.Version{}, false
	}
	versionStr := value.StringValue()
	if sv, err := semver.Parse(versionStr); err == nil {
		return sv, true
	}
	// Zero-pad any missing numeric components and try again; "2.1-beta" becomes
	// "2.1.0-beta".
	matchParts := versionNumericComponentsRegex.FindStringSubmatch(versionStr)
	if matchParts != nil {
		padded := matchParts[0]
		for i := 1; i < len(matchParts); i++ {
			if matchParts[i] == "" {
				padded += ".0"
			}
		}
		padded += versionStr[len(matchParts[0]):]
		if sv, err := semver.Parse(padded); err == nil {
			return sv, true
		}
	}
	return semver.Version{}, false
}
