package ldconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	helpers "github.com/launchdarkly/go-test-helpers/v2"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlogtest"
)

func TestConfigFromFileWithValidProperties(t *testing.T) {
	for _, tdc := range makeValidConfigs() {
		if tdc.fileContent == "" {
			// some tests only apply to environment variables, not files
			continue
		}
		t.Run(tdc.name, func(t *testing.T) {
			testFileWithValidConfig(t, tdc)
		})
	}
}

func TestConfigFromFileWithInvalidProperties(t *testing.T) {
	for _, tdc := range makeInvalidConfigs() {
		if tdc.fileContent == "" {
			continue
		}
		t.Run(tdc.name, func(t *testing.T) {
			e := tdc.fileError
			if e == "" {
				e = tdc.envVarsError
			}
			testFileWithInvalidConfig(t, tdc.fileContent, e)
		})
	}
}

func TestConfigFromFileBasicValidation(t *testing.T) {
	t.Run("raises error for unknown config section", func(t *testing.T) {
		testFileWithInvalidConfig(t,
			`[Unknown]
`,
			`unsupported or misspelled section "Unknown"`,
		)
	})

	t.Run("raises error for unknown config field", func(t *testing.T) {
		testFileWithInvalidConfig(t,
			`[Main]
Unknown = x`,
			`unsupported or misspelled section "Main", variable "Unknown"`,
		)
	})

	t.Run("rejects invalid URI", func(t *testing.T) {
		testFileWithInvalidConfig(t,
			`[Main]
StreamUri = "::"`,
			"not a valid URL/URI",
		)
		testFileWithInvalidConfig(t,
			`[Main]
StreamUri = "not/absolute"`,
			"must be an absolute URL/URI",
		)
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		testFileWithInvalidConfig(t,
			`[Main]
LogLevel = "wrong"`,
			`"wrong" is not a valid log level`,
		)
	})
}

func testFileWithValidConfig(t *testing.T, tdc testDataValidConfig) {
	helpers.WithTempFile(func(filename string) {
		require.NoError(t, os.WriteFile(filename, []byte(tdc.fileContent), 0600))

		c := DefaultConfig
		mockLog := ldlogtest.NewMockLog()
		err := LoadConfigFile(&c, filename, mockLog.Loggers)
		require.NoError(t, err)
		tdc.assertResult(t, c, mockLog)
	})
}

func testFileWithInvalidConfig(t *testing.T, fileContent string, errMessage string) {
	helpers.WithTempFile(func(filename string) {
		require.NoError(t, os.WriteFile(filename, []byte(fileContent), 0600))

		c := DefaultConfig
		err := LoadConfigFile(&c, filename, ldlog.NewDisabledLoggers())
		require.Error(t, err)
		assert.Contains(t, err.Error(), errMessage)
	})
}
