package ldstream

import (
	"fmt"
	"net/http"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

func httpErrorDescription(statusCode int) string {
	message := ""
	if statusCode == 401 || statusCode == 403 {
		message = " (invalid SDK key)"
	}
	return fmt.Sprintf("HTTP error %d%s", statusCode, message)
}

// Returns true if the error is recoverable. 4xx errors are considered unrecoverable,
// except for 400, 408, and 429, on the assumption that anything else in that range
// means the request itself (such as the SDK key) will never be valid.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case 400, http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	return true
}

func checkIfErrorIsRecoverableAndLog(
	loggers ldlog.Loggers,
	errorDesc, errorContext string,
	statusCode int,
	recoverableMessage string,
) bool {
	if statusCode > 0 && !isHTTPErrorRecoverable(statusCode) {
		loggers.Errorf("Error %s (giving up permanently): %s", errorContext, errorDesc)
		return false
	}
	loggers.Warnf("Error %s (%s): %s", errorContext, recoverableMessage, errorDesc)
	return true
}
