package ldevents

import (
	"fmt"
	"net/http"
)

func httpErrorMessage(statusCode int, context string, recoverableMessage string) string {
	statusDesc := ""
	if statusCode == http.StatusUnauthorized {
		statusDesc = " (invalid SDK key)"
	}
	resultMessage := "giving up permanently"
	if recoverableMessage != "" {
		resultMessage = recoverableMessage
	}
	return fmt.Sprintf("Received HTTP error %d%s for %s - %s",
		statusCode, statusDesc, context, resultMessage)
}

// 400-range errors are considered unrecoverable except for a few that indicate a
// transient condition rather than a problem with the request itself.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case http.StatusBadRequest, http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	return true
}

// User keys are not logged unless the application opted in, since they often contain
// personally identifiable information.
func describeUserForErrorLog(userKey string, logUserKeyInErrors bool) string {
	if logUserKeyInErrors {
		return fmt.Sprintf(`user "%s"`, userKey)
	}
	return "a user (enable detailed logging with LogUserKeyInErrors to see the user key)"
}
