package ldevents

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
)

const (
	defaultEventsURI   = "https://events.launchdarkly.com"
	eventSchemaHeader  = "X-LaunchDarkly-Event-Schema"
	payloadIDHeader    = "X-LaunchDarkly-Payload-ID"
	currentEventSchema = "3"
	bulkURIPath        = "/bulk"
	diagnosticURIPath  = "/diagnostic"
)

type defaultEventSender struct {
	httpClient    *http.Client
	eventsURI     string
	diagnosticURI string
	headers       http.Header
	loggers       ldlog.Loggers
	retryDelay    time.Duration
}

// NewDefaultEventSender creates the default implementation of EventSender, specifying
// the exact URIs for analytics and diagnostic data.
func NewDefaultEventSender(
	httpClient *http.Client,
	eventsURI string,
	diagnosticURI string,
	headers http.Header,
	loggers ldlog.Loggers,
) EventSender {
	return &defaultEventSender{
		httpClient:    httpClient,
		eventsURI:     eventsURI,
		diagnosticURI: diagnosticURI,
		headers:       headers,
		loggers:       loggers,
	}
}

// NewServerSideEventSender creates the standard implementation of EventSender for
// server-side SDKs.
//
// This is a convenience for calling NewDefaultEventSender with the standard endpoint
// paths (the diagnostic endpoint is the base events URI plus "/diagnostic") and the
// Authorization header.
func NewServerSideEventSender(
	httpClient *http.Client,
	sdkKey string,
	eventsURI string,
	headers http.Header,
	loggers ldlog.Loggers,
) EventSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	allHeaders := make(http.Header)
	for k, vv := range headers {
		allHeaders[k] = vv
	}
	allHeaders.Set("Authorization", sdkKey)
	if eventsURI == "" {
		eventsURI = defaultEventsURI
	}
	base := strings.TrimRight(eventsURI, "/")
	return &defaultEventSender{
		httpClient:    httpClient,
		eventsURI:     base + bulkURIPath,
		diagnosticURI: base + diagnosticURIPath,
		headers:       allHeaders,
		loggers:       loggers,
	}
}

func (s *defaultEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	headers := make(http.Header)
	for k, vv := range s.headers {
		headers[k] = vv
	}
	headers.Set("Content-Type", "application/json")

	var uri, description string
	switch kind {
	case AnalyticsEventDataKind:
		uri = s.eventsURI
		description = fmt.Sprintf("%d events", eventCount)
		headers.Add(eventSchemaHeader, currentEventSchema)
		// If uuid.NewRandom somehow failed, we would just proceed with an empty ID.
		payloadUUID, _ := uuid.NewRandom()
		headers.Add(payloadIDHeader, payloadUUID.String())
	case DiagnosticEventDataKind:
		uri = s.diagnosticURI
		description = "diagnostic event"
	default:
		return EventSenderResult{}
	}

	s.loggers.Debugf("Sending %s: %s", description, data)

	var resp *http.Response
	var respErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay
			if delay == 0 {
				delay = time.Second
			}
			s.loggers.Warnf("Will retry posting events after %v", delay)
			time.Sleep(delay)
		}
		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(data))
		if reqErr != nil {
			s.loggers.Errorf("Unexpected error while creating event request: %+v", reqErr)
			return EventSenderResult{}
		}
		req.Header = headers

		resp, respErr = s.httpClient.Do(req)

		if resp != nil && resp.Body != nil {
			_, _ = ioutil.ReadAll(resp.Body)
			_ = resp.Body.Close()
		}

		if respErr != nil {
			s.loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			result := EventSenderResult{Success: true}
			if t, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
				result.TimeFromServer = ldtime.UnixMillisFromTime(t)
			}
			return result
		}
		if isHTTPErrorRecoverable(resp.StatusCode) {
			maybeRetry := "will retry"
			if attempt == 1 {
				maybeRetry = "some events were dropped"
			}
			s.loggers.Warnf(httpErrorMessage(resp.StatusCode, "sending events", maybeRetry))
		} else {
			s.loggers.Warnf(httpErrorMessage(resp.StatusCode, "sending events", ""))
			return EventSenderResult{MustShutDown: true}
		}
	}
	return EventSenderResult{}
}
