package ldstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	es "github.com/launchdarkly/eventsource"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"

	"gopkg.in/launchdarkly/go-sdk-core.v1/ldevents"
	"gopkg.in/launchdarkly/go-sdk-core.v1/ldstore"
)

// Implementation of the streaming data source, not including the lower-level SSE
// implementation which is in the eventsource package.
//
// Error handling works as follows:
// 1. If any event is malformed, we must assume the stream is broken and we may have
// missed updates, so we restart the stream.
// 2. If we receive an unrecoverable error like HTTP 401, we close the stream and don't
// retry. Any other HTTP error or network error causes a retry with backoff.
// 3. We close the closeWhenReady channel to tell the caller that initialization has
// either succeeded (we got an initial payload and stored it) or permanently failed
// (we got a 401, etc.). Otherwise the caller may time out waiting, but we will still
// be retrying in the background, and success can be detected through IsInitialized.

const (
	putEvent           = "put"
	patchEvent         = "patch"
	deleteEvent        = "delete"
	indirectPutEvent   = "indirect/put"
	indirectPatchEvent = "indirect/patch"

	streamReadTimeout        = 5 * time.Minute // the stream should send a heartbeat comment every 3 minutes
	streamMaxRetryDelay      = 30 * time.Second
	streamRetryResetInterval = 60 * time.Second
	streamJitterRatio        = 0.5
	defaultStreamRetryDelay  = 1 * time.Second

	streamingErrorContext     = "in stream connection"
	streamingWillRetryMessage = "will retry"
)

// StreamProcessorConfig holds the configurable properties of a StreamProcessor.
type StreamProcessorConfig struct {
	// SDKKey is the SDK key for the LaunchDarkly environment.
	SDKKey string
	// StreamURI is the base URI of the streaming service.
	StreamURI string
	// BaseURI is the base URI of the polling service, used to re-request individual
	// items for indirect stream events.
	BaseURI string
	// InitialReconnectDelay is the initial delay before reconnecting after a stream
	// failure. Zero means the default of one second.
	InitialReconnectDelay time.Duration
	// HTTPClient is the client for both stream and polling connections. Its Timeout
	// must be zero, since a stream response never completes.
	HTTPClient *http.Client
	// DiagnosticsManager records stream initialization timings in diagnostic events.
	// It may be nil.
	DiagnosticsManager *ldevents.DiagnosticsManager
	// Loggers is the destination for log output.
	Loggers ldlog.Loggers
}

// StreamProcessor is the streaming data source. It subscribes to the stream, applies
// updates to the data store, and keeps the connection alive with retries and backoff.
type StreamProcessor struct {
	store                      ldstore.DataStore
	requestor                  requestor
	streamURI                  string
	initialReconnectDelay      time.Duration
	client                     *http.Client
	headers                    http.Header
	diagnosticsManager         *ldevents.DiagnosticsManager
	loggers                    ldlog.Loggers
	setInitializedOnce         sync.Once
	isInitialized              bool
	halt                       chan struct{}
	connectionAttemptStartTime ldtime.UnixMillisecondTime
	connectionAttemptLock      sync.Mutex
	readyOnce                  sync.Once
	closeOnce                  sync.Once
}

// NewStreamProcessor creates a StreamProcessor that will apply stream updates to the
// specified data store. Call Start to begin the connection.
func NewStreamProcessor(config StreamProcessorConfig, store ldstore.DataStore) *StreamProcessor {
	headers := make(http.Header)
	headers.Set("Authorization", config.SDKKey)

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	// Client.Timeout isn't just a connect timeout; it would break the stream
	// connection once elapsed, since a stream response never completes.
	if client.Timeout != 0 {
		modifiedClient := *client
		modifiedClient.Timeout = 0
		client = &modifiedClient
	}

	return &StreamProcessor{
		store:                 store,
		requestor:             newRequestorImpl(client, strings.TrimRight(config.BaseURI, "/"), headers, config.Loggers),
		streamURI:             strings.TrimRight(config.StreamURI, "/"),
		initialReconnectDelay: config.InitialReconnectDelay,
		client:                client,
		headers:               headers,
		diagnosticsManager:    config.DiagnosticsManager,
		loggers:               config.Loggers,
		halt:                  make(chan struct{}),
	}
}

// IsInitialized returns true if the processor has stored a full data set at least once.
func (sp *StreamProcessor) IsInitialized() bool {
	return sp.isInitialized
}

// Start begins the streaming connection in a background goroutine. The closeWhenReady
// channel is closed once initialization has either succeeded or permanently failed.
func (sp *StreamProcessor) Start(closeWhenReady chan<- struct{}) {
	sp.loggers.Info("Starting LaunchDarkly streaming connection")
	go sp.subscribe(closeWhenReady)
}

type parsedPath struct {
	key  string
	kind ldstore.DataKind
}

func parsePath(path string) (parsedPath, error) {
	parsedPath := parsedPath{}
	switch {
	case strings.HasPrefix(path, "/segments/"):
		parsedPath.kind = ldstore.DataKindSegments()
		parsedPath.key = strings.TrimPrefix(path, "/segments/")
	case strings.HasPrefix(path, "/flags/"):
		parsedPath.kind = ldstore.DataKindFeatures()
		parsedPath.key = strings.TrimPrefix(path, "/flags/")
	default:
		return parsedPath, fmt.Errorf("unrecognized path %s", path)
	}
	return parsedPath, nil
}

type putData struct {
	Path string  `json:"path"`
	Data allData `json:"data"`
}

type patchData struct {
	Path string `json:"path"`
	// This could be a flag or a segment, depending on the path
	Data json.RawMessage `json:"data"`
}

type deleteData struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

func (sp *StreamProcessor) consumeStream(stream *es.Stream, closeWhenReady chan<- struct{}) {
	// Consume remaining Events and Errors so we can garbage collect
	defer func() {
		for range stream.Events {
		}
		if stream.Errors != nil {
			for range stream.Errors {
			}
		}
	}()

	for {
		select {
		case event, ok := <-stream.Events:
			if !ok {
				sp.loggers.Info("Event stream closed")
				return // The stream only gets closed without an error happening if we're being shut down externally
			}
			sp.logConnectionResult(true)

			shouldRestart := false

			gotMalformedEvent := func(event es.Event, err error) {
				sp.loggers.Errorf(
					"Received streaming \"%s\" event with malformed JSON data (%s); will restart stream",
					event.Event(),
					err,
				)
				shouldRestart = true // scenario 1 in error handling comments at top of file
			}

			switch event.Event() {
			case putEvent:
				var put putData
				if err := json.Unmarshal([]byte(event.Data()), &put); err != nil {
					gotMalformedEvent(event, err)
					break
				}
				if err := sp.store.Init(makeAllStoreData(put.Data)); err != nil {
					sp.loggers.Errorf("Failed to store initial streaming data: %s", err)
					shouldRestart = true
					break
				}
				sp.setInitializedAndNotifyClient(closeWhenReady)

			case patchEvent:
				var patch patchData
				if err := json.Unmarshal([]byte(event.Data()), &patch); err != nil {
					gotMalformedEvent(event, err)
					break
				}
				path, err := parsePath(patch.Path)
				if err != nil {
					gotMalformedEvent(event, err)
					break
				}
				item, err := path.kind.Deserialize(patch.Data)
				if err != nil {
					gotMalformedEvent(event, err)
					break
				}
				if _, err := sp.store.Upsert(path.kind, path.key, item); err != nil {
					sp.loggers.Errorf("Failed to store streaming update of %s: %s", path.key, err)
					shouldRestart = true
				}

			case deleteEvent:
				var data deleteData
				if err := json.Unmarshal([]byte(event.Data()), &data); err != nil {
					gotMalformedEvent(event, err)
					break
				}
				path, err := parsePath(data.Path)
				if err != nil {
					gotMalformedEvent(event, err)
					break
				}
				if _, err := sp.store.Delete(path.kind, path.key, data.Version); err != nil {
					sp.loggers.Errorf("Failed to store streaming deletion of %s: %s", path.key, err)
					shouldRestart = true
				}

			case indirectPutEvent:
				data, cached, err := sp.requestor.requestAll()
				if err != nil {
					sp.loggers.Errorf("Unexpected error requesting all items: %+v", err)
					break
				}
				if cached {
					break
				}
				if err := sp.store.Init(makeAllStoreData(data)); err != nil {
					sp.loggers.Errorf("Failed to store refreshed data: %s", err)
					shouldRestart = true
					break
				}
				sp.setInitializedAndNotifyClient(closeWhenReady)

			case indirectPatchEvent:
				// The event data is the path of the item to re-request; the path
				// determines whether it is a flag or a segment.
				path, err := parsePath(event.Data())
				if err != nil {
					gotMalformedEvent(event, err)
					break
				}
				item, err := sp.requestor.requestResource(path.kind, path.key)
				if err != nil {
					sp.loggers.Errorf("Unexpected error requesting %s item %q: %+v", path.kind, path.key, err)
					break
				}
				if _, err := sp.store.Upsert(path.kind, path.key, item); err != nil {
					sp.loggers.Errorf("Failed to store requested update of %s: %s", path.key, err)
					shouldRestart = true
				}

			default:
				sp.loggers.Infof("Unexpected event found in stream: %s", event.Event())
			}

			if shouldRestart {
				stream.Restart()
			}

		case <-sp.halt:
			stream.Close()
			return
		}
	}
}

func (sp *StreamProcessor) subscribe(closeWhenReady chan<- struct{}) {
	req, _ := http.NewRequest("GET", sp.streamURI+"/all", nil)
	for k, vv := range sp.headers {
		req.Header[k] = vv
	}
	sp.loggers.Info("Connecting to LaunchDarkly stream")

	sp.logConnectionStarted()

	initialRetryDelay := sp.initialReconnectDelay
	if initialRetryDelay <= 0 {
		initialRetryDelay = defaultStreamRetryDelay
	}

	errorHandler := func(err error) es.StreamErrorHandlerResult {
		sp.logConnectionResult(false)

		if se, ok := err.(es.SubscriptionError); ok {
			recoverable := checkIfErrorIsRecoverableAndLog(
				sp.loggers,
				httpErrorDescription(se.Code),
				streamingErrorContext,
				se.Code,
				streamingWillRetryMessage,
			)
			if recoverable {
				sp.logConnectionStarted()
				return es.StreamErrorHandlerResult{CloseNow: false}
			}
			sp.readyOnce.Do(func() {
				close(closeWhenReady)
			})
			return es.StreamErrorHandlerResult{CloseNow: true}
		}

		checkIfErrorIsRecoverableAndLog(
			sp.loggers,
			err.Error(),
			streamingErrorContext,
			0,
			streamingWillRetryMessage,
		)
		sp.logConnectionStarted()
		return es.StreamErrorHandlerResult{CloseNow: false}
	}

	stream, err := es.SubscribeWithRequestAndOptions(req,
		es.StreamOptionHTTPClient(sp.client),
		es.StreamOptionReadTimeout(streamReadTimeout),
		es.StreamOptionInitialRetry(initialRetryDelay),
		es.StreamOptionUseBackoff(streamMaxRetryDelay),
		es.StreamOptionUseJitter(streamJitterRatio),
		es.StreamOptionRetryResetInterval(streamRetryResetInterval),
		es.StreamOptionErrorHandler(errorHandler),
		es.StreamOptionCanRetryFirstConnection(-1),
		es.StreamOptionLogger(sp.loggers.ForLevel(ldlog.Info)),
	)

	if err != nil {
		sp.logConnectionResult(false)

		close(closeWhenReady)
		return
	}

	sp.consumeStream(stream, closeWhenReady)
}

func (sp *StreamProcessor) setInitializedAndNotifyClient(closeWhenReady chan<- struct{}) {
	sp.setInitializedOnce.Do(func() {
		sp.loggers.Info("LaunchDarkly streaming is active")
		sp.isInitialized = true
	})
	sp.readyOnce.Do(func() {
		close(closeWhenReady)
	})
}

func (sp *StreamProcessor) logConnectionStarted() {
	sp.connectionAttemptLock.Lock()
	defer sp.connectionAttemptLock.Unlock()
	sp.connectionAttemptStartTime = ldtime.UnixMillisNow()
}

func (sp *StreamProcessor) logConnectionResult(success bool) {
	sp.connectionAttemptLock.Lock()
	startTimeWas := sp.connectionAttemptStartTime
	sp.connectionAttemptStartTime = 0
	sp.connectionAttemptLock.Unlock()

	if startTimeWas > 0 && sp.diagnosticsManager != nil {
		timestamp := ldtime.UnixMillisNow()
		sp.diagnosticsManager.RecordStreamInit(timestamp, !success, uint64(timestamp-startTimeWas))
	}
}

// Close shuts down the stream connection. It is safe to call more than once.
func (sp *StreamProcessor) Close() error {
	sp.closeOnce.Do(func() {
		sp.loggers.Info("Closing event stream")
		close(sp.halt)
	})
	return nil
}
