package ldstream

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/gregjones/httpcache"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
	"gopkg.in/launchdarkly/go-sdk-core.v1/ldstore"
)

// Polling endpoints, used to re-request individual items (or the full data set) when
// the stream tells us to.
const (
	latestFlagsPath    = "/sdk/latest-flags"
	latestSegmentsPath = "/sdk/latest-segments"
	latestAllPath      = "/sdk/latest-all"
)

// requestor is the interface implemented by requestorImpl, used for testing purposes
type requestor interface {
	requestAll() (data allData, cached bool, err error)
	requestResource(kind ldstore.DataKind, key string) (ldstore.ItemDescriptor, error)
}

// requestorImpl is the internal implementation of getting flag/segment data from the
// polling endpoints.
type requestorImpl struct {
	httpClient *http.Client
	baseURI    string
	headers    http.Header
	loggers    ldlog.Loggers
}

type malformedJSONError struct {
	innerError error
}

func (e malformedJSONError) Error() string {
	return e.innerError.Error()
}

type httpStatusError struct {
	statusCode int
	url        string
}

func (e httpStatusError) Error() string {
	return fmt.Sprintf("%s for %s", httpErrorDescription(e.statusCode), e.url)
}

func newRequestorImpl(
	httpClient *http.Client,
	baseURI string,
	headers http.Header,
	loggers ldlog.Loggers,
) requestor {
	// Conditional requests cost nothing when the resource has not changed, so cache
	// responses and let the transport revalidate them.
	modifiedClient := *httpClient
	modifiedClient.Transport = &httpcache.Transport{
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
		Transport:           httpClient.Transport,
	}

	return &requestorImpl{
		httpClient: &modifiedClient,
		baseURI:    baseURI,
		headers:    headers,
		loggers:    loggers,
	}
}

func (r *requestorImpl) requestAll() (allData, bool, error) {
	if r.loggers.IsDebugEnabled() {
		r.loggers.Debug("Polling LaunchDarkly for feature flag updates")
	}

	var data allData
	body, cached, err := r.makeRequest(latestAllPath)
	if err != nil {
		return allData{}, false, err
	}
	if cached {
		return allData{}, true, nil
	}
	if jsonErr := json.Unmarshal(body, &data); jsonErr != nil {
		return allData{}, false, malformedJSONError{jsonErr}
	}
	return data, cached, nil
}

func (r *requestorImpl) requestResource(
	kind ldstore.DataKind,
	key string,
) (ldstore.ItemDescriptor, error) {
	var resource string
	switch kind.GetName() {
	case "segments":
		resource = latestSegmentsPath + "/" + key
	case "features":
		resource = latestFlagsPath + "/" + key
	default:
		return ldstore.ItemDescriptor{}, fmt.Errorf("unexpected item type: %s", kind)
	}
	body, _, err := r.makeRequest(resource)
	if err != nil {
		return ldstore.ItemDescriptor{}, err
	}
	item, err := kind.Deserialize(body)
	if err != nil {
		return item, malformedJSONError{err}
	}
	return item, nil
}

func (r *requestorImpl) makeRequest(resource string) ([]byte, bool, error) {
	req, reqErr := http.NewRequest("GET", r.baseURI+resource, nil)
	if reqErr != nil {
		return nil, false, reqErr
	}
	url := req.URL.String()

	for k, vv := range r.headers {
		req.Header[k] = vv
	}

	res, resErr := r.httpClient.Do(req)
	if resErr != nil {
		return nil, false, resErr
	}

	defer func() {
		_, _ = ioutil.ReadAll(res.Body)
		_ = res.Body.Close()
	}()

	if res.StatusCode >= 300 {
		return nil, false, httpStatusError{statusCode: res.StatusCode, url: url}
	}

	cached := res.Header.Get(httpcache.XFromCache) != ""

	body, ioErr := ioutil.ReadAll(res.Body)
	if ioErr != nil {
		return nil, false, ioErr
	}
	return body, cached, nil
}

// allData is the shape of the "put" event payload and of the full polling response.
type allData struct {
	Flags    map[string]ldmodel.FeatureFlag `json:"flags"`
	Segments map[string]ldmodel.Segment     `json:"segments"`
}

func makeAllStoreData(data allData) []ldstore.Collection {
	flags := make([]ldstore.KeyedItemDescriptor, 0, len(data.Flags))
	for key := range data.Flags {
		flag := data.Flags[key]
		ldmodel.PreprocessFlag(&flag)
		flags = append(flags, ldstore.KeyedItemDescriptor{
			Key:  key,
			Item: ldstore.ItemDescriptor{Version: flag.Version, Item: &flag},
		})
	}
	segments := make([]ldstore.KeyedItemDescriptor, 0, len(data.Segments))
	for key := range data.Segments {
		segment := data.Segments[key]
		ldmodel.PreprocessSegment(&segment)
		segments = append(segments, ldstore.KeyedItemDescriptor{
			Key:  key,
			Item: ldstore.ItemDescriptor{Version: segment.Version, Item: &segment},
		})
	}
	return []ldstore.Collection{
		{Kind: ldstore.DataKindSegments(), Items: segments},
		{Kind: ldstore.DataKindFeatures(), Items: flags},
	}
}
