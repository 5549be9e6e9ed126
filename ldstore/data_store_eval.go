package ldstore

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation"
	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
)

// Implementation of evaluation.DataProvider
type dataStoreEvaluatorDataProvider struct {
	store   DataStore
	loggers ldlog.Loggers
}

// NewDataStoreEvaluatorDataProvider provides an adapter for using a DataStore with the
// Evaluator type in the evaluation package.
func NewDataStoreEvaluatorDataProvider(store DataStore, loggers ldlog.Loggers) evaluation.DataProvider {
	return dataStoreEvaluatorDataProvider{store, loggers}
}

func (d dataStoreEvaluatorDataProvider) GetFeatureFlag(key string) *ldmodel.FeatureFlag {
	item, err := d.store.Get(DataKindFeatures(), key)
	if err == nil && item.Item != nil {
		data := item.Item
		if flag, ok := data.(*ldmodel.FeatureFlag); ok {
			return flag
		}
		d.loggers.Errorf("unexpected data type (%T) found in store for feature key: %s. Returning default value", data, key)
	}
	return nil
}

func (d dataStoreEvaluatorDataProvider) GetSegment(key string) *ldmodel.Segment {
	item, err := d.store.Get(DataKindSegments(), key)
	if err == nil && item.Item != nil {
		data := item.Item
		if segment, ok := data.(*ldmodel.Segment); ok {
			return segment
		}
		d.loggers.Errorf("unexpected data type (%T) found in store for segment key: %s. Returning default value", data, key)
	}
	return nil
}
