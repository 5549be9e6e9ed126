package ldmodel

import (
	"encoding/json"
)

// DataModelSerialization defines an encoding for data model objects.
//
// For the standard JSON encoding, use NewJSONDataModelSerialization.
type DataModelSerialization interface {
	// MarshalFeatureFlag converts a FeatureFlag into its serialized encoding.
	MarshalFeatureFlag(item FeatureFlag) ([]byte, error)
	// MarshalSegment converts a Segment into its serialized encoding.
	MarshalSegment(item Segment) ([]byte, error)
	// UnmarshalFeatureFlag attempts to convert a FeatureFlag from its serialized encoding.
	UnmarshalFeatureFlag(data []byte) (FeatureFlag, error)
	// UnmarshalSegment attempts to convert a Segment from its serialized encoding.
	UnmarshalSegment(data []byte) (Segment, error)
}

type jsonDataModelSerialization struct{}

// NewJSONDataModelSerialization provides the standard JSON encoding for data model
// objects. Always use this rather than calling json.Unmarshal directly: deserialized
// items are preprocessed here, and the encoding may change to a more efficient
// mechanism in the future.
func NewJSONDataModelSerialization() DataModelSerialization {
	return jsonDataModelSerialization{}
}

func (s jsonDataModelSerialization) MarshalFeatureFlag(item FeatureFlag) ([]byte, error) {
	return json.Marshal(item)
}

func (s jsonDataModelSerialization) MarshalSegment(item Segment) ([]byte, error) {
	return json.Marshal(item)
}

func (s jsonDataModelSerialization) UnmarshalFeatureFlag(data []byte) (FeatureFlag, error) {
	var item FeatureFlag
	err := json.Unmarshal(data, &item)
	if err == nil {
		PreprocessFlag(&item)
	}
	return item, err
}

func (s jsonDataModelSerialization) UnmarshalSegment(data []byte) (Segment, error) {
	var item Segment
	err := json.Unmarshal(data, &item)
	if err == nil {
		PreprocessSegment(&item)
	}
	return item, err
}
