package ldstore

import (
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
)

// DataKind identifies one of the kinds of data model object that can be kept in a
// DataStore: feature flags or segments. Implementations are comparable, so a DataKind
// can be used as a map key.
type DataKind interface {
	// GetName returns a case-sensitive short identifier for the kind ("features" or
	// "segments"), also used as the path component for these items in stream data.
	GetName() string
	// Deserialize translates a serialized item representation into an ItemDescriptor.
	// A tombstone for a deleted item produces a descriptor with a nil Item.
	Deserialize(data []byte) (ItemDescriptor, error)
	// String is used simply for logging or debugging.
	String() string
}

// DataKindFeatures returns the DataKind instance corresponding to feature flag data.
func DataKindFeatures() DataKind {
	return featureFlagStoreDataKind{}
}

// DataKindSegments returns the DataKind instance corresponding to segment data.
func DataKindSegments() DataKind {
	return segmentStoreDataKind{}
}

// AllDataKinds returns all the supported DataKinds, in the order in which collections
// should be initialized: segments first, since flags may refer to them.
func AllDataKinds() []DataKind {
	return []DataKind{DataKindSegments(), DataKindFeatures()}
}

type featureFlagStoreDataKind struct{}

func (fk featureFlagStoreDataKind) GetName() string {
	return "features"
}

func (fk featureFlagStoreDataKind) Deserialize(data []byte) (ItemDescriptor, error) {
	flag, err := ldmodel.NewJSONDataModelSerialization().UnmarshalFeatureFlag(data)
	if err != nil {
		return ItemDescriptor{}.NotFound(), err
	}
	return flagDescriptor(flag), nil
}

func (fk featureFlagStoreDataKind) String() string {
	return fk.GetName()
}

type segmentStoreDataKind struct{}

func (sk segmentStoreDataKind) GetName() string {
	return "segments"
}

func (sk segmentStoreDataKind) Deserialize(data []byte) (ItemDescriptor, error) {
	segment, err := ldmodel.NewJSONDataModelSerialization().UnmarshalSegment(data)
	if err != nil {
		return ItemDescriptor{}.NotFound(), err
	}
	return segmentDescriptor(segment), nil
}

func (sk segmentStoreDataKind) String() string {
	return sk.GetName()
}

func flagDescriptor(flag ldmodel.FeatureFlag) ItemDescriptor {
	if flag.Deleted {
		return ItemDescriptor{Version: flag.Version, Item: nil}
	}
	return ItemDescriptor{Version: flag.Version, Item: &flag}
}

func segmentDescriptor(segment ldmodel.Segment) ItemDescriptor {
	if segment.Deleted {
		return ItemDescriptor{Version: segment.Version, Item: nil}
	}
	return ItemDescriptor{Version: segment.Version, Item: &segment}
}

// DataKindByName returns the DataKind with the specified name, or an error if the name
// does not match a known kind.
func DataKindByName(name string) (DataKind, error) {
	for _, kind := range AllDataKinds() {
		if kind.GetName() == name {
			return kind, nil
		}
	}
	return nil, fmt.Errorf("unknown data kind %q", name)
}
