// Package ldmodel contains the JSON data model for feature flags and user segments.
//
// The exported fields of these types are part of the SDK's wire format, so application
// code should not modify them directly; flag and segment data is normally deserialized
// from SDK endpoints with the DataModelSerialization interface.
package ldmodel
