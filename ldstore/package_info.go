// Package ldstore defines the storage model for feature flag and segment data: the
// data kinds, versioned item descriptors with deleted-item placeholders, and an
// in-memory data store implementation.
package ldstore
