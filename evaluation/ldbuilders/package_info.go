// Package ldbuilders contains helpers for constructing the data model objects defined
// by ldmodel.
//
// This is used mainly in test code, to avoid unnecessary dependencies on implementation
// details of the data model (such as the use of pointers for optional values). Builders
// also take care of the required preprocessing step, so an object that came from a
// builder behaves the same as one that came from deserialization.
package ldbuilders
