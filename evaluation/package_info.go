// Package evaluation contains the feature flag evaluation engine.
//
// Normal use of the Go SDK does not require referencing this package directly. It is
// used internally by the SDK, but is published and versioned separately so it can be
// used in other LaunchDarkly components without making the SDK versioning dependent
// on these internal APIs.
package evaluation
