package evaluation

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
)

// Evaluator is the engine for evaluating feature flags.
type Evaluator interface {
	// Evaluate evaluates a feature flag for the specified user.
	//
	// The flag is passed by reference only for efficiency; the evaluator will never
	// modify any flag properties. Passing a nil flag will cause a panic.
	//
	// The evaluator does not know anything about analytics events; generating any
	// appropriate analytics events is the responsibility of the caller, who can also
	// provide a callback in prerequisiteFlagEventRecorder to be notified if any
	// additional evaluations were done due to prerequisites. The callback may be nil
	// if this information is not needed.
	Evaluate(
		flag *ldmodel.FeatureFlag,
		user lduser.User,
		prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
	) Result
}

// Result is the result of an evaluation, plus the status of any big segment data that
// was referenced during the evaluation.
type Result struct {
	// Detail is the value, variation index, and reason of the evaluation.
	Detail ldreason.EvaluationDetail

	// BigSegmentsStatus describes the validity of big segment information, if and only
	// if the evaluation involved at least one unbounded segment. Otherwise it is "".
	//
	// A big segment is a segment that is managed by a secondary membership store
	// rather than being sent to SDKs as part of the regular flag/segment data.
	BigSegmentsStatus BigSegmentsStatus
}

// BigSegmentsStatus defines the possible values of Result.BigSegmentsStatus.
type BigSegmentsStatus string

const (
	// BigSegmentsHealthy indicates that the big segment query involved in the flag
	// evaluation was successful, and the segment state is considered up to date.
	BigSegmentsHealthy BigSegmentsStatus = "HEALTHY"

	// BigSegmentsStale indicates that the big segment query involved in the flag
	// evaluation was successful, but the segment state may not be up to date.
	BigSegmentsStale BigSegmentsStatus = "STALE"

	// BigSegmentsNotConfigured indicates that big segments could not be queried for the
	// flag evaluation because the client configuration did not include a big segment
	// store, or the segment data itself was not usable.
	BigSegmentsNotConfigured BigSegmentsStatus = "NOT_CONFIGURED"

	// BigSegmentsStoreError indicates that the big segment query involved in the flag
	// evaluation failed, for instance due to a database error.
	BigSegmentsStoreError BigSegmentsStatus = "STORE_ERROR"
)

// DataProvider is an abstraction for querying feature flags and user segments from a
// data store. The caller provides an implementation of this interface to NewEvaluator.
//
// The flags or segments are returned by reference for efficiency only (on the
// assumption that the store would return a pointer in any case); the evaluator will
// never modify them.
type DataProvider interface {
	// GetFeatureFlag attempts to retrieve a feature flag from the store. It returns nil
	// if the flag does not exist.
	GetFeatureFlag(key string) *ldmodel.FeatureFlag

	// GetSegment attempts to retrieve a user segment from the store. It returns nil if
	// the segment does not exist.
	GetSegment(key string) *ldmodel.Segment
}

// BigSegmentProvider is an abstraction for querying big segment membership. The caller
// provides an implementation of this interface to NewEvaluatorWithBigSegments.
type BigSegmentProvider interface {
	// GetUserMembership queries all big segment memberships for a single user.
	//
	// If the returned membership is nil, or if it has no answer for a particular
	// segment, the evaluator falls back to evaluating the segment's rules.
	GetUserMembership(userKey string) (BigSegmentMembership, BigSegmentsStatus)
}

// BigSegmentMembership is the return type of BigSegmentProvider.GetUserMembership,
// representing the state of all big segments for a specific user.
type BigSegmentMembership interface {
	// CheckMembership tests whether the user is explicitly included or explicitly
	// excluded in the specified segment, identified by a segment reference in the
	// format produced by MakeBigSegmentRef.
	//
	// If there is an explicit inclusion or exclusion, the first return value is true
	// for inclusion or false for exclusion, and the second return value is true. If
	// the membership data has no answer for this segment, both return values are
	// false.
	CheckMembership(segmentRef string) (membership bool, found bool)
}

// PrerequisiteFlagEvent is the parameter data passed to PrerequisiteFlagEventRecorder.
type PrerequisiteFlagEvent struct {
	// TargetFlagKey is the key of the feature flag that had a prerequisite.
	TargetFlagKey string
	// User is the user that the flag was evaluated for.
	User lduser.User
	// PrerequisiteFlag is the prerequisite flag that was evaluated.
	PrerequisiteFlag *ldmodel.FeatureFlag
	// PrerequisiteResult is the result of evaluating the prerequisite flag.
	PrerequisiteResult ldreason.EvaluationDetail
}

// PrerequisiteFlagEventRecorder is a function that Evaluator.Evaluate calls (if non-nil)
// to tell the caller that an additional evaluation was done on a prerequisite flag.
type PrerequisiteFlagEventRecorder func(PrerequisiteFlagEvent)
