package ldmodel

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// FeatureFlag describes an individual feature flag.
type FeatureFlag struct {
	// Key is the unique string key of the feature flag.
	Key string `json:"key"`
	// On is true if targeting is turned on for this flag.
	//
	// If On is false, the evaluator always uses OffVariation and ignores all other fields.
	On bool `json:"on"`
	// Prerequisites is a list of flag conditions that must be satisfied before this
	// flag's own targeting is consulted. If any prerequisite is not met, the flag
	// behaves as if targeting were turned off.
	Prerequisites []Prerequisite `json:"prerequisites"`
	// Targets contains sets of individually targeted users. Targets take precedence
	// over Rules, and are ignored when targeting is turned off.
	Targets []Target `json:"targets"`
	// Rules is a list of rules that may match a user. The first matching rule wins;
	// rules are ignored when targeting is turned off.
	Rules []FlagRule `json:"rules"`
	// Fallthrough defines the flag's behavior if targeting is on but the user is not
	// matched by any Target or Rule.
	Fallthrough VariationOrRollout `json:"fallthrough"`
	// OffVariation is the variation index to use when targeting is off. If nil, the
	// evaluation produces no variation index and a null value.
	OffVariation *int `json:"offVariation"`
	// Variations is the list of all allowable variations for this flag. Variation
	// indexes elsewhere in the flag are zero-based indexes into this list.
	Variations []ldvalue.Value `json:"variations"`
	// ClientSide is true if this flag is available to client-side SDKs.
	ClientSide bool `json:"clientSide"`
	// Salt is a randomized value assigned to the flag when it is created, used to keep
	// percentage rollouts consistent within a flag but not predictable across flags.
	Salt string `json:"salt"`
	// TrackEvents is true if full event data should be sent for each evaluation of
	// this flag, rather than only the aggregate counts in a summary event. The event
	// pipeline implements that behavior; this is only the data model for it.
	TrackEvents bool `json:"trackEvents"`
	// TrackEventsFallthrough is true if full event data should be sent for any
	// evaluation where targeting was on and the user fell through to the default rule.
	TrackEventsFallthrough bool `json:"trackEventsFallthrough"`
	// DebugEventsUntilDate, if non-nil, is a Unix millisecond timestamp until which
	// the event pipeline should emit debug events for this flag.
	DebugEventsUntilDate *ldtime.UnixMillisecondTime `json:"debugEventsUntilDate"`
	// Version is incremented every time the configuration of the flag changes.
	Version int `json:"version"`
	// Deleted is true if this is a placeholder (tombstone) for a deleted flag rather
	// than a real flag. Only data store implementations care about this.
	Deleted bool `json:"deleted"`
}

// GetKey returns the string key for the flag.
func (f *FeatureFlag) GetKey() string {
	return f.Key
}

// GetVersion returns the version of the flag.
func (f *FeatureFlag) GetVersion() int {
	return f.Version
}

// IsFullEventTrackingEnabled returns true if the flag has been configured to always
// generate detailed event data. It implements the event pipeline's FlagEventProperties
// interface.
func (f *FeatureFlag) IsFullEventTrackingEnabled() bool {
	return f.TrackEvents
}

// GetDebugEventsUntilDate returns zero normally, but if event debugging has been
// temporarily enabled for the flag, it returns the time at which debugging mode should
// expire. It implements the event pipeline's FlagEventProperties interface.
func (f *FeatureFlag) GetDebugEventsUntilDate() ldtime.UnixMillisecondTime {
	if f.DebugEventsUntilDate == nil {
		return 0
	}
	return *f.DebugEventsUntilDate
}

// IsExperimentationEnabled returns true if, based on the reason for a specific
// evaluation of this flag, full event data should be generated for it and the reason
// should always be included. This is the case when the flag's default rule or the
// matched rule is part of an experiment.
func (f *FeatureFlag) IsExperimentationEnabled(reason ldreason.EvaluationReason) bool {
	switch reason.GetKind() {
	case ldreason.EvalReasonFallthrough:
		return f.TrackEventsFallthrough
	case ldreason.EvalReasonRuleMatch:
		i := reason.GetRuleIndex()
		if i >= 0 && i < len(f.Rules) {
			return f.Rules[i].TrackEvents
		}
	}
	return false
}

// FlagRule describes a single rule within a feature flag: a set of ANDed clauses plus
// either a fixed variation or a rollout for users that match all of them.
type FlagRule struct {
	VariationOrRollout
	// ID is a randomized identifier assigned to each rule when it is created. It is
	// reported in RULE_MATCH evaluation reasons.
	ID string `json:"id,omitempty"`
	// Clauses is the list of conditions making up the rule. Every clause must match
	// for the rule to match.
	Clauses []Clause `json:"clauses"`
	// TrackEvents is true if full event data should be sent for any evaluation that
	// matched this rule.
	TrackEvents bool `json:"trackEvents"`
}

// VariationOrRollout describes either a fixed variation or a percentage rollout.
// Exactly one of the two fields should be non-nil.
type VariationOrRollout struct {
	// Variation, if non-nil, is the index of the variation to return.
	Variation *int `json:"variation,omitempty"`
	// Rollout, if non-nil, is a percentage rollout used instead of a fixed variation.
	Rollout *Rollout `json:"rollout,omitempty"`
}

// Rollout describes how users are bucketed into variations during a percentage rollout.
type Rollout struct {
	// Variations lists the variations in the rollout and what proportion of users
	// goes into each. The weights should add up to 100000 (100%); any shortfall
	// effectively goes to the last bucket.
	Variations []WeightedVariation `json:"variations"`
	// BucketBy is the user attribute whose value distinguishes users in the rollout.
	// If nil, the user's key is used. The user's secondary key, if any, always also
	// contributes to the bucket.
	BucketBy *lduser.UserAttribute `json:"bucketBy,omitempty"`
}

// Clause describes an individual test within a FlagRule or SegmentRule.
type Clause struct {
	// Attribute is the user attribute being tested. If the user's value for this
	// attribute is a JSON array, the test is repeated for each element until one
	// matches. If the user has no value for the attribute, the clause is a non-match
	// regardless of Negate.
	Attribute lduser.UserAttribute `json:"attribute"`
	// Op is the type of test to perform.
	Op Operator `json:"op"`
	// Values is the list of values to compare against, interpreted as an OR. For
	// OperatorSegmentMatch there should be a single string value, the segment key.
	Values []ldvalue.Value `json:"values"`
	// preprocessed is populated by PreprocessFlag/PreprocessSegment to speed up
	// matching for operators like regexes.
	preprocessed clausePreprocessedData
	// Negate inverts the result of the test, except in the missing-attribute case.
	Negate bool `json:"negate"`
}

// WeightedVariation describes the fraction of users who will receive a specific variation.
type WeightedVariation struct {
	// Variation is the index of the variation to return for users in this bucket.
	Variation int `json:"variation"`
	// Weight is the proportion of users in this bucket, as an integer from 0 to 100000.
	Weight int `json:"weight"`
}

// Target describes a set of user keys that receive a specific variation.
type Target struct {
	// Values is the set of user keys in this target.
	Values []string `json:"values"`
	// Variation is the index of the variation to return for these users.
	Variation int `json:"variation"`
	preprocessed targetPreprocessedData
}

// Prerequisite describes a requirement that another feature flag return a specific
// variation. The condition is met only if the prerequisite flag has targeting on and
// returns that variation; an off flag never satisfies a prerequisite, even if its off
// variation happens to be the required one.
type Prerequisite struct {
	// Key is the key of the prerequisite flag.
	Key string `json:"key"`
	// Variation is the variation index the prerequisite flag must return.
	Variation int `json:"variation"`
}
