package evaluation

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldbuilders"
	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
)

var (
	fallthroughValue = ldvalue.String("fall")
	offValue         = ldvalue.String("off")
	onValue          = ldvalue.String("on")
)

var flagUser = lduser.NewUser("x")

// A DataProvider implementation with a fixed set of flags and segments.
type simpleDataProvider struct {
	flags    map[string]*ldmodel.FeatureFlag
	segments map[string]*ldmodel.Segment
}

func basicDataProvider() *simpleDataProvider {
	return &simpleDataProvider{
		flags:    make(map[string]*ldmodel.FeatureFlag),
		segments: make(map[string]*ldmodel.Segment),
	}
}

func (s *simpleDataProvider) GetFeatureFlag(key string) *ldmodel.FeatureFlag {
	return s.flags[key]
}

func (s *simpleDataProvider) GetSegment(key string) *ldmodel.Segment {
	return s.segments[key]
}

func (s *simpleDataProvider) withStoredFlags(flags ...ldmodel.FeatureFlag) *simpleDataProvider {
	for i := range flags {
		f := flags[i]
		s.flags[f.Key] = &f
	}
	return s
}

func (s *simpleDataProvider) withStoredSegments(segments ...ldmodel.Segment) *simpleDataProvider {
	for i := range segments {
		seg := segments[i]
		s.segments[seg.Key] = &seg
	}
	return s
}

// A BigSegmentProvider implementation returning a fixed status, with explicit
// per-segment-reference membership answers.
type simpleBigSegmentProvider struct {
	status          BigSegmentsStatus
	membership      map[string]bool
	membershipIsNil bool
	queryCount      int
	lastUserKey     string
}

func basicBigSegmentProvider() *simpleBigSegmentProvider {
	return &simpleBigSegmentProvider{status: BigSegmentsHealthy}
}

func (s *simpleBigSegmentProvider) withStatus(status BigSegmentsStatus) *simpleBigSegmentProvider {
	s.status = status
	return s
}

func (s *simpleBigSegmentProvider) withNilMembership() *simpleBigSegmentProvider {
	s.membershipIsNil = true
	return s
}

func (s *simpleBigSegmentProvider) withMembership(
	segment ldmodel.Segment,
	included bool,
) *simpleBigSegmentProvider {
	if s.membership == nil {
		s.membership = make(map[string]bool)
	}
	s.membership[MakeBigSegmentRef(&segment)] = included
	return s
}

func (s *simpleBigSegmentProvider) GetUserMembership(
	userKey string,
) (BigSegmentMembership, BigSegmentsStatus) {
	s.queryCount++
	s.lastUserKey = userKey
	if s.membershipIsNil {
		return nil, s.status
	}
	return simpleMembership{values: s.membership}, s.status
}

type simpleMembership struct {
	values map[string]bool
}

func (m simpleMembership) CheckMembership(segmentRef string) (bool, bool) {
	value, found := m.values[segmentRef]
	return value, found
}

// A flag that returns onValue if the user's key matches a rule clause, with
// fallthroughValue and offValue in the other variations.
func makeFlagToMatchUser(user lduser.User, vr ldmodel.VariationOrRollout) ldmodel.FeatureFlag {
	return ldbuilders.NewFlagBuilder("feature").
		On(true).
		OffVariation(1).
		FallthroughVariation(0).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule-id").VariationOrRollout(vr).Clauses(
			ldbuilders.Clause(lduser.KeyAttribute, ldmodel.OperatorIn, ldvalue.String(user.GetKey())),
		)).
		Variations(fallthroughValue, offValue, onValue).
		Build()
}

func makeClauseToMatchUser(user lduser.User) ldmodel.Clause {
	return ldbuilders.Clause(lduser.KeyAttribute, ldmodel.OperatorIn, ldvalue.String(user.GetKey()))
}

func makeClauseToNotMatchUser(user lduser.User) ldmodel.Clause {
	return ldbuilders.Clause(lduser.KeyAttribute, ldmodel.OperatorIn, ldvalue.String("not-"+user.GetKey()))
}

// A boolean flag with a single rule containing the specified clauses; variation 1 (true)
// if the rule matches, otherwise fallthrough to variation 0 (false).
func booleanFlagWithClauses(clauses ...ldmodel.Clause) ldmodel.FeatureFlag {
	return ldbuilders.NewFlagBuilder("feature").
		On(true).
		FallthroughVariation(0).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule-id").Variation(1).Clauses(clauses...)).
		Variations(ldvalue.Bool(false), ldvalue.Bool(true)).
		Build()
}

func booleanFlagWithSegmentMatch(segmentKeys ...string) ldmodel.FeatureFlag {
	return booleanFlagWithClauses(ldbuilders.SegmentMatchClause(segmentKeys...))
}
