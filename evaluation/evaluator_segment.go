package evaluation

import (
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
)

func (es *evaluationScope) segmentContainsUser(s *ldmodel.Segment) bool {
	if s.Unbounded {
		return es.bigSegmentContainsUser(s)
	}

	// Check if the user is specifically included in or excluded from the segment by key
	if included, found := ldmodel.SegmentIncludesOrExcludesKey(s, es.user.GetKey()); found {
		return included
	}

	// Check if any of the segment rules match
	for i := range s.Rules {
		if es.segmentRuleMatchesUser(&s.Rules[i], s.Key, s.Salt) {
			return true
		}
	}

	return false
}

func (es *evaluationScope) segmentRuleMatchesUser(r *ldmodel.SegmentRule, key, salt string) bool {
	// Note that r is passed by reference only for efficiency; we do not modify it
	for i := range r.Clauses {
		if !ldmodel.ClauseMatchesUser(&r.Clauses[i], &es.user) {
			return false
		}
	}

	// If the Weight is absent, this rule matches
	if r.Weight == nil {
		return true
	}

	// All of the clauses are met. Check to see if the user buckets in
	bucketBy := lduser.KeyAttribute
	if r.BucketBy != nil {
		bucketBy = *r.BucketBy
	}

	// Check whether the user buckets into the segment
	bucket := es.bucketUser(key, bucketBy, salt)
	weight := float32(*r.Weight) / 100000.0

	return bucket < weight
}

func (es *evaluationScope) bigSegmentContainsUser(s *ldmodel.Segment) bool {
	if s.Generation == nil {
		// Big segment data for this segment is not usable until the segment has been
		// re-synchronized by a version of the membership synchronizer that sets the
		// generation. In this case we can't evaluate the segment and the overall
		// evaluation is flagged as not having configured big segments.
		es.bigSegmentsStatus = BigSegmentsNotConfigured
		return false
	}

	// A big segment store query is done at most once per evaluation, covering all of
	// the big segments the user belongs to; keep the result for any other unbounded
	// segments this evaluation references.
	if !es.bigSegmentsReferenced {
		es.bigSegmentsReferenced = true
		if es.owner.bigSegmentProvider == nil {
			es.bigSegmentsStatus = BigSegmentsNotConfigured
		} else {
			es.bigSegmentsMembership, es.bigSegmentsStatus =
				es.owner.bigSegmentProvider.GetUserMembership(es.user.GetKey())
		}
	}

	if es.bigSegmentsMembership != nil {
		if membership, found := es.bigSegmentsMembership.CheckMembership(MakeBigSegmentRef(s)); found {
			return membership
		}
	}

	// The store has no explicit inclusion or exclusion for this user, so fall back to
	// the segment's regular rules. Included and Excluded are not used for big segments.
	for i := range s.Rules {
		if es.segmentRuleMatchesUser(&s.Rules[i], s.Key, s.Salt) {
			return true
		}
	}
	return false
}

// MakeBigSegmentRef produces the key by which membership of an unbounded segment is
// identified in a big segment store. This includes the segment's generation so that
// membership data from before the segment was last re-synchronized is not used.
func MakeBigSegmentRef(s *ldmodel.Segment) string {
	if s.Generation == nil {
		return ""
	}
	return fmt.Sprintf("%s.g%d", s.Key, *s.Generation)
}
