package bigsegments

import (
	"crypto/sha256"
	"encoding/base64"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation"
)

// HashForUserKey computes the hash that big segment stores use to identify a user.
// The database never contains raw user keys.
func HashForUserKey(key string) string {
	hashBytes := sha256.Sum256([]byte(key))
	return base64.StdEncoding.EncodeToString(hashBytes[:])
}

type membershipMap map[string]bool

// NewMembershipFromSegmentRefs creates an evaluation.BigSegmentMembership from the raw
// lists of segment references that a user is included in or excluded from. An inclusion
// takes priority over an exclusion for the same segment reference.
//
// The returned value is immutable and safe to share between goroutines.
func NewMembershipFromSegmentRefs(includedRefs, excludedRefs []string) evaluation.BigSegmentMembership {
	if len(includedRefs) == 0 && len(excludedRefs) == 0 {
		return membershipMap(nil)
	}
	m := make(membershipMap, len(includedRefs)+len(excludedRefs))
	for _, ref := range excludedRefs {
		m[ref] = false
	}
	for _, ref := range includedRefs {
		m[ref] = true
	}
	return m
}

func (m membershipMap) CheckMembership(segmentRef string) (bool, bool) {
	value, found := m[segmentRef]
	return value, found
}
