package ldmodel

import "gopkg.in/launchdarkly/go-sdk-common.v2/lduser"

// Segment describes a group of users based on user keys and/or matching rules.
type Segment struct {
	// Key is the unique key of the user segment.
	Key string `json:"key"`
	// Included is a list of user keys that are always matched by this segment. For an
	// unbounded segment, this field is ignored; membership comes from a big segment
	// store instead.
	Included []string `json:"included"`
	// Excluded is a list of user keys that are never matched by this segment, unless
	// the key is also in Included.
	Excluded []string `json:"excluded"`
	// Salt is a randomized value assigned to the segment when it is created, used in
	// the same way as FeatureFlag.Salt.
	Salt string `json:"salt"`
	// Rules is a list of rules that may match a user, consulted only if the user's key
	// is in neither Included nor Excluded. The first matching rule wins.
	Rules []SegmentRule `json:"rules"`
	// Unbounded is true if this is a segment whose membership is too large to be
	// stored in the segment itself (a "big segment"). Membership for an unbounded
	// segment is looked up in a big segment store, with Rules applying only to users
	// not found there.
	Unbounded bool `json:"unbounded,omitempty"`
	// Generation is incremented whenever the membership data of an unbounded segment
	// is re-synchronized, so that stale membership data can be distinguished from the
	// current generation. It is unset for regular segments and for unbounded segments
	// created before generations existed; an unbounded segment without a generation
	// cannot be evaluated reliably.
	Generation *int `json:"generation,omitempty"`
	// Version is incremented every time the configuration of the segment changes.
	Version int `json:"version"`
	// Deleted is true if this is a placeholder (tombstone) for a deleted segment.
	Deleted bool `json:"deleted"`
	preprocessed segmentPreprocessedData
}

// GetKey returns the string key for the segment.
func (s *Segment) GetKey() string {
	return s.Key
}

// GetVersion returns the version of the segment.
func (s *Segment) GetVersion() int {
	return s.Version
}

// IsDeleted returns whether this is a deleted segment placeholder.
func (s *Segment) IsDeleted() bool {
	return s.Deleted
}

// SegmentRule describes a set of ANDed clauses defining segment membership, with an
// optional percentage rollout limiting the rule to a subset of matching users.
type SegmentRule struct {
	// ID is a randomized identifier assigned to each rule when it is created.
	ID string `json:"id,omitempty"`
	// Clauses is the list of conditions making up the rule. Every clause must match
	// for the rule to match.
	Clauses []Clause `json:"clauses"`
	// Weight, if non-nil, limits the rule to a percentage of the users that match its
	// clauses, as an integer from 0 (0%) to 100000 (100%).
	Weight *int `json:"weight,omitempty"`
	// BucketBy is the user attribute used to bucket users for Weight. If nil, the
	// user's key is used.
	BucketBy *lduser.UserAttribute `json:"bucketBy,omitempty"`
}
