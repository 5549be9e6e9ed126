package bigsegments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashForUserKey(t *testing.T) {
	// base64-encoded SHA-256, matching what the synchronizer writes to the database
	assert.Equal(t, "72cBpXPyn4N6TqqlS8Tti37jEcoNhFzL9ZdG1jXkILE=", HashForUserKey("userkey"))
	assert.Equal(t, "LXEWQrcmsEQBYnyp+6wy9chTD7GQPMTbAiWHF5IaSIE=", HashForUserKey("x"))
}

func TestMembershipIncludesAndExcludes(t *testing.T) {
	m := NewMembershipFromSegmentRefs([]string{"seg1.g1"}, []string{"seg2.g1"})

	value, found := m.CheckMembership("seg1.g1")
	assert.True(t, found)
	assert.True(t, value)

	value, found = m.CheckMembership("seg2.g1")
	assert.True(t, found)
	assert.False(t, value)
}

func TestMembershipIncludeTakesPriorityOverExclude(t *testing.T) {
	m := NewMembershipFromSegmentRefs([]string{"seg1.g1"}, []string{"seg1.g1"})

	value, found := m.CheckMembership("seg1.g1")
	assert.True(t, found)
	assert.True(t, value)
}

func TestMembershipHasNoAnswerForUnknownSegmentRef(t *testing.T) {
	m := NewMembershipFromSegmentRefs([]string{"seg1.g1"}, nil)

	value, found := m.CheckMembership("seg2.g1")
	assert.False(t, found)
	assert.False(t, value)

	empty := NewMembershipFromSegmentRefs(nil, nil)
	value, found = empty.CheckMembership("seg1.g1")
	assert.False(t, found)
	assert.False(t, value)
}
