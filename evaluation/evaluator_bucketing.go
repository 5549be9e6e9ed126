package evaluation

import (
	"crypto/sha1" //nolint:gosec // SHA1 is used only for consistent hashing, not cryptography
	"encoding/hex"
	"io"
	"strconv"

	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
)

const (
	longScale = float32(0xFFFFFFFFFFFFFFF)
)

// Returns the index of the variation to use, or a negative number if the rollout data
// is invalid (in which case the evaluation fails with a MALFORMED_FLAG error).
func (es *evaluationScope) variationIndexForUser(r ldmodel.VariationOrRollout, key, salt string) int {
	if r.Variation != nil {
		return *r.Variation
	}
	if r.Rollout == nil || len(r.Rollout.Variations) == 0 {
		// This is an error (malformed flag); either Variation or Rollout must be non-nil.
		return -1
	}

	bucketBy := lduser.KeyAttribute
	if r.Rollout.BucketBy != nil {
		bucketBy = *r.Rollout.BucketBy
	}

	var bucket = es.bucketUser(key, bucketBy, salt)
	var sum float32

	for _, wv := range r.Rollout.Variations {
		sum += float32(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation
		}
	}

	// The user's bucket value was greater than or equal to the end of the last bucket.
	// This could happen due to a rounding error, or due to the fact that we are scaling
	// to 100000 rather than 99999, or the flag data could contain buckets that don't
	// actually add up to 100000. Rather than returning an error in this case (or changing
	// the scaling, which would potentially change the results for *all* users), we will
	// simply put the user in the last bucket.
	lastVariation := r.Rollout.Variations[len(r.Rollout.Variations)-1]
	return lastVariation.Variation
}

func (es *evaluationScope) bucketUser(key string, attr lduser.UserAttribute, salt string) float32 {
	uValue := es.user.GetAttribute(attr)
	idHash, ok := bucketableStringValue(uValue)
	if !ok {
		return 0
	}

	if secondary := es.user.GetSecondaryKey(); secondary.IsDefined() {
		idHash = idHash + "." + secondary.StringValue()
	}

	h := sha1.New() //nolint:gosec // just used for insecure hashing
	_, _ = io.WriteString(h, key+"."+salt+"."+idHash)
	hash := hex.EncodeToString(h.Sum(nil))[:15]

	intVal, _ := strconv.ParseInt(hash, 16, 64)

	return float32(intVal) / longScale
}

func bucketableStringValue(uValue ldvalue.Value) (string, bool) {
	if uValue.Type() == ldvalue.StringType {
		return uValue.StringValue(), true
	}
	if uValue.IsInt() {
		return strconv.Itoa(uValue.IntValue()), true
	}
	return "", false
}
