package ldmodel

// TargetContainsKey returns true if the specified user key is in this Target. It uses
// the precomputed lookup map when the target has been preprocessed.
func TargetContainsKey(t *Target, key string) bool {
	if t.preprocessed.valuesMap != nil {
		return t.preprocessed.valuesMap[key]
	}
	for _, value := range t.Values {
		if value == key {
			return true
		}
	}
	return false
}
