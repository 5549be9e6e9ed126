package ldmodel

// SegmentIncludesOrExcludesKey tests whether the specified user key is in the include
// or exclude list of this Segment. If it is in either, the first return value is true
// for include or false for exclude, and the second return value is true. If it is in
// neither, both return values are false. Include wins over exclude.
func SegmentIncludesOrExcludesKey(s *Segment, userKey string) (included bool, found bool) {
	if s.preprocessed.includeMap == nil {
		for _, key := range s.Included {
			if userKey == key {
				return true, true
			}
		}
	} else if s.preprocessed.includeMap[userKey] {
		return true, true
	}

	if s.preprocessed.excludeMap == nil {
		for _, key := range s.Excluded {
			if userKey == key {
				return false, true
			}
		}
	} else if s.preprocessed.excludeMap[userKey] {
		return false, true
	}

	return false, false
}
