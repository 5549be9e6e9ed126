package ldmodel

import (
	"regexp"
	"strings"
	"time"

	"github.com/blang/semver"

	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ClauseMatchesUser returns true if the user matches the conditions in this clause.
//
// This cannot be used when the clause's operator is OperatorSegmentMatch, since that
// requires data from outside the clause; in that case it simply returns false.
//
// This piece of evaluation logic lives in ldmodel, rather than inside the evaluator,
// so that it can use the precomputed data stored in the model objects. The clause and
// user are passed by reference for efficiency only and are not modified; passing nil
// will cause a panic.
func ClauseMatchesUser(c *Clause, user *lduser.User) bool {
	uValue := user.GetAttribute(c.Attribute)
	if uValue.IsNull() {
		// A null or missing attribute is an automatic non-match, before Negate applies.
		return false
	}
	matchFn := operatorFn(c.Op)

	// An array-valued user attribute matches if any element matches.
	if uValue.Type() == ldvalue.ArrayType {
		for i := 0; i < uValue.Count(); i++ {
			if matchAny(c.Op, matchFn, uValue.GetByIndex(i), c.Values, c.preprocessed) {
				return maybeNegate(c.Negate, true)
			}
		}
		return maybeNegate(c.Negate, false)
	}

	return maybeNegate(c.Negate, matchAny(c.Op, matchFn, uValue, c.Values, c.preprocessed))
}

func maybeNegate(negate, result bool) bool {
	if negate {
		return !result
	}
	return result
}

func matchAny(
	op Operator,
	fn opFn,
	value ldvalue.Value,
	values []ldvalue.Value,
	preprocessed clausePreprocessedData,
) bool {
	if op == OperatorIn && preprocessed.valuesMap != nil {
		if key := asPrimitiveValueKey(value); key.isValid() {
			return preprocessed.valuesMap[key]
		}
	}
	preValues := preprocessed.values
	for i, v := range values {
		var p clausePreprocessedValue
		if preValues != nil {
			p = preValues[i] // always the same length as values
		}
		if fn(value, v, p) {
			return true
		}
	}
	return false
}

type opFn func(userValue ldvalue.Value, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool

var allOps = map[Operator]opFn{ //nolint:gochecknoglobals
	OperatorIn:                 operatorInFn,
	OperatorEndsWith:           operatorEndsWithFn,
	OperatorStartsWith:         operatorStartsWithFn,
	OperatorMatches:            operatorMatchesFn,
	OperatorContains:           operatorContainsFn,
	OperatorLessThan:           operatorLessThanFn,
	OperatorLessThanOrEqual:    operatorLessThanOrEqualFn,
	OperatorGreaterThan:        operatorGreaterThanFn,
	OperatorGreaterThanOrEqual: operatorGreaterThanOrEqualFn,
	OperatorBefore:             operatorBeforeFn,
	OperatorAfter:              operatorAfterFn,
	OperatorSemVerEqual:        operatorSemVerEqualFn,
	OperatorSemVerLessThan:     operatorSemVerLessThanFn,
	OperatorSemVerGreaterThan:  operatorSemVerGreaterThanFn,
}

// An unrecognized operator never matches anything; it is not an error.
func operatorFn(operator Operator) opFn {
	if op, ok := allOps[operator]; ok {
		return op
	}
	return operatorNoneFn
}

func operatorInFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return uValue.Equal(cValue)
}

func stringOperator(uValue, cValue ldvalue.Value, fn func(string, string) bool) bool {
	if uValue.Type() == ldvalue.StringType && cValue.Type() == ldvalue.StringType {
		return fn(uValue.StringValue(), cValue.StringValue())
	}
	return false
}

func operatorStartsWithFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return stringOperator(uValue, cValue, strings.HasPrefix)
}

func operatorEndsWithFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return stringOperator(uValue, cValue, strings.HasSuffix)
}

func operatorMatchesFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	if preprocessed.computed {
		// The clause value was already compiled (or failed to compile) as a regex.
		if uValue.Type() != ldvalue.StringType || !preprocessed.valid {
			return false
		}
		return preprocessed.parsedRegexp.MatchString(uValue.StringValue())
	}
	return stringOperator(uValue, cValue, func(u string, c string) bool {
		if matched, err := regexp.MatchString(c, u); err == nil {
			return matched
		}
		return false
	})
}

func operatorContainsFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return stringOperator(uValue, cValue, strings.Contains)
}

func numericOperator(uValue, cValue ldvalue.Value, fn func(float64, float64) bool) bool {
	if uValue.IsNumber() && cValue.IsNumber() {
		return fn(uValue.Float64Value(), cValue.Float64Value())
	}
	return false
}

func operatorLessThanFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return numericOperator(uValue, cValue, func(u, c float64) bool { return u < c })
}

func operatorLessThanOrEqualFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return numericOperator(uValue, cValue, func(u, c float64) bool { return u <= c })
}

func operatorGreaterThanFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return numericOperator(uValue, cValue, func(u, c float64) bool { return u > c })
}

func operatorGreaterThanOrEqualFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return numericOperator(uValue, cValue, func(u, c float64) bool { return u >= c })
}

func dateOperator(
	uValue, cValue ldvalue.Value,
	preprocessed clausePreprocessedValue,
	fn func(time.Time, time.Time) bool,
) bool {
	if preprocessed.computed {
		if preprocessed.valid {
			if uTime, ok := parseDateTime(uValue); ok {
				return fn(uTime, preprocessed.parsedTime)
			}
		}
		return false
	}
	if uTime, ok := parseDateTime(uValue); ok {
		if cTime, ok := parseDateTime(cValue); ok {
			return fn(uTime, cTime)
		}
	}
	return false
}

func operatorBeforeFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return dateOperator(uValue, cValue, preprocessed, time.Time.Before)
}

func operatorAfterFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return dateOperator(uValue, cValue, preprocessed, time.Time.After)
}

func semVerOperator(
	uValue, cValue ldvalue.Value,
	preprocessed clausePreprocessedValue,
	fn func(semver.Version, semver.Version) bool,
) bool {
	if preprocessed.computed {
		if preprocessed.valid {
			if uVer, ok := parseSemVer(uValue); ok {
				return fn(uVer, preprocessed.parsedSemver)
			}
		}
		return false
	}
	if u, ok := parseSemVer(uValue); ok {
		if c, ok := parseSemVer(cValue); ok {
			return fn(u, c)
		}
	}
	return false
}

func operatorSemVerEqualFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return semVerOperator(uValue, cValue, preprocessed, semver.Version.Equals)
}

func operatorSemVerLessThanFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return semVerOperator(uValue, cValue, preprocessed, semver.Version.LT)
}

func operatorSemVerGreaterThanFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return semVerOperator(uValue, cValue, preprocessed, semver.Version.GT)
}

func operatorNoneFn(uValue, cValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return false
}
