package ldmodel

// Operator describes the type of test performed by a clause.
type Operator string

// All clause operators defined by the data model.
const (
	// OperatorIn matches a user value that is equal to any of the clause values.
	OperatorIn Operator = "in"
	// OperatorEndsWith matches a string that ends with any of the clause values.
	OperatorEndsWith Operator = "endsWith"
	// OperatorStartsWith matches a string that starts with any of the clause values.
	OperatorStartsWith Operator = "startsWith"
	// OperatorMatches matches a string against a regular expression.
	OperatorMatches Operator = "matches"
	// OperatorContains matches a string that contains any of the clause values.
	OperatorContains Operator = "contains"
	// OperatorLessThan matches a number less than the clause value.
	OperatorLessThan Operator = "lessThan"
	// OperatorLessThanOrEqual matches a number less than or equal to the clause value.
	OperatorLessThanOrEqual Operator = "lessThanOrEqual"
	// OperatorGreaterThan matches a number greater than the clause value.
	OperatorGreaterThan Operator = "greaterThan"
	// OperatorGreaterThanOrEqual matches a number greater than or equal to the clause value.
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	// OperatorBefore matches a date/time earlier than the clause value.
	OperatorBefore Operator = "before"
	// OperatorAfter matches a date/time later than the clause value.
	OperatorAfter Operator = "after"
	// OperatorSegmentMatch matches a user who is in the specified user segment. This
	// operator is handled by the evaluator rather than by clause matching, since it
	// requires data from outside the clause.
	OperatorSegmentMatch Operator = "segmentMatch"
	// OperatorSemVerEqual matches a semantic version equal to the clause value.
	OperatorSemVerEqual Operator = "semVerEqual"
	// OperatorSemVerLessThan matches a semantic version lower than the clause value.
	OperatorSemVerLessThan Operator = "semVerLessThan"
	// OperatorSemVerGreaterThan matches a semantic version higher than the clause value.
	OperatorSemVerGreaterThan Operator = "semVerGreaterThan"
)
