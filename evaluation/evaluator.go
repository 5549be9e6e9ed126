package evaluation

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation/ldmodel"
)

type evaluator struct {
	dataProvider       DataProvider
	bigSegmentProvider BigSegmentProvider
}

// NewEvaluator creates an Evaluator, specifying a DataProvider that it will use if it
// needs to query additional feature flags or user segments during an evaluation.
//
// An Evaluator created this way reports BigSegmentsNotConfigured if an evaluation
// references an unbounded segment; use NewEvaluatorWithBigSegments to enable those.
func NewEvaluator(dataProvider DataProvider) Evaluator {
	return &evaluator{dataProvider: dataProvider}
}

// NewEvaluatorWithBigSegments creates an Evaluator that can also query big segment
// membership through the specified provider.
func NewEvaluatorWithBigSegments(
	dataProvider DataProvider,
	bigSegmentProvider BigSegmentProvider,
) Evaluator {
	return &evaluator{dataProvider: dataProvider, bigSegmentProvider: bigSegmentProvider}
}

// Mutable state for a single call to Evaluate. Big segment membership is queried at
// most once per evaluation, no matter how many unbounded segments are referenced, and
// the prerequisite chain is tracked here to detect circular references.
type evaluationScope struct {
	owner                         *evaluator
	flag                          *ldmodel.FeatureFlag
	user                          lduser.User
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder

	prerequisiteChain []string
	prerequisiteCycle bool

	bigSegmentsReferenced bool
	bigSegmentsMembership BigSegmentMembership
	bigSegmentsStatus     BigSegmentsStatus
}

// Implementation of the Evaluator interface.
func (e *evaluator) Evaluate(
	flag *ldmodel.FeatureFlag,
	user lduser.User,
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
) Result {
	if user.GetKey() == "" {
		return Result{Detail: ldreason.NewEvaluationDetailForError(
			ldreason.EvalErrorUserNotSpecified, ldvalue.Null())}
	}

	es := evaluationScope{
		owner:                         e,
		flag:                          flag,
		user:                          user,
		prerequisiteFlagEventRecorder: prerequisiteFlagEventRecorder,
	}
	detail := es.evaluate()
	return Result{Detail: detail, BigSegmentsStatus: es.bigSegmentsStatus}
}

func (es *evaluationScope) evaluate() ldreason.EvaluationDetail {
	if !es.flag.On {
		return es.getOffValue(ldreason.NewEvalReasonOff())
	}

	prereqErrorReason, malformed, ok := es.checkPrerequisites()
	if malformed {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	if !ok {
		return es.getOffValue(prereqErrorReason)
	}

	// Check to see if any user targets match.
	for i := range es.flag.Targets {
		target := &es.flag.Targets[i]
		if ldmodel.TargetContainsKey(target, es.user.GetKey()) {
			return es.getVariation(target.Variation, ldreason.NewEvalReasonTargetMatch())
		}
	}

	// Now walk through the rules to see if any match.
	for ruleIndex := range es.flag.Rules {
		rule := &es.flag.Rules[ruleIndex]
		if es.ruleMatchesUser(rule) {
			reason := ldreason.NewEvalReasonRuleMatch(ruleIndex, rule.ID)
			return es.getValueForVariationOrRollout(rule.VariationOrRollout, reason)
		}
	}

	return es.getValueForVariationOrRollout(es.flag.Fallthrough, ldreason.NewEvalReasonFallthrough())
}

// Evaluates a prerequisite flag within the same scope, so that the prerequisite chain
// and any cached big segment state carry over.
func (es *evaluationScope) evaluatePrerequisiteFlag(flag *ldmodel.FeatureFlag) ldreason.EvaluationDetail {
	saved := es.flag
	es.flag = flag
	detail := es.evaluate()
	es.flag = saved
	return detail
}

// Returns an empty reason and true if all prerequisites are satisfied; otherwise, a
// PrerequisiteFailed reason and false, meaning the off value should be returned. The
// middle return value is true only if a circular prerequisite reference was detected,
// which invalidates the whole evaluation.
func (es *evaluationScope) checkPrerequisites() (ldreason.EvaluationReason, bool, bool) {
	if len(es.flag.Prerequisites) == 0 {
		return ldreason.EvaluationReason{}, false, true
	}

	es.prerequisiteChain = append(es.prerequisiteChain, es.flag.Key)
	defer func() {
		es.prerequisiteChain = es.prerequisiteChain[:len(es.prerequisiteChain)-1]
	}()

	for _, prereq := range es.flag.Prerequisites {
		for _, ancestorKey := range es.prerequisiteChain {
			if prereq.Key == ancestorKey {
				// A circular reference would recurse indefinitely, so the flag data is unusable.
				es.prerequisiteCycle = true
				return ldreason.EvaluationReason{}, true, false
			}
		}

		prereqFeatureFlag := es.owner.dataProvider.GetFeatureFlag(prereq.Key)
		if prereqFeatureFlag == nil {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), false, false
		}
		prereqOK := true

		prereqResult := es.evaluatePrerequisiteFlag(prereqFeatureFlag)
		if es.prerequisiteCycle {
			return ldreason.EvaluationReason{}, true, false
		}
		// Any other error in the prerequisite evaluation, like an evaluation that hit bad
		// flag data, simply means the prerequisite was not met.
		if !prereqFeatureFlag.On || prereqResult.IsDefaultValue() ||
			prereqResult.VariationIndex.IntValue() != prereq.Variation {
			// Note that if the prerequisite flag is off, it does not matter what its off
			// variation is - the prerequisite is not satisfied.
			prereqOK = false
		}
		if es.prerequisiteFlagEventRecorder != nil {
			event := PrerequisiteFlagEvent{es.flag.Key, es.user, prereqFeatureFlag, prereqResult}
			es.prerequisiteFlagEventRecorder(event)
		}
		if !prereqOK {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), false, false
		}
	}
	return ldreason.EvaluationReason{}, false, true
}

func (es *evaluationScope) getVariation(index int, reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if index < 0 || index >= len(es.flag.Variations) {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	return ldreason.NewEvaluationDetail(es.flag.Variations[index], index, reason)
}

func (es *evaluationScope) getOffValue(reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if es.flag.OffVariation == nil {
		return ldreason.EvaluationDetail{Reason: reason}
	}
	return es.getVariation(*es.flag.OffVariation, reason)
}

func (es *evaluationScope) getValueForVariationOrRollout(
	vr ldmodel.VariationOrRollout,
	reason ldreason.EvaluationReason,
) ldreason.EvaluationDetail {
	index := es.variationIndexForUser(vr, es.flag.Key, es.flag.Salt)
	if index < 0 {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	return es.getVariation(index, reason)
}

func (es *evaluationScope) ruleMatchesUser(rule *ldmodel.FlagRule) bool {
	// Note that rule is passed by reference only for efficiency; we do not modify it
	for i := range rule.Clauses {
		if !es.clauseMatchesUser(&rule.Clauses[i]) {
			return false
		}
	}
	return true
}

func (es *evaluationScope) clauseMatchesUser(clause *ldmodel.Clause) bool {
	// In the case of a segment match operator, we check if the user is in any of the segments,
	// and possibly negate
	if clause.Op == ldmodel.OperatorSegmentMatch {
		for _, value := range clause.Values {
			if value.Type() == ldvalue.StringType {
				if segment := es.owner.dataProvider.GetSegment(value.StringValue()); segment != nil {
					if es.segmentContainsUser(segment) {
						return !clause.Negate // match - true unless negated
					}
				}
			}
		}
		return clause.Negate // non-match - false unless negated
	}

	return ldmodel.ClauseMatchesUser(clause, &es.user)
}
