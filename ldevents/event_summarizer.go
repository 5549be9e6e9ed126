package ldevents

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Manages the summary counters for feature request events. A summary collapses any
// number of evaluations of the same (flag key, version, variation) into a single counter
// with the common result value. The methods of this type are deliberately not
// thread-safe; they are always called from the dispatcher goroutine.
type eventSummarizer struct {
	eventsState eventSummary
}

type eventSummary struct {
	counters  map[counterKey]*counterValue
	startDate ldtime.UnixMillisecondTime
	endDate   ldtime.UnixMillisecondTime
}

// Variation and version use the NoVariation/NoVersion sentinels when unknown, so that
// evaluations with an unknown version or variation are grouped separately from any real
// version or variation index.
type counterKey struct {
	key       string
	variation int
	version   int
}

type counterValue struct {
	count       int
	flagValue   ldvalue.Value
	flagDefault ldvalue.Value
}

func newEventSummarizer() eventSummarizer {
	return eventSummarizer{eventsState: newEventSummary()}
}

func newEventSummary() eventSummary {
	return eventSummary{
		counters: make(map[counterKey]*counterValue),
	}
}

func (s *eventSummary) hasCounters() bool {
	return len(s.counters) > 0
}

// Adds this event to the counters, if it is a kind of event that is counted. Events
// other than feature requests are ignored; debug copies are also never summarized twice.
func (s *eventSummarizer) summarizeEvent(evt Event) {
	fe, ok := evt.(FeatureRequestEvent)
	if !ok {
		return
	}

	key := counterKey{key: fe.Key, variation: fe.Variation, version: fe.Version}
	if value, ok := s.eventsState.counters[key]; ok {
		value.count++
	} else {
		s.eventsState.counters[key] = &counterValue{
			count:       1,
			flagValue:   fe.Value,
			flagDefault: fe.Default,
		}
	}

	creationDate := fe.CreationDate
	if s.eventsState.startDate == 0 || creationDate < s.eventsState.startDate {
		s.eventsState.startDate = creationDate
	}
	if creationDate > s.eventsState.endDate {
		s.eventsState.endDate = creationDate
	}
}

// Returns the current summarized event data without resetting it.
func (s *eventSummarizer) snapshot() eventSummary {
	return s.eventsState
}

// Resets the summary to empty counters with no start/end dates.
func (s *eventSummarizer) reset() {
	s.eventsState = newEventSummary()
}
