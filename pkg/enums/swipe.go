package enums

import "fmt"

// SwipeDecision maps to the swipe_decision enum in Postgres.
type SwipeDecision string

const (
	SwipeDecisionLike      SwipeDecision = "like"
	SwipeDecisionPass      SwipeDecision = "pass"
	SwipeDecisionSuperLike SwipeDecision = "super_like"
)

var validSwipeDecisions = []SwipeDecision{
	SwipeDecisionLike,
	SwipeDecisionPass,
	SwipeDecisionSuperLike,
}

// IsValid checks whether the value matches the canonical enum.
func (d SwipeDecision) IsValid() bool {
	for _, candidate := range validSwipeDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsPositive reports whether the decision counts toward a mutual match.
func (d SwipeDecision) IsPositive() bool {
	return d == SwipeDecisionLike || d == SwipeDecisionSuperLike
}

// ParseSwipeDecision converts raw input into SwipeDecision.
func ParseSwipeDecision(value string) (SwipeDecision, error) {
	for _, candidate := range validSwipeDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid swipe decision %q", value)
}

// SwipeStatus is the caller-visible outcome of recording a swipe.
type SwipeStatus string

const (
	SwipeStatusLiked   SwipeStatus = "liked"
	SwipeStatusPassed  SwipeStatus = "passed"
	SwipeStatusMatched SwipeStatus = "matched"
)
