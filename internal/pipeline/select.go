package pipeline

import (
	"fmt"
	"sort"

	"entitymatch/internal"
)

type Selection struct {
	Matches  []internal.MatchResult
	Selected *internal.MatchResult
	Rejected []internal.Rejection
}

// MatchSelector applies the gates, the overall threshold and the match mode.
type MatchSelector struct{}

func NewSelector() *MatchSelector {
	return &MatchSelector{}
}

// Select expects scored in document order. Matches come back sorted by
// aggregate, highest first, with ties kept in document order.
func (s *MatchSelector) Select(scored []Scored, spec internal.SelectSpec) Selection {
	var out Selection
	passed := make([]internal.MatchResult, 0, len(scored))

	for _, sc := range scored {
		switch {
		case sc.GateField != "":
			out.Rejected = append(out.Rejected, internal.Rejection{
				Index:  sc.Index,
				Field:  sc.GateField,
				Reason: fmt.Sprintf("mustMatch field %q scored %.4f", sc.GateField, sc.Similarities[sc.GateField]),
			})
		case sc.Aggregate < spec.Threshold:
			out.Rejected = append(out.Rejected, internal.Rejection{
				Index:  sc.Index,
				Reason: fmt.Sprintf("aggregate %.4f below threshold %.4f", sc.Aggregate, spec.Threshold),
			})
		default:
			passed = append(passed, internal.MatchResult{
				Index:        sc.Index,
				Similarities: sc.Similarities,
				Aggregate:    sc.Aggregate,
				Fields:       sc.Fields,
			})
		}
	}
	if len(passed) == 0 {
		out.Matches = []internal.MatchResult{}
		return out
	}

	// passed is still in document order here.
	first := passed[0].Index

	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].Aggregate > passed[j].Aggregate
	})

	switch spec.Mode {
	case internal.ModeAll:
		if spec.Limit > 0 && len(passed) > spec.Limit {
			passed = passed[:spec.Limit]
		}
		for i := range passed {
			passed[i].Selected = true
		}
		out.Matches = passed
		out.Selected = selectedCopy(passed, passed[0].Index)
	case internal.ModeFirstAboveThreshold:
		markSelected(passed, first)
		out.Matches = passed
		out.Selected = selectedCopy(passed, first)
	default:
		passed[0].Selected = true
		out.Matches = passed
		out.Selected = selectedCopy(passed, passed[0].Index)
	}
	return out
}

func markSelected(matches []internal.MatchResult, index int) {
	for i := range matches {
		if matches[i].Index == index {
			matches[i].Selected = true
		}
	}
}

func selectedCopy(matches []internal.MatchResult, index int) *internal.MatchResult {
	for _, m := range matches {
		if m.Index == index {
			c := m
			return &c
		}
	}
	return nil
}
