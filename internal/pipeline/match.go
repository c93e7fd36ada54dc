package pipeline

import (
	"strings"

	"entitymatch/internal"
	"entitymatch/internal/util"
)

const (
	// smartTargetContains scores a candidate value that contains the
	// reference; smartReferenceContains the reverse.
	smartTargetContains    = 0.9
	smartReferenceContains = 0.7
)

// Scored is one candidate after comparison. GateField names the first
// mustMatch field that failed, if any; scoring stops there.
type Scored struct {
	Index        int
	Similarities map[string]float64
	Aggregate    float64
	GateField    string
	Fields       map[string]string
}

// Comparator scores candidates against the reference record. It is pure:
// it never touches the document.
type Comparator struct{}

func NewComparator() *Comparator {
	return &Comparator{}
}

func (c *Comparator) Compare(source internal.SourceEntity, candidates []internal.CandidateItem, fields []internal.FieldSpec, comparisons []internal.FieldComparisonSpec) []Scored {
	specs := make(map[string]internal.FieldSpec, len(fields))
	for _, f := range fields {
		specs[f.Name] = f
	}

	refs := make(map[string]string, len(comparisons))
	for _, cmp := range comparisons {
		raw, ok := source.Value(cmp.Field)
		if !ok {
			continue
		}
		refs[cmp.Field] = NormalizeField(raw, specOrDefault(specs, cmp.Field)).Normalized
	}

	out := make([]Scored, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, c.score(cand, refs, comparisons))
	}
	return out
}

func (c *Comparator) score(cand internal.CandidateItem, refs map[string]string, comparisons []internal.FieldComparisonSpec) Scored {
	s := Scored{
		Index:        cand.Index,
		Similarities: make(map[string]float64, len(comparisons)),
		Fields:       make(map[string]string, len(cand.Fields)),
	}
	for name, f := range cand.Fields {
		s.Fields[name] = f.Normalized
	}

	var weighted, total float64
	for _, cmp := range comparisons {
		ref, ok := refs[cmp.Field]
		if !ok {
			continue
		}
		sim := Similarity(cmp.Algorithm, cmp.Direction, ref, cand.Normalized(cmp.Field))
		s.Similarities[cmp.Field] = sim

		if cmp.MustMatch && sim < cmp.Threshold {
			s.GateField = cmp.Field
			s.Aggregate = 0
			return s
		}

		w := cmp.Weight
		if w < 0 {
			w = 0
		}
		weighted += w * sim
		total += w
	}
	s.Aggregate = Aggregate(weighted, total)
	return s
}

// Aggregate is the weighted mean, or 0 when no weight was applied.
func Aggregate(weighted, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return weighted / total
}

// Similarity scores target against reference in [0,1]. Both strings are
// already normalized. An empty target always scores 0.
func Similarity(algorithm internal.Algorithm, direction internal.Direction, reference, target string) float64 {
	if target == "" || reference == "" {
		return 0
	}
	switch algorithm {
	case internal.AlgorithmExact:
		return boolScore(reference == target)
	case internal.AlgorithmContains, internal.AlgorithmContainment:
		return boolScore(contains(direction, reference, target))
	case internal.AlgorithmLevenshtein:
		return util.Levenshtein(reference, target)
	case internal.AlgorithmJaccard:
		return util.Jaccard(reference, target)
	case internal.AlgorithmDice:
		return util.DiceCoefficient(reference, target)
	default:
		return smart(reference, target)
	}
}

func smart(reference, target string) float64 {
	switch {
	case reference == target:
		return 1
	case strings.Contains(target, reference):
		return smartTargetContains
	case strings.Contains(reference, target):
		return smartReferenceContains
	default:
		return util.WordOverlap(reference, target)
	}
}

func contains(direction internal.Direction, reference, target string) bool {
	switch direction {
	case internal.TargetInReference:
		return strings.Contains(reference, target)
	case internal.EitherDirection:
		return strings.Contains(target, reference) || strings.Contains(reference, target)
	default:
		return strings.Contains(target, reference)
	}
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func specOrDefault(specs map[string]internal.FieldSpec, name string) internal.FieldSpec {
	if spec, ok := specs[name]; ok {
		return spec
	}
	return internal.FieldSpec{Name: name, Format: internal.FormatText, Weight: 1}
}
