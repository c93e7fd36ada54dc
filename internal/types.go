package internal

import (
	"sort"
	"strings"
	"time"

	"entitymatch/internal/document"
	"entitymatch/internal/util"
)

type DataFormat string

const (
	FormatText      DataFormat = "text"
	FormatNumber    DataFormat = "number"
	FormatDate      DataFormat = "date"
	FormatBoolean   DataFormat = "boolean"
	FormatAttribute DataFormat = "attribute"
)

type Algorithm string

const (
	AlgorithmExact       Algorithm = "exact"
	AlgorithmContains    Algorithm = "contains"
	AlgorithmContainment Algorithm = "containment"
	AlgorithmLevenshtein Algorithm = "levenshtein"
	AlgorithmJaccard     Algorithm = "jaccard"
	AlgorithmDice        Algorithm = "dice"
	AlgorithmSmart       Algorithm = "smart"
)

// Direction selects which side of a containment test must hold the other.
type Direction string

const (
	ReferenceInTarget Direction = "referenceInTarget"
	TargetInReference Direction = "targetInReference"
	EitherDirection   Direction = "either"
)

type MatchMode string

const (
	ModeBest                MatchMode = "best"
	ModeAll                 MatchMode = "all"
	ModeFirstAboveThreshold MatchMode = "firstAboveThreshold"
)

type ActionKind string

const (
	ActionNone    ActionKind = "none"
	ActionClick   ActionKind = "click"
	ActionExtract ActionKind = "extract"
)

type ErrorKind string

const (
	KindContainerNotFound     ErrorKind = "ContainerNotFound"
	KindItemsNotFound         ErrorKind = "ItemsNotFound"
	KindFieldExtraction       ErrorKind = "FieldExtractionError"
	KindRequiredFieldMissing  ErrorKind = "RequiredFieldMissing"
	KindActionElementNotFound ErrorKind = "ActionElementNotFound"
	KindActionExecution       ErrorKind = "ActionExecutionError"
	KindInvalidOptions        ErrorKind = "InvalidOptions"
	KindInternal              ErrorKind = "Internal"
)

// SourceEntity is the reference record being searched for. Keys are fixed
// at construction; a nil value marks a field with no reference.
type SourceEntity struct {
	keys   []string
	values map[string]*string
}

func NewSourceEntity(values map[string]*string) SourceEntity {
	keys := make([]string, 0, len(values))
	copied := make(map[string]*string, len(values))
	for k, v := range values {
		keys = append(keys, k)
		if v != nil {
			s := *v
			copied[k] = &s
		} else {
			copied[k] = nil
		}
	}
	sort.Strings(keys)
	return SourceEntity{keys: keys, values: copied}
}

func (e SourceEntity) Keys() []string {
	return append([]string(nil), e.keys...)
}

func (e SourceEntity) Len() int {
	return len(e.keys)
}

// Value reports the reference string for name. Missing keys, nil values
// and blank strings all report false.
func (e SourceEntity) Value(name string) (string, bool) {
	v, ok := e.values[name]
	if !ok || v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}

func (e SourceEntity) Has(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Restrict keeps only the keys in allowed and returns the dropped ones.
func (e SourceEntity) Restrict(allowed map[string]struct{}) (SourceEntity, []string) {
	kept := map[string]*string{}
	var dropped []string
	for _, k := range e.keys {
		if _, ok := allowed[k]; ok {
			kept[k] = e.values[k]
			continue
		}
		dropped = append(dropped, k)
	}
	return NewSourceEntity(kept), dropped
}

func (e SourceEntity) Map() map[string]*string {
	out := make(map[string]*string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

type FieldSpec struct {
	Name      string
	Selector  string
	Attribute string
	HTML      bool
	Weight    float64
	Required  bool
	Format    DataFormat
	Normalize util.TextOptions
}

// Smart reports whether the field reads the whole item content.
func (f FieldSpec) Smart() bool {
	return strings.TrimSpace(f.Selector) == ""
}

type ExtractedField struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// CandidateItem is one located repeated structure. Element is borrowed from
// the document for the duration of the call.
type CandidateItem struct {
	Index   int
	Element document.Element
	Fields  map[string]ExtractedField
}

func (c CandidateItem) Normalized(name string) string {
	return c.Fields[name].Normalized
}

type FieldComparisonSpec struct {
	Field     string
	Algorithm Algorithm
	Weight    float64
	Threshold float64
	MustMatch bool
	Direction Direction
}

type LocateSpec struct {
	ContainerSelector string
	ItemSelector      string
	AutoDetect        bool
	WaitForSelectors  bool
	Timeout           time.Duration
	MaxItems          int
}

type SelectSpec struct {
	Threshold float64
	Mode      MatchMode
	Limit     int
}

type ActionSpec struct {
	Kind         ActionKind
	Selector     string
	Attribute    string
	WaitAfter    bool
	WaitSelector string
	WaitTime     time.Duration
	Timeout      time.Duration
}

// Plan is a validated invocation: each stage reads only its own slice.
type Plan struct {
	Source      SourceEntity
	Locate      LocateSpec
	Fields      []FieldSpec
	Comparisons []FieldComparisonSpec
	Select      SelectSpec
	Action      ActionSpec
	Warnings    []string
}

type MatchResult struct {
	Index        int                `json:"index"`
	Similarities map[string]float64 `json:"similarities"`
	Aggregate    float64            `json:"aggregate"`
	Selected     bool               `json:"selected"`
	Fields       map[string]string  `json:"fields,omitempty"`
}

type ActionResult struct {
	Kind      ActionKind `json:"kind"`
	Success   bool       `json:"success"`
	Value     *string    `json:"value,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorKind ErrorKind  `json:"errorKind,omitempty"`
}

type Rejection struct {
	Index  int       `json:"index"`
	Kind   ErrorKind `json:"kind,omitempty"`
	Field  string    `json:"field,omitempty"`
	Reason string    `json:"reason"`
}

type Result struct {
	Success         bool          `json:"success"`
	Matches         []MatchResult `json:"matches"`
	SelectedMatch   *MatchResult  `json:"selectedMatch,omitempty"`
	ContainerFound  bool          `json:"containerFound"`
	ItemsFound      int           `json:"itemsFound"`
	ActionPerformed bool          `json:"actionPerformed"`
	ActionResult    *ActionResult `json:"actionResult,omitempty"`
	Error           string        `json:"error,omitempty"`
	ErrorKind       ErrorKind     `json:"errorKind,omitempty"`
	Strategy        string        `json:"strategy,omitempty"`
	Rejected        []Rejection   `json:"rejected,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
	InvocationID    string        `json:"invocationId"`
	DurationMs      int64         `json:"durationMs"`
}
