package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"entitymatch/internal"
	"entitymatch/internal/util"
)

const CurrentVersion = 1

var ErrInvalidOptions = errors.New("invalid options")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Options is one matcher invocation as supplied by a caller. Pointer fields
// distinguish "unset" from an explicit zero.
type Options struct {
	Version            int                 `mapstructure:"version" yaml:"version" validate:"gte=0"`
	SourceEntity       map[string]*string  `mapstructure:"sourceEntity" yaml:"sourceEntity" validate:"required,min=1"`
	ResultsSelector    string              `mapstructure:"resultsSelector" yaml:"resultsSelector" validate:"required"`
	ItemSelector       string              `mapstructure:"itemSelector" yaml:"itemSelector"`
	AutoDetectChildren *bool               `mapstructure:"autoDetectChildren" yaml:"autoDetectChildren"`
	Fields             []FieldOptions      `mapstructure:"fields" yaml:"fields" validate:"dive"`
	FieldComparisons   []ComparisonOptions `mapstructure:"fieldComparisons" yaml:"fieldComparisons" validate:"dive"`
	Threshold          *float64            `mapstructure:"threshold" yaml:"threshold" validate:"omitempty,gte=0,lte=1"`
	MatchMode          string              `mapstructure:"matchMode" yaml:"matchMode" validate:"omitempty,oneof=best all firstAboveThreshold"`
	LimitResults       int                 `mapstructure:"limitResults" yaml:"limitResults" validate:"gte=0"`
	MaxItems           int                 `mapstructure:"maxItems" yaml:"maxItems" validate:"gte=0"`
	WaitForSelectors   bool                `mapstructure:"waitForSelectors" yaml:"waitForSelectors"`
	Timeout            int                 `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	Action             string              `mapstructure:"action" yaml:"action" validate:"omitempty,oneof=none click extract"`
	ActionSelector     string              `mapstructure:"actionSelector" yaml:"actionSelector"`
	ActionAttribute    string              `mapstructure:"actionAttribute" yaml:"actionAttribute"`
	WaitAfterAction    bool                `mapstructure:"waitAfterAction" yaml:"waitAfterAction"`
	WaitSelector       string              `mapstructure:"waitSelector" yaml:"waitSelector"`
	WaitTime           int                 `mapstructure:"waitTime" yaml:"waitTime" validate:"gte=0"`
}

type FieldOptions struct {
	Name       string           `mapstructure:"name" yaml:"name" validate:"required"`
	Selector   string           `mapstructure:"selector" yaml:"selector"`
	Attribute  string           `mapstructure:"attribute" yaml:"attribute"`
	HTML       bool             `mapstructure:"html" yaml:"html"`
	Weight     *float64         `mapstructure:"weight" yaml:"weight" validate:"omitempty,gte=0"`
	Required   bool             `mapstructure:"required" yaml:"required"`
	DataFormat string           `mapstructure:"dataFormat" yaml:"dataFormat" validate:"omitempty,oneof=text number date boolean attribute"`
	Normalize  NormalizeOptions `mapstructure:"normalize" yaml:"normalize"`
}

type NormalizeOptions struct {
	CaseSensitive     bool   `mapstructure:"caseSensitive" yaml:"caseSensitive"`
	StripPunctuation  bool   `mapstructure:"stripPunctuation" yaml:"stripPunctuation"`
	StripSpecialChars bool   `mapstructure:"stripSpecialChars" yaml:"stripSpecialChars"`
	StripDiacritics   bool   `mapstructure:"stripDiacritics" yaml:"stripDiacritics"`
	Domain            string `mapstructure:"domain" yaml:"domain" validate:"omitempty,oneof=auto none company identifier"`
}

type ComparisonOptions struct {
	Field     string   `mapstructure:"field" yaml:"field" validate:"required"`
	Algorithm string   `mapstructure:"algorithm" yaml:"algorithm" validate:"omitempty,oneof=exact contains containment levenshtein jaccard dice smart"`
	Weight    *float64 `mapstructure:"weight" yaml:"weight" validate:"omitempty,gte=0"`
	Threshold *float64 `mapstructure:"threshold" yaml:"threshold" validate:"omitempty,gte=0,lte=1"`
	MustMatch bool     `mapstructure:"mustMatch" yaml:"mustMatch"`
	Direction string   `mapstructure:"direction" yaml:"direction" validate:"omitempty,oneof=referenceInTarget targetInReference either"`
}

// DecodeOptions converts a loosely typed map (JSON body, workflow
// parameters) into Options. Numbers given as strings are accepted.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Options{}, fmt.Errorf("failed to create decoder: %w", err)
	}

	if decodeErr := decoder.Decode(raw); decodeErr != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, decodeErr)
	}
	return opts, nil
}

// LoadOptionsFile reads Options from a YAML file, or a JSON file when the
// extension is .json.
func LoadOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		return DecodeOptions(raw)
	}
	return ParseOptions(data)
}

// ParseOptions decodes YAML options. Keys that name no option are rejected,
// as DecodeOptions does for maps.
func ParseOptions(data []byte) (Options, error) {
	var opts Options
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		if errors.Is(err, io.EOF) {
			return Options{}, nil
		}
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return opts, nil
}

// Validate checks struct rules and the rules that span fields.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, validationMessage(err))
	}

	if o.Version != 0 && o.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidOptions, o.Version)
	}

	seen := map[string]struct{}{}
	for _, f := range o.Fields {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidOptions, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	known := o.fieldNames()
	for _, c := range o.FieldComparisons {
		if _, ok := known[c.Field]; !ok {
			return fmt.Errorf("%w: fieldComparisons references unknown field %q", ErrInvalidOptions, c.Field)
		}
	}

	if len(o.KeySet()) == 0 {
		return fmt.Errorf("%w: no sourceEntity key matches a configured field", ErrInvalidOptions)
	}
	return nil
}

// KeySet is the set of source-entity keys the invocation can compare.
// With explicit fields it is the keys that name a field; otherwise every key.
func (o Options) KeySet() map[string]struct{} {
	out := map[string]struct{}{}
	if len(o.Fields) == 0 {
		for k := range o.SourceEntity {
			out[k] = struct{}{}
		}
		return out
	}
	known := o.fieldNames()
	for k := range o.SourceEntity {
		if _, ok := known[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func (o Options) fieldNames() map[string]struct{} {
	out := map[string]struct{}{}
	if len(o.Fields) == 0 {
		for k := range o.SourceEntity {
			out[k] = struct{}{}
		}
		return out
	}
	for _, f := range o.Fields {
		out[f.Name] = struct{}{}
	}
	return out
}

// Plan validates o and resolves every default.
func (o Options) Plan(d Defaults) (internal.Plan, error) {
	if err := o.Validate(); err != nil {
		return internal.Plan{}, err
	}

	source, dropped := internal.NewSourceEntity(o.SourceEntity).Restrict(o.KeySet())
	var warnings []string
	sort.Strings(dropped)
	for _, k := range dropped {
		warnings = append(warnings, fmt.Sprintf("sourceEntity key %q has no matching field and was ignored", k))
	}

	threshold := d.Threshold
	if o.Threshold != nil {
		threshold = *o.Threshold
	}
	timeout := d.Timeout
	if o.Timeout > 0 {
		timeout = time.Duration(o.Timeout) * time.Millisecond
	}
	maxItems := d.MaxItems
	if o.MaxItems > 0 {
		maxItems = o.MaxItems
	}
	autoDetect := true
	if o.AutoDetectChildren != nil {
		autoDetect = *o.AutoDetectChildren
	}
	mode := internal.MatchMode(o.MatchMode)
	if mode == "" {
		mode = internal.ModeBest
	}
	action := internal.ActionKind(o.Action)
	if action == "" {
		action = internal.ActionNone
	}

	plan := internal.Plan{
		Source: source,
		Locate: internal.LocateSpec{
			ContainerSelector: strings.TrimSpace(o.ResultsSelector),
			ItemSelector:      strings.TrimSpace(o.ItemSelector),
			AutoDetect:        autoDetect,
			WaitForSelectors:  o.WaitForSelectors,
			Timeout:           timeout,
			MaxItems:          maxItems,
		},
		Select: internal.SelectSpec{
			Threshold: threshold,
			Mode:      mode,
			Limit:     o.LimitResults,
		},
		Action: internal.ActionSpec{
			Kind:         action,
			Selector:     strings.TrimSpace(o.ActionSelector),
			Attribute:    strings.TrimSpace(o.ActionAttribute),
			WaitAfter:    o.WaitAfterAction,
			WaitSelector: strings.TrimSpace(o.WaitSelector),
			WaitTime:     time.Duration(o.WaitTime) * time.Millisecond,
			Timeout:      timeout,
		},
		Warnings: warnings,
	}

	for _, f := range o.Fields {
		plan.Fields = append(plan.Fields, f.spec())
	}
	for _, c := range o.FieldComparisons {
		plan.Comparisons = append(plan.Comparisons, c.spec(threshold))
	}
	return plan, nil
}

func (f FieldOptions) spec() internal.FieldSpec {
	format := internal.DataFormat(f.DataFormat)
	if format == "" {
		format = internal.FormatText
	}
	if format == internal.FormatAttribute && f.Attribute == "" {
		format = internal.FormatText
	}
	domain := util.Domain(f.Normalize.Domain)
	if domain == "" {
		domain = util.DomainAuto
	}
	return internal.FieldSpec{
		Name:      f.Name,
		Selector:  strings.TrimSpace(f.Selector),
		Attribute: strings.TrimSpace(f.Attribute),
		HTML:      f.HTML,
		Weight:    weightOrDefault(f.Weight),
		Required:  f.Required,
		Format:    format,
		Normalize: util.TextOptions{
			CaseSensitive:     f.Normalize.CaseSensitive,
			StripPunctuation:  f.Normalize.StripPunctuation,
			StripSpecialChars: f.Normalize.StripSpecialChars,
			StripDiacritics:   f.Normalize.StripDiacritics,
			Domain:            domain,
		},
	}
}

func (c ComparisonOptions) spec(overall float64) internal.FieldComparisonSpec {
	algorithm := internal.Algorithm(c.Algorithm)
	if algorithm == "" {
		algorithm = internal.AlgorithmSmart
	}
	threshold := 0.0
	if c.Threshold != nil {
		threshold = *c.Threshold
	} else if c.MustMatch {
		threshold = overall
	}
	direction := internal.Direction(c.Direction)
	if direction == "" {
		direction = internal.ReferenceInTarget
		if algorithm == internal.AlgorithmContainment {
			direction = internal.EitherDirection
		}
	}
	return internal.FieldComparisonSpec{
		Field:     c.Field,
		Algorithm: algorithm,
		Weight:    weightOrDefault(c.Weight),
		Threshold: threshold,
		MustMatch: c.MustMatch,
		Direction: direction,
	}
}

func weightOrDefault(w *float64) float64 {
	if w == nil {
		return 1
	}
	return *w
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed '%s=%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
