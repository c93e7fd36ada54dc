package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"entitymatch/internal"
	"entitymatch/internal/document"
)

// Extraction is the Extractor's output. Candidates keep document order;
// items dropped for a missing required field appear only in Rejected.
type Extraction struct {
	Candidates []internal.CandidateItem
	Rejected   []internal.Rejection
	Warnings   []string
}

type FieldExtractor struct {
	log *zap.Logger
}

func NewExtractor(log *zap.Logger) *FieldExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &FieldExtractor{log: log}
}

// Extract reads every field of every item, one item at a time. A failing
// optional field yields an empty value and never affects its siblings.
func (x *FieldExtractor) Extract(ctx context.Context, items []document.Element, fields []internal.FieldSpec) Extraction {
	var out Extraction
	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("extraction stopped at item %d of %d: %v", idx, len(items), err))
			break
		}

		cand := internal.CandidateItem{
			Index:   idx,
			Element: item,
			Fields:  make(map[string]internal.ExtractedField, len(fields)),
		}
		dropped := false
		for _, spec := range fields {
			field, err := x.field(ctx, item, spec)
			if err != nil {
				if spec.Required {
					out.Rejected = append(out.Rejected, internal.Rejection{
						Index:  idx,
						Kind:   internal.KindRequiredFieldMissing,
						Field:  spec.Name,
						Reason: fmt.Errorf("%w: %w", ErrRequiredFieldMissing, err).Error(),
					})
					x.log.Debug("candidate dropped", zap.Int("index", idx), zap.String("field", spec.Name), zap.Error(err))
					dropped = true
					break
				}
				if !errors.Is(err, ErrElementNotFound) {
					out.Warnings = append(out.Warnings, fmt.Sprintf("item %d field %q: %v", idx, spec.Name, err))
				}
			}
			cand.Fields[spec.Name] = field
		}
		if !dropped {
			out.Candidates = append(out.Candidates, cand)
		}
	}
	return out
}

func (x *FieldExtractor) field(ctx context.Context, item document.Element, spec internal.FieldSpec) (internal.ExtractedField, error) {
	el := item
	if !spec.Smart() {
		els, err := item.Find(ctx, spec.Selector)
		if err != nil {
			return internal.ExtractedField{}, fmt.Errorf("%w: %q: %w", ErrFieldExtraction, spec.Selector, err)
		}
		if len(els) == 0 {
			return internal.ExtractedField{}, fmt.Errorf("%w: %q", ErrElementNotFound, spec.Selector)
		}
		el = els[0]
	}

	raw, err := readValue(ctx, el, spec)
	if err != nil {
		return internal.ExtractedField{}, err
	}
	if strings.TrimSpace(raw) == "" {
		return internal.ExtractedField{Original: raw}, fmt.Errorf("%w: %q is empty", ErrElementNotFound, spec.Name)
	}

	field := NormalizeField(raw, spec)
	field.Found = true
	return field, nil
}

func readValue(ctx context.Context, el document.Element, spec internal.FieldSpec) (string, error) {
	switch {
	case spec.Attribute != "":
		v, ok, err := el.Attribute(ctx, spec.Attribute)
		if err != nil {
			return "", fmt.Errorf("%w: attribute %q: %w", ErrFieldExtraction, spec.Attribute, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: attribute %q", ErrElementNotFound, spec.Attribute)
		}
		return v, nil
	case spec.HTML:
		v, err := el.HTML(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: html: %w", ErrFieldExtraction, err)
		}
		return v, nil
	default:
		v, err := el.Text(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: text: %w", ErrFieldExtraction, err)
		}
		return v, nil
	}
}

