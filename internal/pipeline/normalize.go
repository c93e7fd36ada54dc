package pipeline

import (
	"entitymatch/internal"
	"entitymatch/internal/util"
)

// NormalizeField coerces raw by the field's data format and produces the
// string used for comparison. Values that fail coercion fall back to text
// normalization of the original.
func NormalizeField(raw string, spec internal.FieldSpec) internal.ExtractedField {
	out := internal.ExtractedField{Original: raw}
	trimmed := util.CollapseSpaces(raw)

	switch spec.Format {
	case internal.FormatNumber:
		if v, ok := util.ParseNumber(trimmed); ok {
			out.Value = v
			out.Normalized = util.FormatNumber(v)
			return out
		}
	case internal.FormatDate:
		if t, ok := util.ParseDate(trimmed); ok {
			out.Normalized = util.FormatDate(t)
			out.Value = out.Normalized
			return out
		}
	case internal.FormatBoolean:
		if b, ok := util.ParseBool(trimmed); ok {
			out.Value = b
			if b {
				out.Normalized = "true"
			} else {
				out.Normalized = "false"
			}
			return out
		}
	}

	out.Normalized = util.NormalizeText(trimmed, textOptions(spec))
	return out
}

func textOptions(spec internal.FieldSpec) util.TextOptions {
	o := spec.Normalize
	if o.Domain == "" || o.Domain == util.DomainAuto {
		o.Domain = util.DomainForField(spec.Name)
	}
	return o
}
