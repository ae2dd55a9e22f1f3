package flattenjson

import "regexp"

// Inferred type tags. Inference is sticky to TypeText: once a field is
// promoted to text, no later observation may downgrade it (spec
// invariant 4).
const (
	TypeText    = "text"
	TypeDate    = "date"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeNull    = "null"
)

// FieldMeta is the per-field type-inference state tracked by a Table,
// serialized into table_metadata.json as output_fields[name].
type FieldMeta struct {
	Type string `json:"type"`
}

// dateRe matches the anchored ISO-8601-ish date/datetime shape from
// spec.md section 4.1.
var dateRe = regexp.MustCompile(`^([1-3]\d{3})-(\d{2})-(\d{2})([T ](\d{2}):(\d{2}):(\d{2}(?:\.\d*)?)((-(\d{2}):(\d{2})|Z)?))?$`)

// EncodeValue converts a scalar JSONValue to its textual cell form and
// records the observed inferred type onto meta, unless meta is already
// pinned to text. Array and object values are expected to have already
// been reduced to strings by the Flattener before reaching here, but are
// still handled (as a text observation) so EncodeValue is total over
// JSONValue.
func EncodeValue(v *JSONValue, meta *FieldMeta) string {
	switch v.Kind {
	case KindString:
		if dateRe.MatchString(v.Str) {
			observe(meta, TypeDate)
		} else {
			observe(meta, TypeText)
		}
		return v.Str
	case KindNull:
		observe(meta, TypeNull)
		return ""
	case KindNumber:
		observe(meta, TypeNumber)
		return v.Num.String()
	case KindBool:
		observe(meta, TypeBoolean)
		if v.Bool {
			return "true"
		}
		return "false"
	case KindArray, KindObject:
		observe(meta, TypeText)
		return v.JSONString()
	default:
		observe(meta, TypeText)
		return ""
	}
}

// observe applies the sticky-text rule: once meta.Type is "text", later
// observations never overwrite it.
func observe(meta *FieldMeta, t string) {
	if meta.Type == TypeText {
		return
	}
	meta.Type = t
}
