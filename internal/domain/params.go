package domain

import "encoding/json"

// ParamDoc is an open-ended parameter document. Parameter shapes are
// provider-defined, so the document stays a generic string-keyed map rather
// than a fixed schema type.
type ParamDoc map[string]any

// Clone returns a deep copy of the document. Nested maps are copied
// recursively; slice values are copied one level deep.
func (d ParamDoc) Clone() ParamDoc {
	if d == nil {
		return nil
	}
	out := make(ParamDoc, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		nested := make(map[string]any, len(t))
		for k, val := range t {
			nested[k] = cloneValue(val)
		}
		return nested
	case ParamDoc:
		return map[string]any(t.Clone())
	case []any:
		items := make([]any, len(t))
		for i, val := range t {
			items[i] = cloneValue(val)
		}
		return items
	default:
		return v
	}
}

// Encode renders the document as canonical JSON. encoding/json sorts map
// keys, so equal documents always encode to identical bytes.
func (d ParamDoc) Encode() ([]byte, error) {
	if d == nil {
		return json.Marshal(ParamDoc{})
	}
	return json.Marshal(d)
}

// Number reads a numeric field, accepting the types a decoded JSON document
// can carry.
func (d ParamDoc) Number(key string) (float64, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
