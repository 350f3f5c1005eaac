package resolver

import "server/internal/domain"

// mergeDocs overlays src onto dst field by field. Nested maps merge
// recursively; arrays and scalars replace wholesale. dst is mutated and
// returned for chaining; src is never modified.
func mergeDocs(dst, src domain.ParamDoc) domain.ParamDoc {
	if dst == nil {
		dst = domain.ParamDoc{}
	}
	for key, val := range src {
		srcMap, srcIsMap := asMap(val)
		if !srcIsMap {
			dst[key] = cloneForMerge(val)
			continue
		}
		dstMap, dstIsMap := asMap(dst[key])
		if !dstIsMap {
			dst[key] = map[string]any(mergeDocs(domain.ParamDoc{}, srcMap))
			continue
		}
		dst[key] = map[string]any(mergeDocs(domain.ParamDoc(dstMap), srcMap))
	}
	return dst
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case domain.ParamDoc:
		return t, true
	default:
		return nil, false
	}
}

func cloneForMerge(v any) any {
	switch t := v.(type) {
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = cloneForMerge(item)
		}
		return items
	case map[string]any:
		return map[string]any(domain.ParamDoc(t).Clone())
	default:
		return v
	}
}
