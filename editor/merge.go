package editor

// Merge returns overlay deep-merged onto base.
//
// Objects merge key by key, recursively. Arrays and scalars in overlay replace
// the base value wholesale. A nil overlay leaves base unchanged. Neither input
// is modified; the result shares no maps or slices with them.
func Merge(base, overlay any) any {
	if overlay == nil {
		return clone(base)
	}
	baseObject, baseOK := base.(map[string]any)
	overlayObject, overlayOK := overlay.(map[string]any)
	if !baseOK || !overlayOK {
		return clone(overlay)
	}

	result := make(map[string]any, len(baseObject)+len(overlayObject))
	for key, value := range baseObject {
		result[key] = clone(value)
	}
	for key, value := range overlayObject {
		if existing, ok := result[key]; ok {
			result[key] = Merge(existing, value)
			continue
		}
		result[key] = clone(value)
	}
	return result
}

// MergeObjects folds overlays onto base in order, so later overlays win.
func MergeObjects(base map[string]any, overlays ...map[string]any) map[string]any {
	var result any = map[string]any{}
	if base != nil {
		result = clone(base)
	}
	for _, overlay := range overlays {
		if overlay == nil {
			continue
		}
		result = Merge(result, overlay)
	}
	object, _ := result.(map[string]any)
	return object
}

func clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[key] = clone(item)
		}
		return result
	case []any:
		if v == nil {
			return v
		}
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = clone(item)
		}
		return result
	default:
		return v
	}
}
