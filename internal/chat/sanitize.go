package chat

import "math"

// sanitizeValues replaces NaN and Infinity with nil anywhere inside
// nested maps and slices, so they never reach JSON encoding.
func sanitizeValues(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	for key, value := range data {
		data[key] = sanitizeValue(value)
	}
	return data
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return v
	case map[string]any:
		return sanitizeValues(v)
	case []any:
		for i, item := range v {
			v[i] = sanitizeValue(item)
		}
		return v
	default:
		return value
	}
}
