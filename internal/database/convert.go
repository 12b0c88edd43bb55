package database

// ToInt64 coerces a document value into an integer, defaulting to zero.
// JSONB round trips store numbers as float64.
func ToInt64(value any) int64 {
	return asInt64(value)
}

// ToString coerces a document value into a string, defaulting to empty.
func ToString(value any) string {
	s, _ := value.(string)
	return s
}

// ToInt64Slice coerces a document array into integers, skipping elements
// that are not numbers.
func ToInt64Slice(value any) []int64 {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := asNumber(item); ok {
			out = append(out, asInt64(item))
		}
	}
	return out
}

// ToStringMap coerces a document value into a nested object, defaulting to
// an empty map.
func ToStringMap(value any) map[string]any {
	m, _ := toMap(value)
	if m == nil {
		return map[string]any{}
	}
	return m
}
