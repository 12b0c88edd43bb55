package database

import (
	"reflect"
	"strings"
)

// Patch describes a set of field-path modifications applied atomically to
// one document. Paths are dot-separated; intermediate objects are created as
// needed. An empty Patch leaves the document unchanged, which is how callers
// create a document from defaults alone.
type Patch struct {
	// Set writes a value at each path.
	Set map[string]any

	// Unset removes the field at each path. Missing fields are ignored.
	Unset []string

	// Inc adds a delta to the numeric value at each path, treating a missing
	// field as zero.
	Inc map[string]int64

	// Push appends a value to the array at each path, creating the array if
	// missing.
	Push map[string]any

	// Pull removes every element equal to the value from the array at each
	// path.
	Pull map[string]any

	// AddToSet appends a value to the array at each path unless an equal
	// element is already present.
	AddToSet map[string]any
}

// ApplyTo applies the patch to a document and returns it. The document is
// modified in place; a nil document starts empty.
func (p Patch) ApplyTo(doc Document) Document {
	if doc == nil {
		doc = Document{}
	}

	for path, value := range p.Set {
		setPath(doc, path, value)
	}

	for _, path := range p.Unset {
		unsetPath(doc, path)
	}

	for path, delta := range p.Inc {
		current, _ := getPath(doc, path)
		setPath(doc, path, asInt64(current)+delta)
	}

	for path, value := range p.Push {
		array, _ := getPath(doc, path)
		items, _ := array.([]any)
		setPath(doc, path, append(items, value))
	}

	for path, value := range p.Pull {
		array, _ := getPath(doc, path)
		items, ok := array.([]any)
		if !ok {
			continue
		}
		kept := items[:0]
		for _, item := range items {
			if !looseEqual(item, value) {
				kept = append(kept, item)
			}
		}
		setPath(doc, path, append([]any(nil), kept...))
	}

	for path, value := range p.AddToSet {
		array, _ := getPath(doc, path)
		items, _ := array.([]any)
		present := false
		for _, item := range items {
			if looseEqual(item, value) {
				present = true
				break
			}
		}
		if !present {
			setPath(doc, path, append(items, value))
		}
	}

	return doc
}

// GetPath resolves a dot-separated path inside a document.
func GetPath(doc Document, path string) (any, bool) {
	return getPath(doc, path)
}

func getPath(doc Document, path string) (any, bool) {
	keys := strings.Split(path, ".")
	current := map[string]any(doc)

	for i, key := range keys {
		value, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return value, true
		}

		next, ok := toMap(value)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

func setPath(doc Document, path string, value any) {
	keys := strings.Split(path, ".")
	current := map[string]any(doc)

	for _, key := range keys[:len(keys)-1] {
		next, ok := toMap(current[key])
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

func unsetPath(doc Document, path string) {
	keys := strings.Split(path, ".")
	current := map[string]any(doc)

	for _, key := range keys[:len(keys)-1] {
		next, ok := toMap(current[key])
		if !ok {
			return
		}
		current = next
	}
	delete(current, keys[len(keys)-1])
}

func toMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case Document:
		return v, true
	default:
		return nil, false
	}
}

// asInt64 coerces the numeric shapes a JSONB round trip can produce.
func asInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	default:
		return 0
	}
}

// looseEqual compares values the way stored JSON does: numbers compare by
// value regardless of their Go type, everything else deeply.
func looseEqual(a, b any) bool {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return an == bn
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}
