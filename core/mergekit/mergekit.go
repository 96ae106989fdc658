package mergekit

import (
	"reflect"
)

// Policy resolves a single field conflict. It receives the original and
// the incoming value and returns the value to keep. A policy fully
// replaces the default deep-merge behavior for its field.
type Policy func(oldValue, newValue any) any

// Merge deep-merges incoming into original and returns only the fields
// whose merged value differs from the original. Neither input is
// mutated.
//
// Default behavior per field:
//   - nil incoming values never overwrite existing values
//   - maps merge key-wise, recursively
//   - slices are concatenated, deduplicated by deep equality, original
//     order first
//   - every other value is overwritten by the incoming one
//
// Fields named in policies bypass all of the above and take whatever
// the policy returns.
func Merge(original, incoming map[string]any, policies map[string]Policy) map[string]any {
	merged := make(map[string]any, len(original)+len(incoming))

	for key, oldValue := range original {
		merged[key] = oldValue
	}
	for key, newValue := range incoming {
		if _, ok := policies[key]; ok {
			// handled below, against the raw original value
			continue
		}
		merged[key] = mergeValue(merged[key], newValue)
	}
	for key, policy := range policies {
		oldValue, hasOld := original[key]
		newValue, hasNew := incoming[key]
		if !hasOld && !hasNew {
			continue
		}
		merged[key] = policy(oldValue, newValue)
	}

	return difference(merged, original)
}

// mergeValue applies the default conflict resolution for a single value
// pair.
func mergeValue(oldValue, newValue any) any {
	if newValue == nil {
		return oldValue
	}
	if oldValue == nil {
		return newValue
	}

	oldMap, oldIsMap := oldValue.(map[string]any)
	newMap, newIsMap := newValue.(map[string]any)
	if oldIsMap && newIsMap {
		out := make(map[string]any, len(oldMap)+len(newMap))
		for key, value := range oldMap {
			out[key] = value
		}
		for key, value := range newMap {
			out[key] = mergeValue(out[key], value)
		}
		return out
	}

	if isSlice(oldValue) && isSlice(newValue) {
		return unionSlices(oldValue, newValue)
	}

	return newValue
}

// unionSlices concatenates two slices and removes elements that are
// deep-equal to an earlier one. The result is always []any; original
// elements keep their order and come first.
func unionSlices(oldValue, newValue any) []any {
	oldSlice := reflect.ValueOf(oldValue)
	newSlice := reflect.ValueOf(newValue)

	out := make([]any, 0, oldSlice.Len()+newSlice.Len())
	appendUnique := func(element any) {
		for _, existing := range out {
			if reflect.DeepEqual(existing, element) {
				return
			}
		}
		out = append(out, element)
	}

	for i := 0; i < oldSlice.Len(); i++ {
		appendUnique(oldSlice.Index(i).Interface())
	}
	for i := 0; i < newSlice.Len(); i++ {
		appendUnique(newSlice.Index(i).Interface())
	}
	return out
}

func isSlice(value any) bool {
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// difference returns the fields of merged that are not deep-equal to
// their counterpart in original. Nil merged values are dropped, they
// carry no update.
func difference(merged, original map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range merged {
		if value == nil {
			continue
		}
		if reflect.DeepEqual(value, original[key]) {
			continue
		}
		out[key] = value
	}
	return out
}
