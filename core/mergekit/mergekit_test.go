package mergekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeOverwritesScalars(t *testing.T) {
	original := map[string]any{"a": "old", "b": 1}
	incoming := map[string]any{"a": "new"}

	out := Merge(original, incoming, nil)

	assert.Equal(t, map[string]any{"a": "new"}, out)
}

func TestMergeNilNeverOverwrites(t *testing.T) {
	original := map[string]any{"a": "old"}
	incoming := map[string]any{"a": nil}

	out := Merge(original, incoming, nil)

	assert.Empty(t, out)
}

func TestMergeReturnsOnlyChangedFields(t *testing.T) {
	original := map[string]any{"a": "same", "b": "old"}
	incoming := map[string]any{"a": "same", "b": "new"}

	out := Merge(original, incoming, nil)

	assert.Equal(t, map[string]any{"b": "new"}, out)
}

func TestMergeMapsRecursively(t *testing.T) {
	original := map[string]any{
		"attributes": map[string]any{
			"location": map[string]any{"github": "Berlin"},
		},
	}
	incoming := map[string]any{
		"attributes": map[string]any{
			"location": map[string]any{"discord": "Hamburg"},
			"bio":      map[string]any{"github": "dev"},
		},
	}

	out := Merge(original, incoming, nil)

	expected := map[string]any{
		"attributes": map[string]any{
			"location": map[string]any{"github": "Berlin", "discord": "Hamburg"},
			"bio":      map[string]any{"github": "dev"},
		},
	}
	assert.Equal(t, expected, out)
}

func TestMergeSlicesUnion(t *testing.T) {
	original := map[string]any{"emails": []any{"a@x.com", "b@x.com"}}
	incoming := map[string]any{"emails": []any{"b@x.com", "c@x.com"}}

	out := Merge(original, incoming, nil)

	assert.Equal(t, []any{"a@x.com", "b@x.com", "c@x.com"}, out["emails"])
}

func TestMergePolicyReceivesRawValues(t *testing.T) {
	var gotOld, gotNew any
	policies := map[string]Policy{
		"score": func(oldValue, newValue any) any {
			gotOld, gotNew = oldValue, newValue
			return newValue
		},
	}
	original := map[string]any{"score": 3}
	incoming := map[string]any{"score": 7}

	out := Merge(original, incoming, policies)

	assert.Equal(t, 3, gotOld)
	assert.Equal(t, 7, gotNew)
	assert.Equal(t, map[string]any{"score": 7}, out)
}

func TestMergePolicySkippedWhenFieldAbsent(t *testing.T) {
	called := false
	policies := map[string]Policy{
		"missing": func(oldValue, newValue any) any {
			called = true
			return nil
		},
	}

	out := Merge(map[string]any{"a": 1}, map[string]any{"a": 2}, policies)

	assert.False(t, called)
	assert.Equal(t, map[string]any{"a": 2}, out)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	original := map[string]any{"m": map[string]any{"k": "v"}}
	incoming := map[string]any{"m": map[string]any{"k2": "v2"}}

	_ = Merge(original, incoming, nil)

	assert.Equal(t, map[string]any{"k": "v"}, original["m"])
	assert.Equal(t, map[string]any{"k2": "v2"}, incoming["m"])
}
