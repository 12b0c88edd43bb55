package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchSetCreatesIntermediateObjects(t *testing.T) {
	t.Parallel()

	doc := Patch{
		Set: map[string]any{"roles.muted": int64(42), "prefix": "!"},
	}.ApplyTo(Document{})

	value, ok := GetPath(doc, "roles.muted")
	require.True(t, ok)
	assert.Equal(t, int64(42), value)
	assert.Equal(t, "!", doc["prefix"])
}

func TestPatchUnset(t *testing.T) {
	t.Parallel()

	doc := DefaultServer(1)
	doc = Patch{Unset: []string{"counting.last_counter", "missing.path"}}.ApplyTo(doc)

	_, ok := GetPath(doc, "counting.last_counter")
	assert.False(t, ok)
	_, ok = GetPath(doc, "counting.current")
	assert.True(t, ok, "siblings survive an unset")
}

func TestPatchIncTreatsMissingAsZero(t *testing.T) {
	t.Parallel()

	doc := Patch{Inc: map[string]int64{"servers.10.exp": 100}}.ApplyTo(Document{})
	value, ok := GetPath(doc, "servers.10.exp")
	require.True(t, ok)
	assert.Equal(t, int64(100), value)

	doc = Patch{Inc: map[string]int64{"servers.10.exp": -30}}.ApplyTo(doc)
	value, _ = GetPath(doc, "servers.10.exp")
	assert.Equal(t, int64(70), value)
}

func TestPatchIncCoercesJSONNumbers(t *testing.T) {
	t.Parallel()

	// A JSONB round trip yields float64 numbers.
	doc := Document{"counting": map[string]any{"current": float64(5)}}
	doc = Patch{Inc: map[string]int64{"counting.current": 1}}.ApplyTo(doc)

	value, _ := GetPath(doc, "counting.current")
	assert.Equal(t, int64(6), value)
}

func TestPatchArrayOperators(t *testing.T) {
	t.Parallel()

	doc := Patch{Push: map[string]any{"banned_words": "first"}}.ApplyTo(Document{})
	doc = Patch{Push: map[string]any{"banned_words": "second"}}.ApplyTo(doc)
	assert.Equal(t, []any{"first", "second"}, doc["banned_words"])

	doc = Patch{AddToSet: map[string]any{"banned_words": "first"}}.ApplyTo(doc)
	assert.Len(t, doc["banned_words"], 2, "an equal element is not added twice")

	doc = Patch{AddToSet: map[string]any{"banned_words": "third"}}.ApplyTo(doc)
	assert.Len(t, doc["banned_words"], 3)

	doc = Patch{Pull: map[string]any{"banned_words": "first"}}.ApplyTo(doc)
	assert.Equal(t, []any{"second", "third"}, doc["banned_words"])
}

func TestPatchPullComparesNumbersLoosely(t *testing.T) {
	t.Parallel()

	// Stored as float64 after a round trip, pulled with an int64.
	doc := Document{"channels": map[string]any{"ignore": []any{float64(5), float64(9)}}}
	doc = Patch{Pull: map[string]any{"channels.ignore": int64(5)}}.ApplyTo(doc)

	value, _ := GetPath(doc, "channels.ignore")
	assert.Equal(t, []any{float64(9)}, value)
}

func TestPatchEmptyLeavesDocumentUnchanged(t *testing.T) {
	t.Parallel()

	doc := DefaultServer(7)
	patched := Patch{}.ApplyTo(doc)
	assert.Equal(t, Document(doc), patched)
}

func TestDefaultsAreNotShared(t *testing.T) {
	t.Parallel()

	first := DefaultServer(1).clone()
	Patch{Set: map[string]any{"roles.muted": int64(9)}}.ApplyTo(first)

	second := DefaultServer(1)
	value, _ := GetPath(second, "roles.muted")
	assert.Equal(t, int64(0), value)
}

func TestDecodeTypedView(t *testing.T) {
	t.Parallel()

	doc := DefaultServer(3)
	doc = Patch{Set: map[string]any{
		"prefix":      "?",
		"roles.muted": int64(77),
	}}.ApplyTo(doc)

	var server ServerDoc
	require.NoError(t, Decode(doc, &server))
	assert.Equal(t, int64(3), server.ID)
	assert.Equal(t, "?", server.Prefix)
	assert.Equal(t, int64(77), server.Roles["muted"])
	assert.Equal(t, int64(1), server.Counting.Current)
}
