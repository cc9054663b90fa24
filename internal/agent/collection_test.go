// ABOUTME: Tests for the collection agent's merge and completion semantics
// ABOUTME: Scalar overwrite, prescription append, one-way completion, error absorption

package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pharma-gateway/internal/llm"
)

// fakeExtractor returns queued extraction results, one per turn.
type fakeExtractor struct {
	results []map[string]any
	err     error
	calls   int
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return map[string]any{}, nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result, nil
}

// capturingGenerator returns a canned response and records what it saw.
type capturingGenerator struct {
	response string
	err      error
	systems  []string
	inputs   []string
	history  [][]llm.Turn
}

func (g *capturingGenerator) Generate(ctx context.Context, system string, history []llm.Turn, input string) (string, error) {
	g.systems = append(g.systems, system)
	g.inputs = append(g.inputs, input)
	g.history = append(g.history, history)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func newCollectionForTest(extractor *fakeExtractor, generator *capturingGenerator) *CollectionAgent {
	return NewCollectionAgent("session-1", "555-123-4567", &Memory{}, extractor, generator, nil)
}

func TestCollectionAgent_MergeSemantics(t *testing.T) {
	t.Run("scalar fields are last-write-wins", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			{"city": "Boston"},
			{"city": "Austin"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		_, err := ag.ProcessTurn(context.Background(), "we are in Boston")
		require.NoError(t, err)
		_, err = ag.ProcessTurn(context.Background(), "actually Austin")
		require.NoError(t, err)

		status := ag.CollectionStatus()
		assert.Contains(t, status.Collected, "city")
		assert.NotContains(t, status.Missing, "city")

		// The overwrite is visible once complete
		ext.results = []map[string]any{{"name": "MedPlus", "email": "a@b.com", "state": "TX"}}
		_, err = ag.ProcessTurn(context.Background(), "MedPlus, a@b.com, TX")
		require.NoError(t, err)

		collected, ok := ag.Collected()
		require.True(t, ok)
		assert.Equal(t, "Austin", collected.City)
	})

	t.Run("prescriptions append across turns", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			{"prescriptions": []any{"Lisinopril"}},
			{"prescriptions": []any{"Metformin"}},
			{"name": "MedPlus", "email": "a@b.com", "city": "Austin", "state": "TX"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		for i := 0; i < 3; i++ {
			_, err := ag.ProcessTurn(context.Background(), "turn")
			require.NoError(t, err)
		}

		collected, ok := ag.Collected()
		require.True(t, ok)
		require.Len(t, collected.Prescriptions, 2)
		assert.Equal(t, "Lisinopril", collected.Prescriptions[0].Drug)
		assert.Equal(t, "Metformin", collected.Prescriptions[1].Drug)
	})

	t.Run("single string prescription is coerced to a list", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			{"prescriptions": "Lisinopril"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		_, err := ag.ProcessTurn(context.Background(), "we have Lisinopril")
		require.NoError(t, err)

		assert.Contains(t, ag.CollectionStatus().Collected, "prescriptions")
	})

	t.Run("invalid email is not collected", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			{"email": "not-an-email"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		_, err := ag.ProcessTurn(context.Background(), "my email is not-an-email")
		require.NoError(t, err)

		status := ag.CollectionStatus()
		assert.NotContains(t, status.Collected, "email")
		assert.Contains(t, status.Missing, "email")
	})

	t.Run("loose email pattern accepts common addresses", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			{"email": "info+rx@med-plus.example.co"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		_, err := ag.ProcessTurn(context.Background(), "email is info+rx@med-plus.example.co")
		require.NoError(t, err)

		assert.Contains(t, ag.CollectionStatus().Collected, "email")
	})

	t.Run("unknown extracted fields are ignored", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			{"fax": "555-0000", "name": "MedPlus"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		_, err := ag.ProcessTurn(context.Background(), "name and fax")
		require.NoError(t, err)

		status := ag.CollectionStatus()
		assert.Contains(t, status.Collected, "name")
		assert.NotContains(t, status.Collected, "fax")
	})
}

func TestCollectionAgent_Completion(t *testing.T) {
	allFields := map[string]any{
		"name":  "MedPlus Pharmacy",
		"email": "info@medplus.com",
		"city":  "Boston",
		"state": "MA",
	}

	t.Run("completes in one turn and appends the notice", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{allFields}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "Thanks!"})

		response, err := ag.ProcessTurn(context.Background(), "MedPlus Pharmacy, info@medplus.com, Boston MA")
		require.NoError(t, err)

		assert.Contains(t, response, "registration is complete")
		status := ag.CollectionStatus()
		assert.True(t, status.Complete)
		assert.Empty(t, status.Missing)
	})

	t.Run("completion is one-way and the notice appears once", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{allFields, {}}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "Thanks!"})

		first, err := ag.ProcessTurn(context.Background(), "everything at once")
		require.NoError(t, err)
		assert.Contains(t, first, "registration is complete")

		second, err := ag.ProcessTurn(context.Background(), "anything else?")
		require.NoError(t, err)
		assert.NotContains(t, second, "registration is complete")
		assert.True(t, ag.CollectionStatus().Complete, "flag never reverts")
	})

	t.Run("completeness is monotone under further merges", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			allFields,
			{"city": "Somerville"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		_, err := ag.ProcessTurn(context.Background(), "all fields")
		require.NoError(t, err)
		_, err = ag.ProcessTurn(context.Background(), "moved to Somerville")
		require.NoError(t, err)

		status := ag.CollectionStatus()
		assert.True(t, status.Complete)
		assert.Empty(t, status.Missing)

		collected, ok := ag.Collected()
		require.True(t, ok)
		assert.Equal(t, "Somerville", collected.City)
	})

	t.Run("order of arrival does not matter", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{
			{"state": "MA"},
			{"email": "info@medplus.com"},
			{"city": "Boston"},
			{"name": "MedPlus"},
		}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		for i := 0; i < 4; i++ {
			_, err := ag.ProcessTurn(context.Background(), "turn")
			require.NoError(t, err)
		}

		assert.True(t, ag.CollectionStatus().Complete)
	})

	t.Run("collected snapshot carries the seeded phone", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{allFields}}
		ag := newCollectionForTest(ext, &capturingGenerator{response: "ok"})

		_, err := ag.ProcessTurn(context.Background(), "all fields")
		require.NoError(t, err)

		collected, ok := ag.Collected()
		require.True(t, ok)
		assert.Equal(t, "555-123-4567", collected.Phone)
		assert.Equal(t, "MedPlus Pharmacy", collected.Name)
	})

	t.Run("incomplete collection yields no snapshot", func(t *testing.T) {
		ag := newCollectionForTest(&fakeExtractor{}, &capturingGenerator{response: "ok"})
		_, ok := ag.Collected()
		assert.False(t, ok)
	})
}

func TestCollectionAgent_ErrorAbsorption(t *testing.T) {
	t.Run("extraction failure contributes zero fields", func(t *testing.T) {
		ext := &fakeExtractor{err: errors.New("upstream busted")}
		gen := &capturingGenerator{response: "Could you tell me your pharmacy's name?"}
		ag := newCollectionForTest(ext, gen)

		response, err := ag.ProcessTurn(context.Background(), "our name is MedPlus")
		require.NoError(t, err)
		assert.Equal(t, "Could you tell me your pharmacy's name?", response)
		assert.Equal(t, []string{"phone"}, ag.CollectionStatus().Collected)
	})

	t.Run("generation failure yields an apology, not an error", func(t *testing.T) {
		ext := &fakeExtractor{results: []map[string]any{{"name": "MedPlus"}}}
		gen := &capturingGenerator{err: errors.New("model down")}
		ag := newCollectionForTest(ext, gen)

		response, err := ag.ProcessTurn(context.Background(), "MedPlus here")
		require.NoError(t, err)
		assert.Contains(t, response, "apologize")

		// The merge still happened
		assert.Contains(t, ag.CollectionStatus().Collected, "name")
	})
}

func TestCollectionAgent_ContextNote(t *testing.T) {
	ext := &fakeExtractor{results: []map[string]any{{"name": "MedPlus"}}}
	gen := &capturingGenerator{response: "ok"}
	ag := newCollectionForTest(ext, gen)

	_, err := ag.ProcessTurn(context.Background(), "we are MedPlus")
	require.NoError(t, err)

	require.Len(t, gen.inputs, 1)
	note := gen.inputs[0]
	assert.True(t, strings.Contains(note, "Collected: name"), "note = %q", note)
	assert.True(t, strings.Contains(note, "Still need:"), "note = %q", note)
	assert.NotContains(t, note, "Collected: phone")
}

func TestCollectionAgent_MemoryRecordsRawText(t *testing.T) {
	mem := &Memory{}
	ext := &fakeExtractor{}
	ag := NewCollectionAgent("session-1", "5551234567", mem, ext, &capturingGenerator{response: "hi"}, nil)

	_, err := ag.ProcessTurn(context.Background(), "hello there")
	require.NoError(t, err)

	turns := mem.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, Turn{Role: "user", Content: "hello there"}, turns[0])
	assert.Equal(t, Turn{Role: "assistant", Content: "hi"}, turns[1])
}
