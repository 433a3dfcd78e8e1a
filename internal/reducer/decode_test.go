package reducer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

func TestDecodeActionTypedPayloads(t *testing.T) {
	tests := []struct {
		raw  string
		want Action
	}{
		{`{"type":"ADD_SECTION","payload":"hero"}`, Action{Type: AddSection, Payload: NewSection{Type: "hero"}}},
		{`{"type":"ADD_SECTION","payload":{"type":"faq","variant":"two-column"}}`, Action{Type: AddSection, Payload: NewSection{Type: "faq", Variant: "two-column"}}},
		{`{"type":"REMOVE_SECTION","payload":{"id":"faq-1"}}`, Action{Type: RemoveSection, Payload: "faq-1"}},
		{`{"type":"TOGGLE_SECTION","payload":"faq-1"}`, Action{Type: ToggleSection, Payload: "faq-1"}},
		{`{"type":"REORDER","payload":["b-1","a-1"]}`, Action{Type: Reorder, Payload: []string{"b-1", "a-1"}}},
		{`{"type":"MOVE_SECTION","payload":{"fromIndex":2,"toIndex":0}}`, Action{Type: MoveSection, Payload: Move{From: 2, To: 0}}},
		{`{"type":"update_content","payload":{"id":"hero-1","headline":"Hi"},"meta":{"skipHistory":true}}`,
			Action{Type: UpdateContent, Payload: ContentPatch{ID: "hero-1", Values: map[string]any{"headline": "Hi"}}, Meta: &Meta{SkipHistory: true}}},
		{`{"type":"TOGGLE_GRID"}`, Action{Type: ToggleGrid}},
		{`{"type":"SOMETHING_ELSE","payload":{"x":1}}`, Action{Type: "SOMETHING_ELSE"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeActionSpacingAndLoadState(t *testing.T) {
	a, err := DecodeAction([]byte(`{"type":"UPDATE_SPACING","payload":{"id":"hero-1","pt":13}}`))
	require.NoError(t, err)
	p := a.Payload.(SpacingPatch)
	require.NotNil(t, p.PT)
	assert.Equal(t, 13.0, *p.PT)
	assert.Nil(t, p.PB)

	a, err = DecodeAction([]byte(`{"type":"LOAD_STATE","payload":{"settings":{"siteName":"X"}}}`))
	require.NoError(t, err)
	doc, ok := a.Payload.(*document.Document)
	require.True(t, ok)
	assert.Equal(t, "X", doc.Settings.SiteName)
}

func TestDecodeActionErrors(t *testing.T) {
	_, err := DecodeAction([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	_, err = DecodeAction([]byte(`{"type":"REORDER","payload":{"a":1}}`))
	require.Error(t, err)
	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	action, _ := classified.Context().GetString("action")
	assert.Equal(t, "REORDER", action)
}

func TestContentPatchWireShape(t *testing.T) {
	raw, err := json.Marshal(Action{Type: UpdateContent, Payload: ContentPatch{ID: "hero-1", Values: map[string]any{"headline": "Hi"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"UPDATE_CONTENT","payload":{"id":"hero-1","headline":"Hi"}}`, string(raw))
}

func TestDefaultPolicy(t *testing.T) {
	assert.False(t, DefaultPolicy(Action{Type: SelectSection}).Record)
	assert.False(t, DefaultPolicy(Action{Type: SetMode}).Record)
	assert.Equal(t, Decision{Record: true}, DefaultPolicy(Action{Type: AddSection}))
	assert.Equal(t, Decision{Record: true, CoalesceKey: "UPDATE_CONTENT:hero-1", Window: 450 * time.Millisecond},
		DefaultPolicy(Action{Type: UpdateContent, Payload: ContentPatch{ID: "hero-1"}}))
	assert.Equal(t, "UPDATE_SPACING:faq-2", DefaultPolicy(Action{Type: UpdateSpacing, Payload: SpacingPatch{ID: "faq-2"}}).CoalesceKey)
	assert.Equal(t, "SET_COLORS:global", DefaultPolicy(Action{Type: SetColors, Payload: ColorsPatch{}}).CoalesceKey)
}

func TestWithCoalesceWindow(t *testing.T) {
	p := WithCoalesceWindow(DefaultPolicy, 2*time.Second)
	assert.Equal(t, 2*time.Second, p(Action{Type: UpdateContent, Payload: ContentPatch{ID: "hero-1"}}).Window)
	assert.Equal(t, Decision{Record: true}, p(Action{Type: AddSection}))

	same := WithCoalesceWindow(DefaultPolicy, 0)
	assert.Equal(t, DefaultCoalesceWindow, same(Action{Type: SetColors, Payload: ColorsPatch{}}).Window)
}
