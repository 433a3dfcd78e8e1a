package reducer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

type wireAction struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
}

// DecodeAction parses the JSON dispatch contract {type, payload, meta} into an
// Action with a typed payload. Unknown types decode successfully with a nil
// payload so the reducer can treat them as no-ops.
func DecodeAction(data []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return Action{}, errors.WrapError(err, errors.CategoryValidation, "malformed action").Build()
	}
	w.Type = ActionType(strings.ToUpper(strings.TrimSpace(string(w.Type))))
	a := Action{Type: w.Type, Meta: w.Meta}
	if !w.Type.Known() || isNull(w.Payload) {
		return a, nil
	}
	payload, err := decodePayload(w.Type, w.Payload)
	if err != nil {
		return Action{}, errors.WrapError(err, errors.CategoryValidation, "malformed action payload").
			WithContext("action", string(w.Type)).
			Build()
	}
	a.Payload = payload
	return a, nil
}

func decodePayload(t ActionType, raw json.RawMessage) (any, error) {
	switch t {
	case SetMode, SetLogo, SetFont, SetRadius, SetSidebarTab, SetBuilderTheme, SetActiveElementPath:
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case RemoveSection, ToggleSection, SelectSection, RemoveContent:
		return decodeID(raw)
	case AddSection:
		return decodeNewSection(raw)
	case AddSectionsBulk:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make([]NewSection, 0, len(items))
		for _, item := range items {
			ns, err := decodeNewSection(item)
			if err != nil {
				return nil, err
			}
			out = append(out, ns)
		}
		return out, nil
	case UpdateSection:
		return decodeInto[SectionPatch](raw)
	case UpdateSectionVariant:
		return decodeInto[SectionVariant](raw)
	case Reorder:
		return decodeInto[[]string](raw)
	case MoveSection:
		return decodeInto[Move](raw)
	case UpdateSpacing:
		return decodeInto[SpacingPatch](raw)
	case ApplySpacingPreset:
		return decodeInto[SpacingPresetRef](raw)
	case SetColors:
		return decodeInto[ColorsPatch](raw)
	case UpdateContent:
		return decodeInto[ContentPatch](raw)
	case ReplaceContent:
		return decodeInto[ContentReplacement](raw)
	case UpdateSettings:
		return decodeInto[SettingsPatch](raw)
	case UpdateConsent:
		return decodeInto[ConsentPatch](raw)
	case UpdateFeatures:
		return decodeInto[FeaturesPatch](raw)
	case LoadState:
		return document.FromJSON(raw)
	default:
		return nil, nil
	}
}

func decodeInto[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// decodeID accepts either "hero-1" or {"id": "hero-1"}.
func decodeID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("expected section id: %w", err)
	}
	return obj.ID, nil
}

// decodeNewSection accepts either "hero" or a NewSection object.
func decodeNewSection(raw json.RawMessage) (NewSection, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return NewSection{Type: s}, nil
	}
	return decodeInto[NewSection](raw)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// MarshalJSON renders the flat wire shape.
func (p ContentPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		out[k] = v
	}
	out["id"] = p.ID
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat wire shape; every key except "id" is a content field.
func (p *ContentPatch) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	id, _ := fields["id"].(string)
	delete(fields, "id")
	p.ID = id
	p.Values = fields
	return nil
}

// MarshalJSON renders the wire shape of an action.
func (a Action) MarshalJSON() ([]byte, error) {
	w := struct {
		Type    ActionType `json:"type"`
		Payload any        `json:"payload,omitempty"`
		Meta    *Meta      `json:"meta,omitempty"`
	}{a.Type, a.Payload, a.Meta}
	return json.Marshal(w)
}
