package reducer

import "time"

// DefaultCoalesceWindow is the window within which same-key edits merge into one undo step.
const DefaultCoalesceWindow = 450 * time.Millisecond

// Decision tells the store whether and how to record a committed change.
type Decision struct {
	Record      bool
	CoalesceKey string
	Window      time.Duration
}

// Policy decides how an action's change is recorded in history.
type Policy func(Action) Decision

var uiOnly = map[ActionType]struct{}{
	SelectSection:        {},
	ToggleGrid:           {},
	Toggle8px:            {},
	SetSidebarTab:        {},
	SetBuilderTheme:      {},
	SetActiveElementPath: {},
	SetMode:              {},
}

var coalesced = map[ActionType]struct{}{
	UpdateSpacing: {},
	UpdateContent: {},
	SetColors:     {},
}

// DefaultPolicy never records UI-only actions, coalesces continuous edits
// (spacing drags, typing, color picking) per target, and records everything else.
func DefaultPolicy(a Action) Decision {
	if _, ok := uiOnly[a.Type]; ok {
		return Decision{}
	}
	if _, ok := coalesced[a.Type]; ok {
		return Decision{
			Record:      true,
			CoalesceKey: string(a.Type) + ":" + targetID(a.Payload),
			Window:      DefaultCoalesceWindow,
		}
	}
	return Decision{Record: true}
}

func targetID(payload any) string {
	switch p := payload.(type) {
	case ContentPatch:
		if p.ID != "" {
			return p.ID
		}
	case SpacingPatch:
		if p.ID != "" {
			return p.ID
		}
	}
	return "global"
}

// WithCoalesceWindow returns p with every coalescing decision using window d.
// A non-positive d leaves p's windows unchanged.
func WithCoalesceWindow(p Policy, d time.Duration) Policy {
	return func(a Action) Decision {
		dec := p(a)
		if dec.CoalesceKey != "" && d > 0 {
			dec.Window = d
		}
		return dec
	}
}
