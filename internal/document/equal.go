package document

// Equal reports whether two documents are structurally identical.
//
// Order of sections in the registry matters, as does the visible order. Map key
// order never matters. Inside content trees a key holding nil equals an absent
// key, and a section whose content object is nil equals a section without content.
func Equal(a, b *Document) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Mode == b.Mode &&
		LayoutEqual(a.Layout, b.Layout) &&
		a.Brand == b.Brand &&
		ContentEqual(a.Content, b.Content) &&
		a.Settings == b.Settings &&
		a.UI == b.UI
}

// EqualIgnoringUI is Equal without the ephemeral ui field.
func EqualIgnoringUI(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	ac, bc := *a, *b
	ac.UI, bc.UI = UI{}, UI{}
	return Equal(&ac, &bc)
}

// LayoutEqual compares layouts. Nil and empty collections are equal.
func LayoutEqual(a, b Layout) bool {
	if len(a.Sections) != len(b.Sections) || len(a.Order) != len(b.Order) || len(a.Spacing) != len(b.Spacing) {
		return false
	}
	for i := range a.Sections {
		if a.Sections[i] != b.Sections[i] {
			return false
		}
	}
	for i := range a.Order {
		if a.Order[i] != b.Order[i] {
			return false
		}
	}
	for id, sp := range a.Spacing {
		if other, ok := b.Spacing[id]; !ok || other != sp {
			return false
		}
	}
	return true
}

// ContentEqual compares content maps with nil-equals-absent semantics.
func ContentEqual(a, b Content) bool {
	for id, fields := range a {
		if !contentFieldsEqual(fields, b[id]) {
			return false
		}
	}
	for id, fields := range b {
		if _, ok := a[id]; !ok && fields != nil {
			return false
		}
	}
	return true
}

func contentFieldsEqual(a, b map[string]any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fieldsEqual(a, b)
}
