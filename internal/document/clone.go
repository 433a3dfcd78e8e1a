package document

import "maps"

// Clone returns an independent deep copy. Struct fields holding only value
// types are copied by assignment; slices and maps are rebuilt.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Layout = d.Layout.Clone()
	out.Content = d.Content.Clone()
	return &out
}

// Clone deep-copies the layout.
func (l Layout) Clone() Layout {
	out := Layout{
		Sections: make([]Section, len(l.Sections)),
		Order:    make([]string, len(l.Order)),
		Spacing:  make(map[string]Spacing, len(l.Spacing)),
	}
	copy(out.Sections, l.Sections)
	copy(out.Order, l.Order)
	maps.Copy(out.Spacing, l.Spacing)
	return out
}

// Clone deep-copies every section's content tree.
func (c Content) Clone() Content {
	out := make(Content, len(c))
	for id, fields := range c {
		out[id] = cloneMap(fields)
	}
	return out
}
