package document

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// typeAliases folds legacy and shorthand section type names into canonical ones.
var typeAliases = map[string]string{
	"trust":     "trustbar",
	"stickycta": "cta",
}

// NormalizeSectionType trims, lowercases and folds aliases.
func NormalizeSectionType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := typeAliases[t]; ok {
		return canonical
	}
	return t
}

var idSuffix = regexp.MustCompile(`-(\d+)$`)

// NextSectionID returns "<type>-<n>" where n is one above the highest numeric
// suffix among existing sections of that type, advanced past any id already
// taken by a section of another type.
func NextSectionID(d *Document, sectionType string) string {
	sectionType = NormalizeSectionType(sectionType)
	highest := 0
	for _, s := range d.Layout.Sections {
		if NormalizeSectionType(s.Type) != sectionType {
			continue
		}
		m := idSuffix.FindStringSubmatch(s.ID)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	n := highest + 1
	for d.HasSection(fmt.Sprintf("%s-%d", sectionType, n)) {
		n++
	}
	return fmt.Sprintf("%s-%d", sectionType, n)
}

// ReconcileOrder returns an order that contains every section id exactly once.
// Unknown and duplicate ids are dropped, then missing ids are appended in
// registry order. The input slice is never modified.
func ReconcileOrder(sections []Section, order []string) []string {
	known := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		known[s.ID] = struct{}{}
	}
	out := make([]string, 0, len(sections))
	seen := make(map[string]struct{}, len(sections))
	for _, id := range order {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, s := range sections {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s.ID)
	}
	return out
}

// Reconcile enforces the referential invariants in place: order matches the
// section registry, spacing and content are keyed only by live ids, and the
// active section points at an existing section or is cleared.
// It must only be called on a document the caller exclusively owns.
func (d *Document) Reconcile() {
	d.Layout.Sections = dedupeSections(d.Layout.Sections)
	d.Layout.Order = ReconcileOrder(d.Layout.Sections, d.Layout.Order)
	if d.Layout.Spacing == nil {
		d.Layout.Spacing = map[string]Spacing{}
	}
	if d.Content == nil {
		d.Content = Content{}
	}
	for id := range d.Layout.Spacing {
		if !d.HasSection(id) {
			delete(d.Layout.Spacing, id)
		}
	}
	for id := range d.Content {
		if !d.HasSection(id) {
			delete(d.Content, id)
		}
	}
	if d.UI.ActiveSection != "" && !d.HasSection(d.UI.ActiveSection) {
		d.UI.ActiveSection = ""
	}
}

// dedupeSections keeps the first section per id and drops sections without an id.
func dedupeSections(in []Section) []Section {
	out := make([]Section, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s.ID == "" {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		s.Type = NormalizeSectionType(s.Type)
		if s.Variant == "" {
			s.Variant = "default"
		}
		out = append(out, s)
	}
	return out
}

// Validate reports every violated invariant. A nil result means the document is consistent.
func (d *Document) Validate() []string {
	var problems []string
	ids := make(map[string]struct{}, len(d.Layout.Sections))
	for _, s := range d.Layout.Sections {
		if s.ID == "" {
			problems = append(problems, "section without id")
			continue
		}
		if _, dup := ids[s.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate section id %q", s.ID))
		}
		ids[s.ID] = struct{}{}
	}
	if len(d.Layout.Order) != len(ids) {
		problems = append(problems, fmt.Sprintf("order has %d entries for %d sections", len(d.Layout.Order), len(ids)))
	}
	seen := make(map[string]struct{}, len(d.Layout.Order))
	for _, id := range d.Layout.Order {
		if _, ok := ids[id]; !ok {
			problems = append(problems, fmt.Sprintf("order references unknown section %q", id))
		}
		if _, dup := seen[id]; dup {
			problems = append(problems, fmt.Sprintf("order lists %q twice", id))
		}
		seen[id] = struct{}{}
	}
	for _, id := range sortedKeys(d.Layout.Spacing) {
		if _, ok := ids[id]; !ok {
			problems = append(problems, fmt.Sprintf("spacing keyed by unknown section %q", id))
		}
	}
	for _, id := range sortedKeys(map[string]map[string]any(d.Content)) {
		if _, ok := ids[id]; !ok {
			problems = append(problems, fmt.Sprintf("content keyed by unknown section %q", id))
		}
	}
	if d.UI.ActiveSection != "" {
		if _, ok := ids[d.UI.ActiveSection]; !ok {
			problems = append(problems, fmt.Sprintf("active section %q does not exist", d.UI.ActiveSection))
		}
	}
	return problems
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
