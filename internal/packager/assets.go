package packager

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

// AssetDir is the bundle directory extracted images are written to.
const AssetDir = "assets"

// Asset is one inline image payload decoded to a file.
type Asset struct {
	Path string
	Mime string
	Data []byte
}

// isImagePayload reports whether s is a base64 image data URL.
func isImagePayload(s string) bool {
	if len(s) < len("data:image/") || !strings.EqualFold(s[:len("data:image/")], "data:image/") {
		return false
	}
	head, _, ok := strings.Cut(s, ",")
	return ok && strings.HasSuffix(strings.ToLower(head), ";base64")
}

// Collect returns every inline image payload in doc, deduplicated, in the order
// first met: brand logo, then section content in visible order. Object keys are
// visited in sorted order so the result does not depend on map iteration.
func Collect(doc *document.Document) []string {
	var out []string
	seen := map[string]struct{}{}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if !isImagePayload(t) {
				return
			}
			if _, ok := seen[t]; ok {
				return
			}
			seen[t] = struct{}{}
			out = append(out, t)
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}

	walk(doc.Brand.Logo)
	for _, id := range contentOrder(doc) {
		walk(map[string]any(doc.Content[id]))
	}
	return out
}

// contentOrder lists content ids in visible order, then any remaining ids sorted.
func contentOrder(doc *document.Document) []string {
	ids := make([]string, 0, len(doc.Content))
	done := make(map[string]struct{}, len(doc.Content))
	for _, id := range doc.Layout.Order {
		if _, ok := doc.Content[id]; ok {
			if _, dup := done[id]; !dup {
				ids = append(ids, id)
				done[id] = struct{}{}
			}
		}
	}
	rest := make([]string, 0)
	for id := range doc.Content {
		if _, ok := done[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// decodePayload splits a data URL into its media type and decoded bytes.
func decodePayload(dataURL string) (string, []byte, error) {
	head, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL without payload")
	}
	mime := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(head), "data:"), ";base64"))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return "", nil, fmt.Errorf("decode base64 payload: %w", err)
		}
	}
	return mime, data, nil
}

// Ext maps an image media type to a file extension.
func Ext(mime string) string {
	switch {
	case strings.Contains(mime, "png"):
		return "png"
	case strings.Contains(mime, "jpeg"), strings.Contains(mime, "jpg"):
		return "jpg"
	case strings.Contains(mime, "webp"):
		return "webp"
	case strings.Contains(mime, "gif"):
		return "gif"
	case strings.Contains(mime, "svg"):
		return "svg"
	default:
		return "bin"
	}
}

// Extract decodes every collected payload to assets/img-<n>.<ext> and returns a
// rewritten deep copy of doc that references the files instead. Payloads that
// fail to decode stay inline and are reported in skipped.
func Extract(doc *document.Document) (*document.Document, []Asset, []string) {
	payloads := Collect(doc)
	assets := make([]Asset, 0, len(payloads))
	paths := make(map[string]string, len(payloads))
	var skipped []string
	for _, p := range payloads {
		mime, data, err := decodePayload(p)
		if err != nil {
			skipped = append(skipped, p)
			continue
		}
		path := fmt.Sprintf("%s/img-%d.%s", AssetDir, len(assets)+1, Ext(mime))
		assets = append(assets, Asset{Path: path, Mime: mime, Data: data})
		paths[p] = path
	}

	out := doc.Clone()
	if path, ok := paths[out.Brand.Logo]; ok {
		out.Brand.Logo = path
	}
	for id, fields := range out.Content {
		out.Content[id], _ = rewrite(map[string]any(fields), paths).(map[string]any)
	}
	return out, assets, skipped
}

// rewrite returns a copy of v with every string found in paths replaced.
func rewrite(v any, paths map[string]string) any {
	switch t := v.(type) {
	case string:
		if p, ok := paths[t]; ok {
			return p
		}
		return t
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = rewrite(item, paths)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = rewrite(item, paths)
		}
		return out
	default:
		return v
	}
}
