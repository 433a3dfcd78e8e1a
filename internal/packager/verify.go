package packager

import (
	"bytes"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// VerifyReferences parses the bundle's pages and returns every src or href
// pointing into assets/ that has no matching file, sorted and deduplicated.
func VerifyReferences(b *Bundle) ([]string, error) {
	files := make(map[string]struct{}, len(b.Files))
	for _, f := range b.Files {
		files[f.Name] = struct{}{}
	}
	missing := map[string]struct{}{}
	for _, f := range b.Files {
		if !strings.HasSuffix(f.Name, ".html") {
			continue
		}
		root, err := html.Parse(bytes.NewReader(f.Data))
		if err != nil {
			return nil, err
		}
		walkRefs(root, func(ref string) {
			if !strings.HasPrefix(ref, AssetDir+"/") {
				return
			}
			if _, ok := files[ref]; !ok {
				missing[ref] = struct{}{}
			}
		})
	}
	out := make([]string, 0, len(missing))
	for ref := range missing {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out, nil
}

func walkRefs(n *html.Node, visit func(string)) {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "src" || a.Key == "href" {
				visit(strings.TrimPrefix(a.Val, "./"))
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkRefs(c, visit)
	}
}
