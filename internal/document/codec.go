package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FromJSON decodes a serialized document on top of Defaults, so fields missing
// from older payloads keep their default values, and then reconciles it.
func FromJSON(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("empty document payload")
	}
	doc := Defaults()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.Mode = NormalizeMode(string(doc.Mode))
	for id, fields := range doc.Content {
		doc.Content[id] = NormalizeFields(fields)
	}
	doc.Reconcile()
	return doc, nil
}

// MarshalIndent renders the document as indented JSON.
func (d *Document) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
