package pgstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
)

// timeLayout is fixed width so that encoded timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func encode(doc docstore.Doc) (string, error) {
	raw, err := json.Marshal(encodeValue(map[string]any(doc)))
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(raw), nil
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(timeLayout)
	case docstore.Doc:
		return encodeValue(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = encodeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = encodeValue(item)
		}
		return out
	default:
		return v
	}
}

func decode(raw []byte) (docstore.Doc, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc docstore.Doc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc == nil {
		doc = docstore.Doc{}
	}
	return doc, nil
}
