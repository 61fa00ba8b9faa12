package cli

import (
	"fmt"
	"io"

	"github.com/slackmgr/dynadoc/attr"
)

func encodeDocument(doc attr.Document, wire bool) ([]byte, error) {
	if !wire {
		return attr.ToJSON(doc)
	}

	item, err := attr.ItemizeDocument(doc)
	if err != nil {
		return nil, err
	}

	return attr.EncodeItemJSON(item)
}

// writeDocuments prints one JSON document per line.
func writeDocuments(w io.Writer, docs []attr.Document, wire bool) error {
	for _, doc := range docs {
		data, err := encodeDocument(doc, wire)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}

		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}

	return nil
}
