// Package export moves statistics reports across process boundaries:
// versioned JSON bundles for team merging, and human-readable Markdown
// reports with the machine-readable bundle embedded so an exported
// report can be re-ingested losslessly.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Momoyeyu/token-usage/pkg/merge"
)

// WriteBundle writes a bundle as indented JSON. The written form
// round-trips: reading it back and merging reproduces the same summary.
func WriteBundle(w io.Writer, b *merge.Bundle) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("refusing to export invalid bundle: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return nil
}

// ReadBundle decodes and validates a bundle.
func ReadBundle(r io.Reader) (*merge.Bundle, error) {
	var b merge.Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
