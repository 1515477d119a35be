//go:build !cgo

package syntax

import (
	"context"
	"fmt"
)

// OutlineSupported always reports false without cgo.
func OutlineSupported(language string) bool {
	return false
}

// SupportedOutlineLanguages returns nothing without cgo.
func SupportedOutlineLanguages() []string {
	return nil
}

// BuildOutline is unavailable without the tree-sitter grammars.
func BuildOutline(ctx context.Context, source []byte, language string) (*Outline, error) {
	return nil, fmt.Errorf("code outline requires a cgo build (tree-sitter)")
}
