// Package textgen talks to the external text-generation service used for
// narratives and query routing.
package textgen

import "context"

// Request is a single bounded completion
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces text for a request. An empty string or an error
// signals a soft failure the caller is expected to absorb.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
