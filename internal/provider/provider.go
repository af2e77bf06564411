// Package provider implements the external model collaborators: embedding
// vector generation and grounded answer generation. Each provider client is
// constructed once per process with explicit configuration and injected into
// the components that need it; nothing in this package holds global state.
//
// Resilience policy lives with the callers (internal/embed degrades to the
// zero vector, internal/answer falls back to a fixed apology); this package
// only translates between our contracts and the vendor SDKs.
package provider

// Sampling carries the generation sampling parameters. They are pass-through
// configuration: nothing in this codebase computes them.
type Sampling struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}
