// Package embedding resolves a named embedding model to one of several
// backend adapters behind a uniform ModelAdapter interface, with a
// deterministic hash fallback for degraded operation.
package embedding

// AdapterType is the family a registered model belongs to.
type AdapterType string

const (
	TypeSentenceTransformers AdapterType = "sentence_transformers"
	TypeOpenAI               AdapterType = "openai"
	TypeHuggingFace          AdapterType = "huggingface"
	TypeCustom               AdapterType = "custom"
)

// ModelDescriptor is one entry of the model registry: id -> how to reach
// it and what shape it produces.
type ModelDescriptor struct {
	ID             string
	Type           AdapterType
	Dimension      int
	RequiresAPIKey bool
	LocalPath      string // sentence_transformers: base URL of the local HTTP backend
	HostedName     string // openai/huggingface: the provider's model name
}

// Registry resolves a model id to its descriptor and constructs the
// adapter that serves it.
type Registry struct {
	models map[string]ModelDescriptor
	keys   KeySource
}

// KeySource discovers an API key for a hosted model, checking workspace
// settings first and falling back to process configuration.
type KeySource interface {
	WorkspaceAPIKey(workspaceID, modelID string) (string, bool)
	ProcessAPIKey(modelID string) (string, bool)
}

// NewRegistry builds a Registry seeded with the given descriptors.
func NewRegistry(keys KeySource, models ...ModelDescriptor) *Registry {
	r := &Registry{models: map[string]ModelDescriptor{}, keys: keys}
	for _, m := range models {
		r.models[m.ID] = m
	}
	return r
}

// DefaultModels is the built-in registry seed: one local
// sentence_transformers-equivalent backend, one openai-shaped hosted
// model, and one huggingface-shaped hosted model. Custom models are
// added through Register.
func DefaultModels() []ModelDescriptor {
	return []ModelDescriptor{
		{ID: "local-minilm", Type: TypeSentenceTransformers, Dimension: 384, LocalPath: "http://localhost:11434"},
		{ID: "text-embedding-3-small", Type: TypeOpenAI, Dimension: 1536, RequiresAPIKey: true, HostedName: "text-embedding-3-small"},
		{ID: "bge-large-en", Type: TypeHuggingFace, Dimension: 1024, RequiresAPIKey: true, HostedName: "BAAI/bge-large-en-v1.5"},
	}
}

// Describe returns the descriptor for modelID, or false if unregistered.
func (r *Registry) Describe(modelID string) (ModelDescriptor, bool) {
	d, ok := r.models[modelID]
	return d, ok
}

// ModelForDimension finds a registered model producing exactly dim-wide
// vectors, used to infer the model an existing collection was indexed
// with when no run recorded one.
func (r *Registry) ModelForDimension(dim int) (string, bool) {
	for id, d := range r.models {
		if d.Dimension == dim {
			return id, true
		}
	}
	return "", false
}

// Register adds or overwrites a descriptor — the "custom adapter slot".
func (r *Registry) Register(d ModelDescriptor) {
	r.models[d.ID] = d
}

// Build constructs the adapter for modelID and workspaceID. For
// API-backed models, a missing key degrades to the hash-based fallback
// and reports fallbackMode=true instead of returning an error — the
// generator still needs to produce some vector.
func (r *Registry) Build(workspaceID, modelID string) (ModelAdapter, bool) {
	d, ok := r.models[modelID]
	if !ok {
		return newHashAdapter(modelID, 384), true
	}

	switch d.Type {
	case TypeSentenceTransformers:
		return newHTTPAdapter(d), false
	case TypeOpenAI, TypeHuggingFace, TypeCustom:
		key, found := r.lookupKey(workspaceID, d)
		if d.RequiresAPIKey && !found {
			return newHashAdapter(d.ID, d.Dimension), true
		}
		return newHostedAdapter(d, key), false
	default:
		return newHashAdapter(d.ID, d.Dimension), true
	}
}

func (r *Registry) lookupKey(workspaceID string, d ModelDescriptor) (string, bool) {
	if r.keys == nil {
		return "", false
	}
	if key, ok := r.keys.WorkspaceAPIKey(workspaceID, d.ID); ok {
		return key, true
	}
	return r.keys.ProcessAPIKey(d.ID)
}
