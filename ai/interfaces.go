package ai

import "context"

// MessageRole identifies the author of one chat message.
type MessageRole string

const (
	RoleSystem MessageRole = "system"
	RoleUser   MessageRole = "user"
)

// Message is one entry in a completion conversation.
type Message struct {
	Role    MessageRole
	Content string
}

// CompleteOptions holds per-call completion parameters.
type CompleteOptions struct {
	// Temperature controls randomness. The pipeline runs everything at 0
	// for reproducibility.
	Temperature float64

	// MaxTokens limits the response length. Zero means provider default.
	MaxTokens int

	// JSONMode asks the provider to emit valid JSON when supported.
	JSONMode bool
}

// Completer produces a text completion for a message list.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends the messages and returns the assistant's response
	// text. Returns an error on any transport or provider failure; callers
	// in the pipeline treat errors as stage degradation, never as fatal.
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
}

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple texts in a batch, in
	// input order. Batch calls are cheaper than repeated EmbedText.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector width, probing the provider
	// on first call if necessary.
	Dimension(ctx context.Context) (int, error)

	// ModelIdentity returns a stable identifier for the underlying model,
	// used to key the vector disk cache.
	ModelIdentity() string
}

// Provider aggregates the AI capabilities for convenient initialization
// and lifecycle management.
type Provider interface {
	// Completer returns the text completion service.
	Completer() Completer

	// Embedder returns the embedding service, or nil when the provider was
	// configured without one. Callers must treat nil as "embedding
	// unavailable", not as an error.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}
