package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptQA answers a question from retrieved context.
	// The template expects {context} and {question} placeholders.
	PromptQA = "qa"

	// PromptDirectChat wraps a question sent without retrieval.
	// The template expects a {question} placeholder.
	PromptDirectChat = "direct_chat"
)

// DefaultPrompts holds the built-in template for every well-known prompt.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptQA: "Use the following pieces of context to answer the question at the end. \n" +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n" +
		"Provide a detailed and helpful answer based on the context.\n\n" +
		"Context: {context}\n\n" +
		"Question: {question}\n\n" +
		"Answer:",

	PromptDirectChat: "{question}",
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
