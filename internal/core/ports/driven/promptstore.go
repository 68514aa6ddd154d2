package driven

// Prompt names used with PromptStore.
const (
	// PromptPolicyAnswer is the system prompt for answering policy
	// questions from retrieved context.
	PromptPolicyAnswer = "policy_answer"

	// PromptLeaveExtraction is the system prompt for extracting leave
	// slots from an utterance.
	PromptLeaveExtraction = "leave_extraction"
)

// PromptStore provides access to LLM prompt templates.
// Implementations load from user-editable files with embedded defaults.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cache, forcing fresh loads from storage.
	Reload()

	// Dir returns the prompt directory path.
	Dir() string
}
