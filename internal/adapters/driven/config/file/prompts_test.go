package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/core/services"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".hrdesk", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Load triggers lazy init
	_, err = store.Load(driven.PromptPolicyAnswer)
	require.NoError(t, err)

	files := []string{
		"policy_answer.txt",
		"leave_extraction.txt",
		"README.md",
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		_, err := os.Stat(path)
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	policy, err := store.Load(driven.PromptPolicyAnswer)
	require.NoError(t, err)
	assert.Equal(t, services.DefaultPolicyAnswerPrompt, policy)

	extraction, err := store.Load(driven.PromptLeaveExtraction)
	require.NoError(t, err)
	assert.Equal(t, services.DefaultLeaveExtractionPrompt, extraction)
}

func TestPromptStore_Load_UserOverride(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer like a pirate, citing [n]."
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "policy_answer.txt"), []byte(custom+"\n"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptPolicyAnswer)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)

	// The pre-existing file is not overwritten by initialisation.
	data, err := os.ReadFile(filepath.Join(dir, "policy_answer.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "pirate")
}

func TestPromptStore_Load_UnknownName(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no_such_prompt")
	assert.Error(t, err)
}

func TestPromptStore_Reload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptPolicyAnswer)
	require.NoError(t, err)

	// Edit the file behind the cache, then reload.
	edited := "Edited prompt."
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "policy_answer.txt"), []byte(edited), 0o600))

	prompt, err := store.Load(driven.PromptPolicyAnswer)
	require.NoError(t, err)
	assert.NotEqual(t, edited, prompt)

	store.Reload()
	prompt, err = store.Load(driven.PromptPolicyAnswer)
	require.NoError(t, err)
	assert.Equal(t, edited, prompt)
}
