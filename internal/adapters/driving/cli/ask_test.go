package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_Short(t *testing.T) {
	assert.Equal(t, "Ask a policy question", askCmd.Short)
}

func TestAskCmd_Long(t *testing.T) {
	assert.Contains(t, askCmd.Long, "citations")
	assert.Contains(t, askCmd.Long, "caveat")
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_HasTopKFlag(t *testing.T) {
	flag := askCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag, "top-k flag should exist")
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestAskCmd_HasLocaleFlag(t *testing.T) {
	flag := askCmd.Flags().Lookup("locale")
	require.NotNil(t, flag, "locale flag should exist")
	assert.Equal(t, "", flag.DefValue)
}

func TestAskCmd_HasJSONFlag(t *testing.T) {
	flag := askCmd.Flags().Lookup("json")
	require.NotNil(t, flag, "json flag should exist")
	assert.Equal(t, "false", flag.DefValue)
}
