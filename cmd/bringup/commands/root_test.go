package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "bringup", cmd.Use)
	assert.Equal(t, "Bring a managed Hadoop cluster up through its management API", cmd.Short)
	assert.True(t, cmd.SilenceUsage)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{"up", "plan", "reports", "schema", "version", "completion"}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}
	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), len(expectedSubcommands))
}

func TestRoot_VerbosityFlag(t *testing.T) {
	cmd := Root()

	flag := cmd.PersistentFlags().Lookup("verbosity")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, cmd.PersistentPreRun)
}

func TestRoot_ExecuteVersion(t *testing.T) {
	cmd := Root()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "bringup ")
}

func TestRoot_UpRequiresConfig(t *testing.T) {
	cmd := Root()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"up"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "config" not set`)
}
