package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReports(t *testing.T) {
	cmd := Reports()

	require.NotNil(t, cmd)
	assert.Equal(t, "reports", cmd.Use)
	assert.Nil(t, cmd.RunE, "reports is a command group")

	for _, name := range []string{"bucket", "prefix"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s should exist", name)
	}

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}

func TestReports_Show(t *testing.T) {
	cmd := Reports()

	show, _, err := cmd.Find([]string{"show"})
	require.NoError(t, err)
	assert.Equal(t, "show <key>", show.Use)
	assert.Error(t, show.Args(show, nil))
	assert.NoError(t, show.Args(show, []string{"bringup/cluster/run.json"}))

	output := show.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "text", output.DefValue)
}

func TestReports_List(t *testing.T) {
	cmd := Reports()

	list, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)
	assert.NotNil(t, list.Flags().Lookup("cluster"))
	assert.Error(t, list.Args(list, []string{"unexpected"}))
}
