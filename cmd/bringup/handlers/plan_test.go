package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/orchestration"
	testutil "github.com/imamik/bringup/internal/testing"
)

func usePlanConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testutil.NewConfigBuilder().Build()
	loadConfigFile = func(string) (*config.Config, error) { return cfg, nil }
	return cfg
}

func TestPlan_Text(t *testing.T) {
	saveAndRestoreFactories(t)
	out := captureOutput(t)
	usePlanConfig(t)

	require.NoError(t, Plan("cluster.yaml", "text"))
	assert.Contains(t, out.String(), "Bring-up plan for cluster cluster (3 nodes)")
	assert.Contains(t, out.String(), orchestration.PhaseRegisterHosts)
	assert.Contains(t, out.String(), orchestration.PhaseStartServices)
}

func TestPlan_JSON(t *testing.T) {
	saveAndRestoreFactories(t)
	out := captureOutput(t)
	usePlanConfig(t)

	require.NoError(t, Plan("cluster.yaml", "json"))

	var steps []orchestration.PlanStep
	require.NoError(t, json.Unmarshal(out.Bytes(), &steps))
	require.NotEmpty(t, steps)
	assert.Equal(t, orchestration.PhaseRemoveStaleState, steps[0].Phase)
}

func TestPlan_YAML(t *testing.T) {
	saveAndRestoreFactories(t)
	out := captureOutput(t)
	usePlanConfig(t)

	require.NoError(t, Plan("cluster.yaml", "yml"))

	var steps []orchestration.PlanStep
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &steps))
	assert.NotEmpty(t, steps)
}

func TestPlan_Errors(t *testing.T) {
	saveAndRestoreFactories(t)
	captureOutput(t)

	assert.ErrorContains(t, Plan("", "text"), "config file is required")

	usePlanConfig(t)
	assert.ErrorContains(t, Plan("cluster.yaml", "xml"), "unknown report format")
}

func TestPlanOnly_RefusesCalls(t *testing.T) {
	t.Parallel()

	_, err := planOnly{}.Version(testutil.TestContext(t))
	assert.ErrorIs(t, err, errPlanOnly)
}

func TestSchema(t *testing.T) {
	saveAndRestoreFactories(t)
	out := captureOutput(t)

	require.NoError(t, Schema())

	var schema map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Contains(t, schema, "properties")
}
