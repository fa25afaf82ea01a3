package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/util/poll"
)

func sampleRun() *bringup.Run {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := bringup.NewRun("run-1")
	run.Status = bringup.RunAborted
	run.StartedAt = start
	run.FinishedAt = start.Add(95 * time.Second)
	run.Record(bringup.OutputAddedHosts, "h3", "h2")
	run.Phases = []bringup.PhaseResult{
		{
			Name:     "register-hosts",
			Status:   bringup.PhaseSucceeded,
			Duration: 1500 * time.Millisecond,
			Operations: []bringup.OperationResult{
				{Kind: bringup.KindRegisterHosts, Target: "cluster", Status: bringup.OperationSucceeded, Elapsed: 1500 * time.Millisecond},
			},
		},
		{
			Name:     "client-configuration",
			Status:   bringup.PhaseSucceeded,
			Duration: 9 * time.Second,
			Operations: []bringup.OperationResult{{
				Kind:       bringup.KindDeployClientConfig,
				Target:     "cluster",
				Handle:     "42",
				Status:     bringup.OperationSucceeded,
				Overridden: "client-config-unavailable",
				Message:    "Command 'DeployClusterClientConfig' is not currently available for execution.",
				Ticks:      3,
			}},
		},
		{
			Name:     "start-services",
			Status:   bringup.PhaseFailed,
			Duration: 80 * time.Second,
			Error:    "hdfs failed",
			Operations: []bringup.OperationResult{
				{Kind: bringup.KindStartService, Target: "hdfs", Handle: "43", Status: bringup.OperationFailed, Message: "Failed to start NameNode."},
			},
		},
		{Name: "start-management-service", Status: bringup.PhaseAborted},
	}
	run.Cause = &bringup.PhaseError{
		Phase:  "start-services",
		Kind:   bringup.KindStartService,
		Target: "hdfs",
		Err:    &poll.FailedError{Name: "start-service hdfs", Reason: "Failed to start NameNode."},
	}
	run.Error = run.Cause.Error()
	return run
}

func TestNew(t *testing.T) {
	t.Parallel()

	doc := New("cluster", sampleRun())

	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, "cluster", doc.Cluster)
	assert.Equal(t, bringup.RunAborted, doc.Status)
	assert.Equal(t, "1m35s", doc.Duration)
	assert.Equal(t, bringup.ClassOperation, doc.FailureClass)
	assert.Equal(t, []string{"h2", "h3"}, doc.Outputs[bringup.OutputAddedHosts])
	require.Len(t, doc.Phases, 4)
	assert.Equal(t, "1.5s", doc.Phases[0].Duration)
	assert.Equal(t, "register-hosts-to-cluster cluster", doc.Phases[0].Operations[0].Name)
	assert.Equal(t, "42", doc.Phases[1].Operations[0].Handle)
	assert.Empty(t, doc.Phases[3].Duration)
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	doc := New("cluster", sampleRun())
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()
			data, err := Encode(doc, format)
			require.NoError(t, err)

			decoded, err := Decode(data, format)
			require.NoError(t, err)
			assert.Equal(t, doc.RunID, decoded.RunID)
			assert.Equal(t, doc.Status, decoded.Status)
			assert.Equal(t, doc.Phases, decoded.Phases)
			assert.Equal(t, doc.Outputs, decoded.Outputs)
			assert.True(t, doc.StartedAt.Equal(decoded.StartedAt))
		})
	}
}

func TestEncode_JSONFieldNames(t *testing.T) {
	t.Parallel()

	data, err := Encode(New("cluster", sampleRun()), FormatJSON)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"runId": "run-1"`)
	assert.Contains(t, s, `"failureClass": "operation"`)
	assert.Contains(t, s, `"added-hosts": [`)
}

func TestEncode_Text(t *testing.T) {
	t.Parallel()

	data, err := Encode(New("cluster", sampleRun()), FormatText)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "Bring-up run-1 ABORTED")
	assert.Contains(t, out, "[OK] register-hosts (1.5s)")
	assert.Contains(t, out, "[??] deploy-client-configuration cluster")
	assert.Contains(t, out, "accepted by client-config-unavailable")
	assert.Contains(t, out, "[!!] start-services")
	assert.Contains(t, out, "Failed to start NameNode.")
	assert.Contains(t, out, "[  ] start-management-service")
	assert.Contains(t, out, "added-hosts: h2, h3")
	assert.Contains(t, out, "Error: phase \"start-services\" failed")
}

func TestRenderer_Color(t *testing.T) {
	t.Parallel()

	var plain, colored bytes.Buffer
	doc := New("cluster", sampleRun())
	NewRenderer(false).Render(&plain, doc)
	NewRenderer(true).Render(&colored, doc)

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "start-services")
}

func TestEncode_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Encode(&Document{}, Format("xml"))
	require.Error(t, err)
	_, err = Decode([]byte("x"), FormatText)
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"text", FormatText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatYAML, FormatFor("run.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("RUN.YML"))
	assert.Equal(t, FormatText, FormatFor("run.txt"))
	assert.Equal(t, FormatJSON, FormatFor("run.json"))
	assert.Equal(t, FormatJSON, FormatFor("run"))
	assert.True(t, strings.HasPrefix(FormatYAML.ContentType(), "application/"))
	assert.Equal(t, "yaml", FormatYAML.Extension())
}
