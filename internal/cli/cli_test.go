package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billed/internal/config"
	"billed/internal/controller"
	"billed/internal/metrics"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "worker", "migrate"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "billed.db")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "--db", dbPath, "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), dbPath+": schema version ")
	assert.NotContains(t, out.String(), "schema version 0")
	assert.NotContains(t, out.String(), "dirty")
}

func TestWorkerCommandRejectsMemoryBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AMQP_URL", "")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"worker", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite backend")
}

func TestImageOrigin(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{name: "local store", cfg: config.Config{DataBackend: "sqlite", StoreAPIURL: "http://store:5678"}, want: ""},
		{name: "remote store", cfg: config.Config{DataBackend: "api", StoreAPIURL: "http://store:5678/v1"}, want: "http://store:5678"},
		{name: "bad URL", cfg: config.Config{DataBackend: "api", StoreAPIURL: "::"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageOrigin(&tt.cfg))
		})
	}
}

func TestStampSubmission(t *testing.T) {
	stampSubmission(controller.SubmissionResult{Key: "k", Err: errors.New("store down")})

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)

	var stamped bool
	for _, f := range families {
		if f.GetName() != "billed_bills_last_submission_timestamp_seconds" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == metrics.ResultError {
					stamped = m.GetGauge().GetValue() > 0
				}
			}
		}
	}
	assert.True(t, stamped, "error submission not stamped")
}
