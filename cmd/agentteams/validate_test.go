package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentteams/agent/validation"
	"github.com/BaSui01/agentteams/testutil"
	"github.com/BaSui01/agentteams/testutil/fixtures"
)

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteFile(t, dir, "research_team.yaml", fixtures.ResearchTeamYAML)
	broken := testutil.WriteFile(t, dir, "broken.yaml", "team:\n  name: lonely\n")
	unsupported := testutil.WriteFile(t, dir, "notes.txt", "hello")

	t.Run("valid config", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := runValidate([]string{good}, &stdout, &stderr)
		assert.Equal(t, 0, code, stderr.String())

		var report validation.Report
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.Greater(t, report.OverallScore, 0.0)
	})

	t.Run("missing sections", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := runValidate([]string{"--format", "text", broken}, &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Contains(t, stdout.String(), "Missing required section: coordinator")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, runValidate([]string{unsupported}, &stdout, &stderr))
	})

	t.Run("no arguments", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, runValidate(nil, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "Usage")
	})
}
