package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const partners = `participants: [Ana, Bruno, Carla, Diego]
exclusions:
  - [Ana, Bruno]
`

const stuck = `participants: [Ana, Bruno, Carla]
exclusions:
  - [Ana, Bruno]
  - [Ana, Carla]
`

func writeRoster(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"check", "draw"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
			assert.NotNil(t, sub.Flags().Lookup("file"))
		})
	}
}

func TestCheck_Feasible(t *testing.T) {
	out, err := execute(t, "check", "-f", writeRoster(t, partners))
	require.NoError(t, err)
	assert.Contains(t, out, "feasible: a valid draw exists")
	assert.Contains(t, out, "Ana")
}

func TestCheck_InfeasibleJSON(t *testing.T) {
	out, err := execute(t, "check", "--format", "json", "-f", writeRoster(t, stuck))
	require.ErrorIs(t, err, ErrNotFeasible)

	var result CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Feasible)
	assert.Equal(t, []string{"Ana"}, result.Blocking)
	assert.Equal(t, map[string]int{"Ana": 0, "Bruno": 1, "Carla": 1}, result.Candidates)
}

func TestCheck_TooFew(t *testing.T) {
	out, err := execute(t, "check", "-f", writeRoster(t, "participants: [Ana, Bruno]\n"))
	require.ErrorIs(t, err, ErrNotFeasible)
	assert.Contains(t, out, "infeasible")
}

func TestDraw_SeedIsReproducible(t *testing.T) {
	path := writeRoster(t, partners)

	first, err := execute(t, "draw", "-f", path, "--seed", "42", "--format", "json")
	require.NoError(t, err)
	second, err := execute(t, "draw", "-f", path, "--seed", "42", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, first, second)

	var result DrawResult
	require.NoError(t, json.Unmarshal([]byte(first), &result))
	require.Len(t, result.Assignments, 4)

	recipients := map[string]bool{}
	for _, e := range result.Assignments {
		assert.NotEqual(t, e.Giver, e.Recipient)
		if e.Giver == "Ana" {
			assert.NotEqual(t, "Bruno", e.Recipient)
		}
		if e.Giver == "Bruno" {
			assert.NotEqual(t, "Ana", e.Recipient)
		}
		recipients[e.Recipient] = true
	}
	assert.Len(t, recipients, 4)
}

func TestDraw_Errors(t *testing.T) {
	_, err := execute(t, "draw", "-f", writeRoster(t, stuck))
	assert.Error(t, err)

	_, err = execute(t, "draw", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "draw", "-f", writeRoster(t, "participants: [Ana, Ana, Bruno]\n"))
	assert.Error(t, err)

	_, err = execute(t, "draw", "--format", "xml", "-f", writeRoster(t, partners))
	assert.Error(t, err)
}
