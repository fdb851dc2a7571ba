package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCanonicalizeCSV(t *testing.T) {
	dir := t.TempDir()
	people := writeFile(t, dir, "people.csv", "id,name,type\n1,Ada Lovelace,person\n2,Acme Inc,company\n")
	links := writeFile(t, dir, "links.csv", "from,to,relationship\n1,2,owns\n")

	out, err := run(t, "canonicalize", people, "--links", links, "--report")
	require.NoError(t, err)

	var res struct {
		Graph struct {
			Entities map[string]any `json:"entities"`
			Links    map[string]any `json:"links"`
		} `json:"graph"`
		Source map[string]any `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Graph.Entities, 2)
	assert.Len(t, res.Graph.Links, 1)
	assert.Equal(t, "people.csv", res.Source["name"])
}

func TestCanonicalizeWritesOutFile(t *testing.T) {
	dir := t.TempDir()
	people := writeFile(t, dir, "people.json", `[{"id":"a","label":"Ada","type":"person"}]`)
	target := filepath.Join(dir, "graph.json")

	out, err := run(t, "canonicalize", people, "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"entities"`)
	assert.NotContains(t, string(b), `"report"`)
}

func TestCanonicalizeErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "canonicalize")
	assert.Error(t, err)

	_, err = run(t, "canonicalize", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	people := writeFile(t, dir, "people.csv", "id,name\n1,Ada\n")
	_, err = run(t, "canonicalize", people, "--delimiter", ";;")
	assert.ErrorContains(t, err, "single character")

	broken := writeFile(t, dir, "broken.json", `[{"id": "a"`)
	_, err = run(t, "canonicalize", broken)
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	out, err := run(t, "formats")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.NotEmpty(t, lines)
	assert.Contains(t, out, ".csv")
	assert.Contains(t, out, "graphml")
}
