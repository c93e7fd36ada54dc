package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitymatch/internal"
)

const pageHTML = `<html><body>
<ul id="results">
  <li><span class="name">Globex Corporation</span><span class="city">Cypress Creek</span><a href="/c/1">View</a></li>
  <li><span class="name">Acme Corp</span><span class="city">Springfield</span><a href="/c/2">View</a></li>
  <li><span class="name">Initech</span><span class="city">Austin</span><a href="/c/3">View</a></li>
</ul>
</body></html>`

const optionsYAML = `resultsSelector: "#results"
sourceEntity:
  name: Acme Corp
  city: Springfield
fields:
  - name: name
    selector: .name
  - name: city
    selector: .city
threshold: 0.8
action: extract
actionSelector: a
actionAttribute: href
`

type cliEnv struct {
	dir     string
	page    string
	options string
}

func setupCLI(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENTITYMATCH_OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("ENTITYMATCH_LOG_LEVEL", "error")

	env := cliEnv{
		dir:     dir,
		page:    filepath.Join(dir, "page.html"),
		options: filepath.Join(dir, "options.yaml"),
	}
	require.NoError(t, os.WriteFile(env.page, []byte(pageHTML), 0o600))
	require.NoError(t, os.WriteFile(env.options, []byte(optionsYAML), 0o600))
	return env
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "entitymatch dev\n", out)
}

func TestMatchCommandJSON(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, "match", "--options", env.options, "--input", env.page, "--json")
	require.NoError(t, err)

	var res internal.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.True(t, res.ContainerFound)
	assert.Equal(t, 3, res.ItemsFound)
	require.NotNil(t, res.SelectedMatch)
	assert.Equal(t, 1, res.SelectedMatch.Index)
	require.NotNil(t, res.ActionResult)
	require.NotNil(t, res.ActionResult.Value)
	assert.Equal(t, "/c/2", *res.ActionResult.Value)
	assert.NotEmpty(t, res.InvocationID)
}

func TestMatchCommandSetOverride(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, "match", "-o", env.options, "-i", env.page, "--json",
		"--set", "name=Initech", "--set", "city=Austin")
	require.NoError(t, err)

	var res internal.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.SelectedMatch)
	assert.Equal(t, 2, res.SelectedMatch.Index)
}

func TestMatchCommandTable(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, "match", "-o", env.options, "-i", env.page)
	require.NoError(t, err)
	assert.Contains(t, out, "status: ok")
	assert.Contains(t, out, "selected: item 1")
	assert.Contains(t, out, `value="/c/2"`)
}

func TestMatchCommandContainerNotFound(t *testing.T) {
	env := setupCLI(t)
	opts := filepath.Join(env.dir, "missing.yaml")
	require.NoError(t, os.WriteFile(opts, []byte("resultsSelector: \"#nope\"\nsourceEntity:\n  name: Acme\n"), 0o600))

	out, err := runCLI(t, "match", "-o", opts, "-i", env.page, "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(internal.KindContainerNotFound))

	var res internal.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.ContainerFound)
}

func TestMatchCommandSourceErrors(t *testing.T) {
	env := setupCLI(t)

	_, err := runCLI(t, "match", "-o", env.options)
	assert.ErrorContains(t, err, "--input or --url")

	_, err = runCLI(t, "match", "-o", env.options, "-i", env.page, "--url", "http://example.com")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = runCLI(t, "match", "-i", env.page)
	assert.ErrorContains(t, err, "--options is required")
}

func TestBatchCommand(t *testing.T) {
	env := setupCLI(t)
	refs := filepath.Join(env.dir, "refs.yaml")
	require.NoError(t, os.WriteFile(refs, []byte(`
- id: acme
  name: Acme Corp
  city: Springfield
- id: initech
  name: Initech
  city: Austin
- id: nobody
  name: Umbrella
  city: Raccoon City
`), 0o600))
	report := filepath.Join(env.dir, "report.xlsx")

	out, err := runCLI(t, "batch", "-o", env.options, "-r", refs, "--label-key", "id",
		"-i", env.page, "--out", report, "--json")
	require.NoError(t, err)

	var entries []batchEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)

	assert.Equal(t, "acme", entries[0].Reference)
	require.NotNil(t, entries[0].Result.SelectedMatch)
	assert.Equal(t, 1, entries[0].Result.SelectedMatch.Index)

	assert.Equal(t, "initech", entries[1].Reference)
	require.NotNil(t, entries[1].Result.SelectedMatch)
	assert.Equal(t, 2, entries[1].Result.SelectedMatch.Index)

	assert.Nil(t, entries[2].Result.SelectedMatch)
	assert.NotEqual(t, entries[0].Result.InvocationID, entries[1].Result.InvocationID)

	_, err = os.Stat(report)
	assert.NoError(t, err)
}

func TestLocateCommand(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, "locate", "-o", env.options, "-i", env.page, "--json")
	require.NoError(t, err)

	var got locateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.ContainerFound)
	assert.Equal(t, 3, got.ItemsFound)
	require.Len(t, got.Items, 3)
	assert.Equal(t, "Acme Corp", got.Items[1].Fields["name"].Original)

	out, err = runCLI(t, "locate", "-o", env.options, "-i", env.page)
	require.NoError(t, err)
	assert.Contains(t, out, "items: 3")
	assert.Contains(t, out, "Initech")
}

func TestLoadOptionsSet(t *testing.T) {
	env := setupCLI(t)

	opts, err := loadOptions(env.options, []string{"name=Globex", "city", "extra="})
	require.NoError(t, err)
	require.NotNil(t, opts.SourceEntity["name"])
	assert.Equal(t, "Globex", *opts.SourceEntity["name"])
	assert.Nil(t, opts.SourceEntity["city"])
	require.NotNil(t, opts.SourceEntity["extra"])
	assert.Equal(t, "", *opts.SourceEntity["extra"])

	_, err = loadOptions(env.options, []string{"=x"})
	assert.Error(t, err)
}
