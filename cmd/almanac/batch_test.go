package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/praetorian-inc/almanac/pkg/engine"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetBatchFlags() {
	batchMode = "both"
	batchWorkers = 0
	batchFormat = "table"
	batchDB = ""
	batchExtensions = nil
	batchIncludeHidden = false
	batchMaxFileSize = 0
	batchGit = false
	batchRev = "HEAD"
}

func batchDir(t *testing.T, broken bool) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":        "seeds: 3 4\n\nsoil map:\n0 5 10\n",
		"nested/b.yml": "seeds: [10, 2]\nstages:\n  - name: soil\n    rules:\n      - {destination: 100, source: 10, length: 1}\n",
		"notes.md":     "# not an almanac\n",
	}
	if broken {
		files["c.txt"] = "seeds: x\n"
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func runBatchCmd(t *testing.T, dir string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := runBatch(cmd, []string{dir})
	return buf.String(), err
}

func TestRunBatch_Table(t *testing.T) {
	resetBatchFlags()

	output, err := runBatchCmd(t, batchDir(t, false))
	require.NoError(t, err)

	assert.Regexp(t, `a\.txt\s+3\s+0\s+ok`, output)
	assert.Regexp(t, `nested/b\.yml\s+2\s+11\s+ok`, output)
	assert.NotContains(t, output, "notes.md")
	assert.Contains(t, output, "2 solved, 0 failed")
}

func TestRunBatch_JSONWithFailure(t *testing.T) {
	resetBatchFlags()
	batchFormat = "json"
	batchMode = "ranges"

	output, err := runBatchCmd(t, batchDir(t, true))
	require.Error(t, err)

	var result engine.BatchResult
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 3)

	// ordered by path
	assert.Equal(t, "a.txt", result.Results[0].Output.Name)
	assert.NotEmpty(t, result.Results[1].Error)
	assert.Equal(t, "nested/b.yml", result.Results[2].Output.Name)
	require.Len(t, result.Results[2].Output.Results, 1)
	assert.Equal(t, int64(11), result.Results[2].Output.Results[0].Minimum)
}

func TestRunBatch_Extensions(t *testing.T) {
	resetBatchFlags()
	batchExtensions = []string{".yml"}

	output, err := runBatchCmd(t, batchDir(t, true))
	require.NoError(t, err)
	assert.NotContains(t, output, "a.txt")
	assert.Contains(t, output, "1 solved, 0 failed")
}

func TestRunBatch_Errors(t *testing.T) {
	resetBatchFlags()
	_, err := runBatchCmd(t, t.TempDir())
	assert.ErrorContains(t, err, "no almanac files")

	resetBatchFlags()
	_, err = runBatchCmd(t, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	resetBatchFlags()
	batchMode = "sideways"
	_, err = runBatchCmd(t, batchDir(t, false))
	assert.Error(t, err)

	resetBatchFlags()
	batchFormat = "xml"
	_, err = runBatchCmd(t, batchDir(t, false))
	assert.Error(t, err)
}

func TestRunBatch_Git(t *testing.T) {
	resetBatchFlags()
	dir := batchDir(t, false)

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("a.txt")
	require.NoError(t, err)
	_, err = wt.Commit("add a", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	batchGit = true
	output, err := runBatchCmd(t, dir)
	require.NoError(t, err)

	// nested/b.yml is in the working tree only
	assert.Regexp(t, `a\.txt\s+3\s+0\s+ok`, output)
	assert.NotContains(t, output, "b.yml")
	assert.Contains(t, output, "1 solved, 0 failed")

	resetBatchFlags()
	batchGit = true
	batchRev = "missing"
	_, err = runBatchCmd(t, dir)
	assert.Error(t, err)
}

func TestRunBatch_PartialFailure(t *testing.T) {
	resetBatchFlags()
	dir := batchDir(t, false)
	// odd seed count: points succeed, ranges fail
	require.NoError(t, os.WriteFile(filepath.Join(dir, "odd.txt"), []byte("seeds: 8 2 5\n"), 0o644))

	output, err := runBatchCmd(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 almanacs failed")
	assert.Regexp(t, `odd\.txt\s+2\s+-\s+partial`, output)
	assert.Contains(t, output, "3 solved, 0 failed, 1 partial")
}

func TestFailedItems(t *testing.T) {
	result := &engine.BatchResult{
		Results: []engine.BatchItem{
			{Index: 0, Output: &engine.Output{}},
			{Index: 1, Output: &engine.Output{Errors: map[string]string{"ranges": "odd"}}},
			{Index: 2, Error: "parse error"},
		},
		Total:  2,
		Failed: 1,
	}
	assert.Equal(t, 2, failedItems(result))
}
