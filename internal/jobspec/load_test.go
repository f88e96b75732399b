package jobspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	jobs, errs := LoadDir(filepath.Join("testdata", "jobs"))
	require.Empty(t, errs)
	require.Len(t, jobs, 2)

	assert.Equal(t, "reverse", jobs[0].Name)
	assert.Len(t, jobs[0].Tools, 3)
	assert.Equal(t, []string{"add type hints", "prefer table-driven tests"}, jobs[0].Nudges)

	assert.Equal(t, "parse_csv", jobs[1].Name)
	assert.Equal(t, 4, jobs[1].Parallelism)
	require.NotNil(t, jobs[1].Prior)
	assert.Equal(t, 4.0, jobs[1].Prior.Alpha)
}

func TestLoadDirCollectsErrors(t *testing.T) {
	jobs, errs := LoadDir(filepath.Join("testdata", "broken"))
	require.Len(t, jobs, 1)
	assert.Equal(t, "ok", jobs[0].Name)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "job.no_critical")
	assert.Contains(t, errs[1].Error(), "job.bad_margin")
	assert.Contains(t, errs[1].Error(), "stopping.n_diff_margin")
	assert.True(t, IsCompileError(errs[1]))
}

func TestLoadDirMissing(t *testing.T) {
	_, errs := LoadDir("/nonexistent/jobs")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not found")
}

func TestLoadDirEmpty(t *testing.T) {
	_, errs := LoadDir(t.TempDir())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no CUE files")
}

func TestLoadDirNotDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.cue")
	require.NoError(t, os.WriteFile(path, []byte("package jobs\n"), 0o644))

	_, errs := LoadDir(path)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not a directory")
}
