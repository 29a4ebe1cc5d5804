// Package testutil holds helpers shared by the estimator tests.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoRoot is three directories above this file.
func repoRoot(t *testing.T) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "locating testutil source")
	return filepath.Join(filepath.Dir(file), "..", "..", "..")
}

// FixturePath returns the path of name under testdata/ and fails the test if
// the file is missing.
func FixturePath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRoot(t), "testdata", name)
	_, err := os.Stat(path)
	require.NoErrorf(t, err, "fixture %s", name)
	return path
}

// AssertFloat64Equal checks that got is within relTol of want, relative to the
// larger magnitude of the two.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == got {
		return
	}
	scale := math.Max(math.Abs(want), math.Abs(got))
	assert.LessOrEqualf(t, math.Abs(want-got)/scale, relTol, "%s: got %v, want %v", name, got, want)
}
