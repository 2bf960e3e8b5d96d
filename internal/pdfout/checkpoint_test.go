package pdfout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBegin_CreatesOutputDirAndArtifact(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "out", "NGM_199412.pdf")

	cp, err := Begin(final, ".chk")
	require.NoError(t, err)
	defer cp.Abort()

	assert.FileExists(t, final+".chk")
	assert.NoFileExists(t, final)
	assert.Equal(t, final+".chk", cp.Path())
	assert.Equal(t, final, cp.FinalPath())
}

func TestBegin_EmptySuffixUsesDefault(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "NGM_199501.pdf")

	cp, err := Begin(final, "")
	require.NoError(t, err)
	defer cp.Abort()

	assert.Equal(t, final+DefaultCheckpointSuffix, cp.Path())
}

func TestCheckpoint_CommitPromotesAtomically(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "NGM_199412.pdf")

	cp, err := Begin(final, ".chk")
	require.NoError(t, err)

	_, err = cp.File().Write([]byte("%PDF-1.4 test payload"))
	require.NoError(t, err)
	require.NoError(t, cp.Commit())

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test payload", string(data))
	assert.NoFileExists(t, final+".chk")
}

func TestCheckpoint_AbortLeavesNothing(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "NGM_199412.pdf")

	cp, err := Begin(final, ".chk")
	require.NoError(t, err)

	_, err = cp.File().Write([]byte("partial"))
	require.NoError(t, err)
	cp.Abort()

	assert.NoFileExists(t, final)
	assert.NoFileExists(t, final+".chk")
}

func TestCheckpoint_AbortAfterCommitKeepsFinal(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "NGM_199412.pdf")

	cp, err := Begin(final, ".chk")
	require.NoError(t, err)
	_, err = cp.File().Write([]byte("done"))
	require.NoError(t, err)
	require.NoError(t, cp.Commit())

	cp.Abort()

	assert.FileExists(t, final)
}

func TestCheckpoint_DoubleCommitFails(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "NGM_199412.pdf")

	cp, err := Begin(final, ".chk")
	require.NoError(t, err)
	require.NoError(t, cp.Commit())

	assert.Error(t, cp.Commit())
}

func TestBegin_TruncatesStaleArtifact(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "NGM_199412.pdf")
	require.NoError(t, os.WriteFile(final+".chk", []byte("stale leftovers from a crash"), 0o644))

	cp, err := Begin(final, ".chk")
	require.NoError(t, err)
	defer cp.Abort()

	info, err := os.Stat(final + ".chk")
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
