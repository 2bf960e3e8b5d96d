// Package pdfout assembles, checkpoints, and verifies produced PDF documents.
package pdfout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

// DefaultCheckpointSuffix is appended to the final name while assembly is
// in progress.
const DefaultCheckpointSuffix = ".chk"

// Checkpoint owns the lifecycle of one in-progress output file. Assembly
// writes into a sibling artifact carrying the checkpoint suffix; Commit
// promotes it to the final path with an atomic rename, Abort removes it.
// The final path therefore holds either a complete document or nothing.
type Checkpoint struct {
	finalPath string
	tempPath  string
	file      *os.File
	done      bool
}

// Begin creates the output directory if needed and opens a fresh checkpoint
// artifact for finalPath. A stale artifact left by an interrupted run is
// truncated and reused.
func Begin(finalPath, suffix string) (*Checkpoint, error) {
	if suffix == "" {
		suffix = DefaultCheckpointSuffix
	}
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("create output directory %s", dir), err)
	}

	tempPath := finalPath + suffix
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("create checkpoint %s", tempPath), err)
	}
	return &Checkpoint{finalPath: finalPath, tempPath: tempPath, file: f}, nil
}

// File exposes the open checkpoint handle for the assembler to stream into.
func (c *Checkpoint) File() *os.File {
	return c.file
}

// Path returns the checkpoint artifact path, used for verification before
// the rename.
func (c *Checkpoint) Path() string {
	return c.tempPath
}

// FinalPath returns the destination the checkpoint promotes to on Commit.
func (c *Checkpoint) FinalPath() string {
	return c.finalPath
}

// Commit flushes the checkpoint to stable storage and renames it onto the
// final path. On error the artifact stays behind for Abort to collect and
// the final path is left untouched.
func (c *Checkpoint) Commit() error {
	if c.done {
		return domain.AssemblyError("checkpoint already finished", nil)
	}
	if err := c.file.Sync(); err != nil {
		c.file.Close()
		return domain.IOError("sync checkpoint", err)
	}
	if err := c.file.Close(); err != nil {
		return domain.IOError("close checkpoint", err)
	}
	if err := os.Rename(c.tempPath, c.finalPath); err != nil {
		return domain.IOError(fmt.Sprintf("promote %s", filepath.Base(c.finalPath)), err)
	}
	c.done = true
	syncDir(filepath.Dir(c.finalPath))
	return nil
}

// Abort closes and removes the checkpoint artifact. After Commit it is a
// no-op, so callers can defer it unconditionally.
func (c *Checkpoint) Abort() {
	if c.done {
		return
	}
	c.done = true
	c.file.Close()
	os.Remove(c.tempPath)
}

// syncDir flushes directory metadata so a completed rename survives a crash.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	d.Sync()
}
