// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
)

const outputFileMode = 0o644

// pendingFile is an output being written to a temporary file next to its
// destination. Commit renames it into place; Discard removes it.
type pendingFile struct {
	dest string
	file *os.File
	buf  *bufio.Writer
}

// createPending creates the temporary file for dest. Failure means the
// destination directory cannot take new files.
func createPending(dest string) (*pendingFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return nil, &DestinationError{Op: "create", Path: dest, Err: err}
	}
	return &pendingFile{dest: dest, file: tmp, buf: bufio.NewWriter(tmp)}, nil
}

func (p *pendingFile) Write(b []byte) (int, error) {
	return p.buf.Write(b)
}

// Commit flushes, syncs and renames the temporary file onto the destination.
func (p *pendingFile) Commit() error {
	tmpPath := p.file.Name()
	op, err := "write", p.buf.Flush()
	if err == nil {
		op, err = "sync", p.file.Sync()
	}
	if closeErr := p.file.Close(); err == nil && closeErr != nil {
		op, err = "close", closeErr
	}
	if err == nil {
		op, err = "chmod", os.Chmod(tmpPath, outputFileMode)
	}
	if err == nil {
		op, err = "rename", os.Rename(tmpPath, p.dest)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return &DestinationError{Op: op, Path: p.dest, Err: err}
	}
	return nil
}

// Discard drops the temporary file. The destination is left untouched.
func (p *pendingFile) Discard() error {
	closeErr := p.file.Close()
	if err := os.Remove(p.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if errors.Is(closeErr, os.ErrClosed) {
		return nil
	}
	return closeErr
}
