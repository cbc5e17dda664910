// Package fileutil provides shared file utilities for nextversion.
package fileutil

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxLineSize bounds a single manifest line read by RewriteLines.
const MaxLineSize = 1 << 20

type tempFile interface {
	Name() string
	Chmod(os.FileMode) error
	Write([]byte) (int, error)
	Sync() error
	Close() error
}

type fsOps struct {
	createTemp func(dir, pattern string) (tempFile, error)
	rename     func(oldpath, newpath string) error
	remove     func(path string) error
}

func defaultFSOps() fsOps {
	return fsOps{
		createTemp: func(dir, pattern string) (tempFile, error) {
			return os.CreateTemp(dir, pattern)
		},
		rename: os.Rename,
		remove: os.Remove,
	}
}

// ReadFileLimited reads a file up to maxSize bytes.
// Returns an error if the file exceeds the maximum size.
func ReadFileLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- caller is responsible for path validation
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed size %d", info.Size(), maxSize)
	}

	// Use LimitReader as an additional safety measure
	limitedReader := io.LimitReader(f, maxSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("file size exceeds maximum allowed size %d", maxSize)
	}

	return data, nil
}

// LineEditor is called with a 1-based line number and the line without its
// terminator. It returns the replacement text and whether the line changed.
type LineEditor func(lineNo int, line string) (string, bool)

// RewriteLines streams path through edit into a temp file in the same
// directory. edit is consulted until it reports a change; every other line is
// copied byte for byte with its original terminator (LF, CRLF, CR or none).
// On a change the temp file is synced, given the source permissions and
// renamed over path. Otherwise it is removed and false is returned.
func RewriteLines(path string, edit LineEditor) (bool, error) {
	return rewriteLines(path, edit, defaultFSOps())
}

func rewriteLines(path string, edit LineEditor, ops fsOps) (changed bool, err error) {
	src, err := os.Open(path) // #nosec G304 -- caller is responsible for path validation
	if err != nil {
		return false, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return false, err
	}

	// Create temp file in same directory (required for atomic rename)
	tmpFile, err := ops.createTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error or when nothing changed
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = ops.remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmpFile)
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	scanner.Split(scanLinesWithTerminator)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		token := scanner.Text()
		if !changed {
			line, eol := splitTerminator(token)
			if replacement, ok := edit(lineNo, line); ok {
				changed = true
				token = replacement + eol
			}
		}
		if _, err := w.WriteString(token); err != nil {
			return false, fmt.Errorf("failed to write data: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !changed {
		return false, nil
	}

	if err := w.Flush(); err != nil {
		return false, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Chmod(info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return false, fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		tmpFile = nil
		_ = ops.remove(tmpPath)
		return false, fmt.Errorf("failed to close file: %w", err)
	}
	tmpFile = nil

	if err := ops.rename(tmpPath, path); err != nil {
		_ = ops.remove(tmpPath)
		return false, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return true, nil
}

// ScanLines calls visit for each line of path without its terminator until
// visit returns false.
func ScanLines(path string, visit func(lineNo int, line string) bool) error {
	f, err := os.Open(path) // #nosec G304 -- caller is responsible for path validation
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	scanner.Split(scanLinesWithTerminator)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line, _ := splitTerminator(scanner.Text())
		if !visit(lineNo, line) {
			return nil
		}
	}
	return scanner.Err()
}

// scanLinesWithTerminator is a bufio.SplitFunc like bufio.ScanLines that
// keeps the terminator and also treats a lone CR as one.
func scanLinesWithTerminator(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i+1], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i+2], nil
			}
			return i + 1, data[:i+1], nil
		}
		if atEOF {
			return i + 1, data[:i+1], nil
		}
		// Need one more byte to tell CR from CRLF.
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func splitTerminator(token string) (line, eol string) {
	switch {
	case len(token) >= 2 && token[len(token)-2:] == "\r\n":
		return token[:len(token)-2], "\r\n"
	case len(token) >= 1 && (token[len(token)-1] == '\n' || token[len(token)-1] == '\r'):
		return token[:len(token)-1], token[len(token)-1:]
	}
	return token, ""
}
