// Package datafile is the line-oriented adaptor over the flat text file
// the index points into. It never interprets a line beyond knowing
// where it starts and where it ends; key extraction is the caller's
// responsibility.
package datafile

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/sankalp88/btreeindex/pkg/bterr"
)

// File is a thread-safe append/read-at-offset view over a single text
// file. Unlike blockio.Device it is not block-structured: records are
// newline-delimited lines of arbitrary length.
type File struct {
	mu   sync.Mutex
	file *os.File
}

// Open creates or opens the file at path for read/write without
// truncating it. Append writes at the current end of the file.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &File{file: f}, nil
}

// Append writes line to the end of the file, adding a trailing newline
// if line does not already have one, and returns the byte offset at
// which the write started — the value-offset that gets indexed.
func (f *File) Append(line string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}

	info, err := f.file.Stat()
	if err != nil {
		return 0, bterr.NewIoError(0, 0, err)
	}
	offset := info.Size()

	if _, err := f.file.WriteAt([]byte(line), offset); err != nil {
		return 0, bterr.NewIoError(offset, len(line), err)
	}
	return offset, nil
}

// ReadLineAt returns the line starting at offset, stopping at the next
// newline (exclusive) or EOF.
func (f *File) ReadLineAt(offset int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.file.Seek(offset, 0); err != nil {
		return "", bterr.NewIoError(offset, 0, err)
	}

	r := bufio.NewReader(f.file)
	line, err := r.ReadString('\n')
	if err != nil {
		// EOF with a partial final line is a normal, not corrupt, case:
		// the last line of the file need not end in a newline while it
		// is being read (only Append guarantees one on write).
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return line, nil
		}
		return "", bterr.NewIoError(offset, 0, err)
	}

	return line[:len(line)-1], nil
}

// Length returns the current size of the file in bytes.
func (f *File) Length() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := f.file.Stat()
	if err != nil {
		return 0, bterr.NewIoError(0, 0, err)
	}
	return info.Size(), nil
}

// Close releases the underlying file handle.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

// ScanLines reads the file at path from the start, invoking fn with
// each line's starting byte offset and its text with the trailing
// newline stripped. Used by index creation to bulk-build from an
// existing data file without routing every line through Append.
func ScanLines(path string, fn func(offset int64, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return bterr.NewIoError(0, 0, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var offset int64
	for {
		raw, err := r.ReadString('\n')
		if len(raw) > 0 {
			text := raw
			if text[len(text)-1] == '\n' {
				text = text[:len(text)-1]
			}
			if cbErr := fn(offset, text); cbErr != nil {
				return cbErr
			}
			offset += int64(len(raw))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return bterr.NewIoError(offset, 0, err)
		}
	}
}
