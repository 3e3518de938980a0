// Package blockio provides a thread-safe, cursor-based view over a
// single random-access file. It is the lowest layer of the index: the
// node codec and tree engine never touch *os.File directly, only the
// seek/read/write primitives exposed here.
package blockio

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sankalp88/btreeindex/pkg/bterr"
)

// Device represents a thread-safe random-access file handle with an
// internal byte cursor: callers Seek to a byte offset and then issue a
// sequence of typed reads or writes from there, rather than passing an
// offset on every call.
type Device struct {
	file   *os.File
	mu     sync.Mutex
	cursor int64
}

// Open opens (creating if absent) the file at path for read/write
// access without discarding any existing contents, creating any
// missing parent directories.
func Open(path string) (*Device, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	return &Device{file: f}, nil
}

// Create opens the file at path for read/write access, truncating any
// existing contents, creating any missing parent directories. Used by
// index creation, which always starts from an empty index file.
func Create(path string) (*Device, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	return &Device{file: f}, nil
}

// Seek positions the cursor at the given byte offset. It does not
// itself touch the underlying file; the next read/write call issues
// the actual I/O at this offset.
func (d *Device) Seek(offset int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = offset
}

// Length returns the current size of the file in bytes.
func (d *Device) Length() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stat, err := d.file.Stat()
	if err != nil {
		return 0, bterr.NewIoError(d.cursor, 0, err)
	}
	return stat.Size(), nil
}

// Close releases the underlying file handle.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

func (d *Device) readLocked(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := d.file.ReadAt(buf, d.cursor)
	if err != nil && !(err == io.EOF && read == n) {
		return nil, bterr.NewIoError(d.cursor, n, err)
	}
	d.cursor += int64(n)
	return buf, nil
}

func (d *Device) writeLocked(b []byte) error {
	if _, err := d.file.WriteAt(b, d.cursor); err != nil {
		return bterr.NewIoError(d.cursor, len(b), err)
	}
	d.cursor += int64(len(b))
	return nil
}

// ReadByte reads a single byte at the cursor and advances it.
func (d *Device) ReadByte() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.readLocked(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool reads a one-byte boolean: 0x00 is false, anything else is true.
func (d *Device) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0x00, nil
}

// ReadInt32 reads a big-endian 32-bit signed integer.
func (d *Device) ReadInt32() (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.readLocked(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadInt64 reads a big-endian 64-bit signed integer.
func (d *Device) ReadInt64() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.readLocked(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ReadBytes reads the next n raw bytes.
func (d *Device) ReadBytes(n int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readLocked(n)
}

// WriteByte writes a single byte at the cursor and advances it.
func (d *Device) WriteByte(b byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeLocked([]byte{b})
}

// WriteBool writes a one-byte boolean: true as 0x01, false as 0x00.
func (d *Device) WriteBool(b bool) error {
	v := byte(0x00)
	if b {
		v = 0x01
	}
	return d.WriteByte(v)
}

// WriteInt32 writes a big-endian 32-bit signed integer.
func (d *Device) WriteInt32(v int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return d.writeLocked(buf)
}

// WriteInt64 writes a big-endian 64-bit signed integer.
func (d *Device) WriteInt64(v int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return d.writeLocked(buf)
}

// WriteBytes writes raw bytes at the cursor.
func (d *Device) WriteBytes(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeLocked(b)
}
