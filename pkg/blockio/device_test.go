package blockio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.idx")

	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("device file was not created")
	}
}

func TestReadWriteBytes(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.idx")

	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	data := []byte("test data")

	dev.Seek(0)
	if err := dev.WriteBytes(data); err != nil {
		t.Fatalf("Failed to write data: %v", err)
	}

	dev.Seek(0)
	readData, err := dev.ReadBytes(len(data))
	if err != nil {
		t.Fatalf("Failed to read data: %v", err)
	}

	if !bytes.Equal(readData, data) {
		t.Errorf("Expected data %s, got %s", data, readData)
	}
}

func TestReadWriteFixedWidth(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.idx")

	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	dev.Seek(0)
	if err := dev.WriteByte(0x42); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := dev.WriteBool(true); err != nil {
		t.Fatalf("WriteBool: %v", err)
	}
	if err := dev.WriteInt32(-7); err != nil {
		t.Fatalf("WriteInt32: %v", err)
	}
	if err := dev.WriteInt64(1 << 40); err != nil {
		t.Fatalf("WriteInt64: %v", err)
	}

	dev.Seek(0)
	b, err := dev.ReadByte()
	if err != nil || b != 0x42 {
		t.Fatalf("ReadByte = %v, %v", b, err)
	}
	flag, err := dev.ReadBool()
	if err != nil || !flag {
		t.Fatalf("ReadBool = %v, %v", flag, err)
	}
	i32, err := dev.ReadInt32()
	if err != nil || i32 != -7 {
		t.Fatalf("ReadInt32 = %v, %v", i32, err)
	}
	i64, err := dev.ReadInt64()
	if err != nil || i64 != 1<<40 {
		t.Fatalf("ReadInt64 = %v, %v", i64, err)
	}
}

func TestBoolEncodingIsSingleByte(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.idx")

	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	dev.Seek(0)
	if err := dev.WriteBool(false); err != nil {
		t.Fatalf("WriteBool: %v", err)
	}

	dev.Seek(0)
	raw, err := dev.ReadBytes(1)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if raw[0] != 0x00 {
		t.Errorf("expected 0x00 for false, got %#x", raw[0])
	}
}

// writeAtLocked and readAtLocked bypass the Seek+op pair on purpose: the
// cursor is shared Device state, so two separate locked calls (Seek,
// then WriteBytes) from different goroutines can interleave and clobber
// each other's cursor. Concurrent callers in this codebase never do
// that; real callers always Seek and then immediately read or write from
// a single goroutine. This test instead checks that the file itself
// tolerates concurrent positional access, the same way the underlying
// *os.File is exercised by Device's single-call ReadAt/WriteAt pair.
// writeAtLocked reports failures with t.Errorf, not t.Fatalf: it runs
// inside spawned goroutines, and Fatal is only safe to call from the
// goroutine running the test function itself.
func writeAtLocked(t *testing.T, dev *Device, offset int64, data []byte) {
	t.Helper()
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if _, err := dev.file.WriteAt(data, offset); err != nil {
		t.Errorf("WriteAt: %v", err)
	}
}

func readAtLocked(t *testing.T, dev *Device, offset int64, n int) []byte {
	t.Helper()
	dev.mu.Lock()
	defer dev.mu.Unlock()
	buf := make([]byte, n)
	if _, err := dev.file.ReadAt(buf, offset); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	return buf
}

func TestConcurrentReadWrite(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.idx")

	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	const numGoroutines = 10
	const numOperations = 100
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(routineID int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				offset := int64(routineID*numOperations+j) * 100
				data := []byte(fmt.Sprintf("data_%d_%d", routineID, j))
				writeAtLocked(t, dev, offset, data)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		for j := 0; j < numOperations; j++ {
			offset := int64(i*numOperations+j) * 100
			expected := []byte(fmt.Sprintf("data_%d_%d", i, j))
			got := readAtLocked(t, dev, offset, len(expected))
			if !bytes.Equal(got, expected) {
				t.Errorf("Expected data %s, got %s", expected, got)
			}
		}
	}
}

func TestClose(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.idx")

	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}

	dev.Seek(0)
	if err := dev.WriteBytes([]byte("test data")); err != nil {
		t.Fatalf("Failed to write data: %v", err)
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("Failed to close device: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("device file was deleted after close")
	}
}

func TestLength(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.idx")

	dev, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	dev.Seek(0)
	if err := dev.WriteBytes(bytes.Repeat([]byte{0}, 2048)); err != nil {
		t.Fatalf("Failed to write data: %v", err)
	}

	n, err := dev.Length()
	if err != nil {
		t.Fatalf("Length: %v", err)
	}
	if n != 2048 {
		t.Errorf("expected length 2048, got %d", n)
	}
}
