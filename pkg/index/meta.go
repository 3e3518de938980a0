package index

import (
	"encoding/binary"
	"hash/crc32"
	"strings"

	"github.com/google/uuid"

	"github.com/sankalp88/btreeindex/pkg/blockio"
	"github.com/sankalp88/btreeindex/pkg/bterr"
)

const (
	metaPathFieldSize  = 256
	metaKeySizeOffset  = 256
	metaHeightOffset   = 260
	metaUUIDOffset     = 264
	metaUUIDSize       = 16
	metaChecksumOffset = 1020
	metaBlockSize      = 1024
)

type metaBlock struct {
	dataPath string
	keySize  int32
	height   int32
	id       uuid.UUID
}

// writeMeta serializes m to block 0 of dev.
func writeMeta(dev *blockio.Device, m metaBlock) error {
	if len(m.dataPath) > metaPathFieldSize {
		return bterr.NewBadArgument("data file path exceeds the 256-byte meta-block field")
	}

	raw := make([]byte, metaBlockSize)
	copy(raw[0:metaPathFieldSize], m.dataPath)
	binary.BigEndian.PutUint32(raw[metaKeySizeOffset:metaKeySizeOffset+4], uint32(m.keySize))
	binary.BigEndian.PutUint32(raw[metaHeightOffset:metaHeightOffset+4], uint32(m.height))
	copy(raw[metaUUIDOffset:metaUUIDOffset+metaUUIDSize], m.id[:])

	stampChecksum(raw)

	dev.Seek(0)
	return dev.WriteBytes(raw)
}

// readMeta deserializes block 0 of dev, verifying its checksum.
func readMeta(dev *blockio.Device) (metaBlock, error) {
	dev.Seek(0)
	raw, err := dev.ReadBytes(metaBlockSize)
	if err != nil {
		return metaBlock{}, err
	}

	if err := verifyMetaChecksum(raw); err != nil {
		return metaBlock{}, err
	}

	path := strings.TrimRight(string(raw[0:metaPathFieldSize]), "\x00 \t\n")
	keySize := int32(binary.BigEndian.Uint32(raw[metaKeySizeOffset : metaKeySizeOffset+4]))
	height := int32(binary.BigEndian.Uint32(raw[metaHeightOffset : metaHeightOffset+4]))

	id, err := uuid.FromBytes(raw[metaUUIDOffset : metaUUIDOffset+metaUUIDSize])
	if err != nil {
		return metaBlock{}, bterr.NewCorruptIndex("meta-block instance id is not a valid uuid")
	}

	if keySize <= 0 {
		return metaBlock{}, bterr.NewCorruptIndex("meta-block key size is not positive")
	}

	return metaBlock{dataPath: path, keySize: keySize, height: height, id: id}, nil
}

// persistHeight rewrites only the height field of an already-written
// meta-block, preserving every other field, and recomputes the
// trailing checksum over the whole block.
func persistHeight(dev *blockio.Device, height int32) error {
	dev.Seek(0)
	raw, err := dev.ReadBytes(metaBlockSize)
	if err != nil {
		return err
	}

	binary.BigEndian.PutUint32(raw[metaHeightOffset:metaHeightOffset+4], uint32(height))
	stampChecksum(raw)

	dev.Seek(0)
	return dev.WriteBytes(raw)
}

func stampChecksum(raw []byte) {
	sum := crc32.ChecksumIEEE(raw[:metaChecksumOffset])
	binary.BigEndian.PutUint32(raw[metaChecksumOffset:metaBlockSize], sum)
}

func verifyMetaChecksum(raw []byte) error {
	want := binary.BigEndian.Uint32(raw[metaChecksumOffset:metaBlockSize])
	got := crc32.ChecksumIEEE(raw[:metaChecksumOffset])
	if want != got {
		return bterr.NewCorruptIndex("meta-block checksum mismatch")
	}
	return nil
}
