// Package persist implements the mmap-backed append-only vector store
// (spec §4.8). Grounded on two teacher files: the binary section
// writer/reader shape and atomic-write pattern of
// xDarkicex-libravdb/internal/index/hnsw/persistence.go (encoding/binary,
// CRC32 over each section), and the raw mmap lifecycle of
// internal/memory/mmap.go (Mmap/Munmap/msync, unmap-truncate-remap for
// growth) — ported from syscall to golang.org/x/sys/unix for portability,
// since syscall.Mmap's constants are platform-specific in a way x/sys/unix
// normalizes. The on-disk layout itself is new: the teacher rewrites one
// monolithic file per save, while this format is append-only blocks so a
// checkpoint never touches block bytes a previous checkpoint already wrote
// (only the file header, whose vector count it updates).
package persist

import "encoding/binary"

const (
	// Magic identifies an annex vector file.
	Magic = "OMDB"

	// FormatVersion is the current on-disk format version.
	FormatVersion = uint32(2)

	// HeaderSize is the fixed size of the file header, including its
	// reserved tail (spec §4.8).
	HeaderSize = 1024

	// BlockHeaderSize is the fixed size of each vector block's header.
	BlockHeaderSize = 32

	// BlockAlignment is the boundary every block (header + vector bytes)
	// is padded up to.
	BlockAlignment = 64 * 1024
)

var byteOrder = binary.LittleEndian

// fileHeader is the fixed 1024-byte file header. Only the first 16 bytes
// carry information; the rest is reserved and zeroed.
type fileHeader struct {
	Magic       [4]byte
	Version     uint32
	Dimension   uint32
	VectorCount uint32
}

func (h *fileHeader) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	byteOrder.PutUint32(buf[4:8], h.Version)
	byteOrder.PutUint32(buf[8:12], h.Dimension)
	byteOrder.PutUint32(buf[12:16], h.VectorCount)
	return buf
}

func decodeFileHeader(buf []byte) fileHeader {
	var h fileHeader
	copy(h.Magic[:], buf[0:4])
	h.Version = byteOrder.Uint32(buf[4:8])
	h.Dimension = byteOrder.Uint32(buf[8:12])
	h.VectorCount = byteOrder.Uint32(buf[12:16])
	return h
}

// blockHeader precedes each vector block.
type blockHeader struct {
	VectorCount uint32
	Dimension   uint32
	Checksum    uint32
	BlockID     uint32
}

func (b *blockHeader) encode() []byte {
	buf := make([]byte, BlockHeaderSize)
	byteOrder.PutUint32(buf[0:4], b.VectorCount)
	byteOrder.PutUint32(buf[4:8], b.Dimension)
	byteOrder.PutUint32(buf[8:12], b.Checksum)
	byteOrder.PutUint32(buf[12:16], b.BlockID)
	return buf
}

func decodeBlockHeader(buf []byte) blockHeader {
	var b blockHeader
	b.VectorCount = byteOrder.Uint32(buf[0:4])
	b.Dimension = byteOrder.Uint32(buf[4:8])
	b.Checksum = byteOrder.Uint32(buf[8:12])
	b.BlockID = byteOrder.Uint32(buf[12:16])
	return b
}

// blockSize returns the padded on-disk footprint of a block holding
// vectorCount vectors of the given dimension.
func blockSize(vectorCount, dimension int) int64 {
	raw := int64(BlockHeaderSize) + int64(vectorCount)*int64(dimension)*4
	if raw%BlockAlignment == 0 {
		return raw
	}
	return raw + (BlockAlignment - raw%BlockAlignment)
}
