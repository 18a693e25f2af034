package persist

import (
	"fmt"
	"hash/crc32"
	"math"
	"os"

	"github.com/solidvec/annex/internal/errs"
)

// Vector is one (string id, values) pair as it travels through the
// persistence layer.
type Vector struct {
	ID     string
	Values []float32
}

// Store is a durable, append-only vector file plus its companion id-mapping
// metadata file (spec §4.8). Checkpoint appends one block per call; the
// only bytes already on disk that it rewrites are the file header's.
type Store struct {
	basePath string
	dim      int
	mapped   *mappedFile

	vectorCount uint32
	nextBlockID uint32
}

// Open opens an existing store at basePath, or creates a fresh one if no
// ".vectors" file exists yet. dim must match the file's recorded dimension
// for an existing store.
func Open(basePath string, dim int) (*Store, error) {
	vectorsPath := basePath + ".vectors"
	_, statErr := os.Stat(vectorsPath)
	fresh := os.IsNotExist(statErr)

	mapped, err := openMapped(vectorsPath, HeaderSize)
	if err != nil {
		return nil, err
	}

	s := &Store{basePath: basePath, dim: dim, mapped: mapped}

	if fresh {
		hdr := fileHeader{Version: FormatVersion, Dimension: uint32(dim)}
		copy(hdr.Magic[:], Magic)
		copy(mapped.data[:HeaderSize], hdr.encode())
		if err := mapped.sync(); err != nil {
			return nil, err
		}
		return s, nil
	}

	hdr := decodeFileHeader(mapped.data[:HeaderSize])
	if string(hdr.Magic[:]) != Magic {
		return nil, errs.New(errs.Corrupt, "persist: bad magic in vectors file")
	}
	if hdr.Version != FormatVersion {
		return nil, errs.New(errs.Corrupt, "persist: unsupported format version")
	}
	if int(hdr.Dimension) != dim {
		return nil, errs.Wrap(errs.Dimension, "persist: dimension mismatch with existing file",
			fmt.Errorf("file has %d, requested %d", hdr.Dimension, dim))
	}
	s.vectorCount = hdr.VectorCount

	nextBlockID, err := scanBlocks(mapped, dim, nil)
	if err != nil {
		return nil, err
	}
	s.nextBlockID = nextBlockID
	return s, nil
}

// Dim returns the store's fixed vector dimension.
func (s *Store) Dim() int { return s.dim }

// VectorCount returns the cumulative vector count recorded in the header.
func (s *Store) VectorCount() uint32 { return s.vectorCount }

// Close flushes and releases the underlying mapping.
func (s *Store) Close() error {
	if err := s.mapped.sync(); err != nil {
		return err
	}
	return s.mapped.close()
}

// Checkpoint appends one block containing vectors, updates the header's
// vector count, and msyncs (spec §4.8). It is a no-op for an empty batch.
func (s *Store) Checkpoint(vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v.Values) != s.dim {
			return errs.New(errs.Dimension, "persist: checkpoint vector dimension mismatch")
		}
	}

	bodySize := blockSize(len(vectors), s.dim)
	offset := s.mapped.size
	if err := s.mapped.grow(offset + bodySize); err != nil {
		return err
	}

	floatBytes := make([]byte, len(vectors)*s.dim*4)
	for i, v := range vectors {
		base := i * s.dim * 4
		for d, f := range v.Values {
			byteOrder.PutUint32(floatBytes[base+d*4:base+d*4+4], math.Float32bits(f))
		}
	}
	checksum := crc32.ChecksumIEEE(floatBytes)

	bh := blockHeader{
		VectorCount: uint32(len(vectors)),
		Dimension:   uint32(s.dim),
		Checksum:    checksum,
		BlockID:     s.nextBlockID,
	}
	copy(s.mapped.data[offset:offset+BlockHeaderSize], bh.encode())
	copy(s.mapped.data[offset+BlockHeaderSize:offset+BlockHeaderSize+int64(len(floatBytes))], floatBytes)

	if err := s.mapped.sync(); err != nil {
		return err
	}

	s.vectorCount += uint32(len(vectors))
	s.nextBlockID++

	hdr := fileHeader{Version: FormatVersion, Dimension: uint32(s.dim), VectorCount: s.vectorCount}
	copy(hdr.Magic[:], Magic)
	copy(s.mapped.data[:HeaderSize], hdr.encode())
	if err := s.mapped.sync(); err != nil {
		return err
	}

	return appendMetaBlock(s.basePath+".meta", vectors)
}

// Recover reads every block in the vectors file plus its companion
// metadata file and returns the full recovered population in block order.
// The caller is responsible for rebuilding the arena, id maps, and graph
// from the result (spec §4.8: the graph itself is not persisted).
func (s *Store) Recover() ([]Vector, error) {
	metaBlocks, err := readMetaBlocks(s.basePath + ".meta")
	if err != nil {
		return nil, err
	}

	var out []Vector
	blockIdx := 0
	_, err = scanBlocks(s.mapped, s.dim, func(bh blockHeader, floatBytes []byte) error {
		if blockIdx >= len(metaBlocks) {
			return errs.New(errs.Corrupt, "persist: more vector blocks than metadata blocks")
		}
		ids := metaBlocks[blockIdx]
		blockIdx++
		if len(ids) != int(bh.VectorCount) {
			return errs.New(errs.Corrupt, "persist: metadata/vector block size mismatch")
		}
		for i := 0; i < int(bh.VectorCount); i++ {
			vec := make([]float32, s.dim)
			base := i * s.dim * 4
			for d := 0; d < s.dim; d++ {
				bits := byteOrder.Uint32(floatBytes[base+d*4 : base+d*4+4])
				vec[d] = math.Float32frombits(bits)
			}
			out = append(out, Vector{ID: ids[i], Values: vec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scanBlocks walks every complete block in the vectors file starting at
// HeaderSize, invoking onBlock (if non-nil) with each block's header and
// raw float bytes, validating its checksum when one was recorded. It
// returns the id the next appended block should use.
func scanBlocks(mapped *mappedFile, dim int, onBlock func(blockHeader, []byte) error) (uint32, error) {
	offset := int64(HeaderSize)
	var nextBlockID uint32

	for offset+BlockHeaderSize <= mapped.size {
		bh := decodeBlockHeader(mapped.data[offset : offset+BlockHeaderSize])
		if bh.VectorCount == 0 && bh.Dimension == 0 {
			break // unwritten tail
		}
		bodyLen := int64(bh.VectorCount) * int64(bh.Dimension) * 4
		floatStart := offset + BlockHeaderSize
		if floatStart+bodyLen > mapped.size {
			return 0, errs.New(errs.Corrupt, "persist: block body runs past end of file")
		}
		floatBytes := mapped.data[floatStart : floatStart+bodyLen]

		if bh.Checksum != 0 {
			if crc32.ChecksumIEEE(floatBytes) != bh.Checksum {
				return 0, errs.New(errs.Corrupt, "persist: block checksum mismatch")
			}
		}

		if onBlock != nil {
			if err := onBlock(bh, floatBytes); err != nil {
				return 0, err
			}
		}

		nextBlockID = bh.BlockID + 1
		offset += blockSize(int(bh.VectorCount), int(bh.Dimension))
	}
	return nextBlockID, nil
}
