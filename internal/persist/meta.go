package persist

import (
	"os"

	"github.com/solidvec/annex/internal/errs"
)

// appendMetaBlock appends one id-mapping record to the ".meta" companion
// file: [4-byte id_count][per id: 4-byte len, UTF-8 bytes, 4-byte
// index-within-block] (spec §4.8). One record per Checkpoint call, in the
// same order as the matching vectors block.
func appendMetaBlock(path string, vectors []Vector) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return errs.Wrap(errs.Io, "persist: open meta file", err)
	}
	defer f.Close()

	buf := make([]byte, 4, 4+len(vectors)*16)
	byteOrder.PutUint32(buf[0:4], uint32(len(vectors)))
	for i, v := range vectors {
		lenBuf := make([]byte, 4)
		byteOrder.PutUint32(lenBuf, uint32(len(v.ID)))
		buf = append(buf, lenBuf...)
		buf = append(buf, v.ID...)
		idxBuf := make([]byte, 4)
		byteOrder.PutUint32(idxBuf, uint32(i))
		buf = append(buf, idxBuf...)
	}
	if _, err := f.Write(buf); err != nil {
		return errs.Wrap(errs.Io, "persist: write meta block", err)
	}
	return nil
}

// readMetaBlocks reads every record in the ".meta" file in append order,
// returning one []string per block with each id placed at its recorded
// index-within-block. A missing file (nothing ever checkpointed) yields no
// blocks rather than an error.
func readMetaBlocks(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.Io, "persist: read meta file", err)
	}

	var blocks [][]string
	pos := 0
	for pos < len(data) {
		if pos+4 > len(data) {
			return nil, errs.New(errs.Corrupt, "persist: truncated meta block count")
		}
		idCount := int(byteOrder.Uint32(data[pos : pos+4]))
		pos += 4

		ids := make([]string, idCount)
		for i := 0; i < idCount; i++ {
			if pos+4 > len(data) {
				return nil, errs.New(errs.Corrupt, "persist: truncated meta id length")
			}
			idLen := int(byteOrder.Uint32(data[pos : pos+4]))
			pos += 4
			if idLen < 0 || pos+idLen+4 > len(data) {
				return nil, errs.New(errs.Corrupt, "persist: truncated meta id entry")
			}
			id := string(data[pos : pos+idLen])
			pos += idLen
			index := int(byteOrder.Uint32(data[pos : pos+4]))
			pos += 4
			if index < 0 || index >= idCount {
				return nil, errs.New(errs.Corrupt, "persist: meta index out of range")
			}
			ids[index] = id
		}
		blocks = append(blocks, ids)
	}
	return blocks, nil
}
