package persist

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/solidvec/annex/internal/errs"
)

// mappedFile is a growable memory-mapped region backing the vectors file.
// Adapted from xDarkicex-libravdb/internal/memory/mmap.go's MemoryMap, with
// syscall.Mmap/Munmap replaced by golang.org/x/sys/unix's equivalents.
type mappedFile struct {
	file *os.File
	data []byte
	size int64
}

func openMapped(path string, initialSize int64) (*mappedFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "persist: open vectors file", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errs.Wrap(errs.Io, "persist: stat vectors file", err)
	}

	size := stat.Size()
	if size < initialSize {
		if err := file.Truncate(initialSize); err != nil {
			file.Close()
			return nil, errs.Wrap(errs.Io, "persist: truncate vectors file", err)
		}
		size = initialSize
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, errs.Wrap(errs.Io, "persist: mmap vectors file", err)
	}

	return &mappedFile{file: file, data: data, size: size}, nil
}

// grow extends the mapping to at least newSize bytes, unmapping, extending
// the underlying file, and remapping (spec §4.8: "Files grow by extending
// the mapped length and ftruncate-ing").
func (m *mappedFile) grow(newSize int64) error {
	if newSize <= m.size {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return errs.Wrap(errs.Io, "persist: unmap before grow", err)
	}
	if err := m.file.Truncate(newSize); err != nil {
		return errs.Wrap(errs.Io, "persist: truncate vectors file", err)
	}
	data, err := unix.Mmap(int(m.file.Fd()), 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errs.Wrap(errs.Io, "persist: remap vectors file", err)
	}
	m.data = data
	m.size = newSize
	return nil
}

// sync flushes mapped writes to disk.
func (m *mappedFile) sync() error {
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return errs.Wrap(errs.Io, "persist: msync", err)
	}
	return nil
}

// close unmaps and closes the backing file. Callers must sync first if
// pending writes should be durable.
func (m *mappedFile) close() error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return errs.Wrap(errs.Io, "persist: munmap on close", err)
		}
		m.data = nil
	}
	return m.file.Close()
}
