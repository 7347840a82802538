//go:build linux || darwin

package loader

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// readFile maps path read-only and copies it out, so the resource can outlive
// the mapping once it lands in the cache.
func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if size == 0 {
		return []byte{}, nil
	}
	if size > MaxResourceSize {
		return nil, fmt.Errorf("read %s: resource larger than %d bytes", path, MaxResourceSize)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// Special files (pipes, procfs) cannot be mapped
		return os.ReadFile(path)
	}
	defer unix.Munmap(data)

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
