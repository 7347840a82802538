//go:build !linux && !darwin

package loader

import (
	"fmt"
	"os"
)

// readFile reads path into memory on platforms without mmap support
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxResourceSize {
		return nil, fmt.Errorf("read %s: resource larger than %d bytes", path, MaxResourceSize)
	}
	return os.ReadFile(path)
}
