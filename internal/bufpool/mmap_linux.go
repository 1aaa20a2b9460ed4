//go:build linux

package bufpool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allocRegion maps anonymous memory rounded up to whole pages.
func allocRegion(size int) ([]byte, error) {
	page := unix.Getpagesize()
	length := (size + page - 1) / page * page

	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", length, err)
	}
	return mem, nil
}

func freeRegion(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
