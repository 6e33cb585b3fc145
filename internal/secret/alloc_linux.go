//go:build linux

package secret

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func allocate(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	// mlock fails under a small RLIMIT_MEMLOCK; the region is still zeroed on release.
	locked := unix.Mlock(data) == nil

	_ = unix.Madvise(data, unix.MADV_DONTDUMP)

	release := func(region []byte) error {
		if locked {
			if err := unix.Munlock(region); err != nil {
				_ = unix.Munmap(region)

				return fmt.Errorf("secret: munlock failed: %w", err)
			}
		}

		if err := unix.Munmap(region); err != nil {
			return fmt.Errorf("secret: munmap failed: %w", err)
		}

		return nil
	}

	return data, release, nil
}
