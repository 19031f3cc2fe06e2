//go:build linux

package cobs

import "golang.org/x/sys/unix"

// adviseRandom hints that the mapped index body will be accessed at random
// row offsets. Best-effort: errors are silently ignored.
func adviseRandom(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}
