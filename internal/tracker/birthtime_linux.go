//go:build linux

package tracker

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// platformBirthtime extracts the filesystem birthtime on Linux via
// statx, when the underlying filesystem reports it (ext4, btrfs, xfs).
// Filesystems without btime support (or kernels too old for statx)
// cause the caller to fall back to ModTime.
func platformBirthtime(path string, _ os.FileInfo) (time.Time, bool) {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err != nil {
		return time.Time{}, false
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}, false
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), true
}
