//go:build linux

package filesystem

import (
	"os"
	"syscall"
	"time"
)

// ChangeTime returns the inode change time of info.
func ChangeTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec)) //nolint:unconvert // field width differs per arch
	}
	return info.ModTime()
}
