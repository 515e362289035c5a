//go:build !linux

package filesystem

import (
	"os"
	"time"
)

// ChangeTime falls back to the modification time on this platform.
func ChangeTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
