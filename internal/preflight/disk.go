package preflight

import (
	"fmt"
	"os"
	"syscall"

	"github.com/dustin/go-humanize"
)

// MinDiskSpaceBytes is the least free space a rebuild is allowed to start with.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// requiredSpace is the room a rebuild needs. The new blob is written next
// to the old one before the rename, so twice the current index size, and
// never less than MinDiskSpaceBytes.
func (c *Checker) requiredSpace() uint64 {
	need := uint64(MinDiskSpaceBytes)
	if fi, err := os.Stat(c.cfg.Paths.IndexPath()); err == nil {
		need = max(need, 2*uint64(fi.Size()))
	}
	return need
}

// CheckDiskSpace checks the free space on the filesystem holding path.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
		Details:  path,
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	need := c.requiredSpace()
	result.Message = fmt.Sprintf("%s free (needs %s)", humanize.IBytes(available), humanize.IBytes(need))
	if available < need {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}
