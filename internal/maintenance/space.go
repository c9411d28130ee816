package maintenance

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// SpaceProbe reports the free bytes available on the filesystem holding path.
type SpaceProbe func(path string) (uint64, error)

// DiskFreeSpace is the default SpaceProbe, backed by the OS disk usage stats.
func DiskFreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("maintenance: failed to stat disk usage for %s: %w", path, err)
	}
	return usage.Free, nil
}
