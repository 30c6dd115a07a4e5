package dma

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsRoot is where u-dma-buf publishes its device attributes.
const SysfsRoot = "/sys/class/u-dma-buf"

// u-dma-buf sync_direction values.
const (
	syncBidirectional = 0
	syncToDevice      = 1
	syncFromDevice    = 2
)

// syncer performs manual cache maintenance through the u-dma-buf sysfs
// attributes of one device.
type syncer struct {
	dir string
}

func newSyncer(root, name string) syncer {
	return syncer{dir: filepath.Join(root, name)}
}

func (s syncer) readUint(attr string) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, attr))
	if err != nil {
		return 0, fmt.Errorf("dma: read %s: %w", attr, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("dma: parse %s: %w", attr, err)
	}
	return v, nil
}

func (s syncer) write(attr string, v uint64) error {
	if err := os.WriteFile(filepath.Join(s.dir, attr), []byte(strconv.FormatUint(v, 10)), 0); err != nil {
		return fmt.Errorf("dma: write %s: %w", attr, err)
	}
	return nil
}

func (s syncer) sync(size int, direction uint64, trigger string) error {
	for _, kv := range []struct {
		attr string
		v    uint64
	}{
		{"sync_offset", 0},
		{"sync_size", uint64(size)},
		{"sync_direction", direction},
		{trigger, 1},
	} {
		if err := s.write(kv.attr, kv.v); err != nil {
			return err
		}
	}
	return nil
}

// flush hands the first size bytes to the device.
func (s syncer) flush(size int) error {
	return s.sync(size, syncToDevice, "sync_for_device")
}

// invalidate hands the first size bytes back to the processor.
func (s syncer) invalidate(size int) error {
	return s.sync(size, syncFromDevice, "sync_for_cpu")
}
