package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultDiskStatsPath = "/proc/diskstats"
	defaultSysBlockPath  = "/sys/block"
)

// deviceState tracks one physical disk's read counter between samples.
type deviceState struct {
	sectorBytes int64
	lastSectors uint64
}

// DiskReader reports, per sample, the fastest single physical device's
// read rate in bytes per second since the previous sample. Virtual and
// loopback devices are excluded up front; sector counts are converted
// with each device's hardware sector size.
type DiskReader struct {
	statsPath    string
	sysBlockPath string
	devices      map[string]*deviceState
	lastSample   time.Time

	now func() time.Time // overridable in tests
}

// NewDiskReader scans the system's block devices and anchors their read
// counters. It fails when no physical disk counters are available.
func NewDiskReader() (*DiskReader, error) {
	return newDiskReader(defaultDiskStatsPath, defaultSysBlockPath)
}

func newDiskReader(statsPath, sysBlockPath string) (*DiskReader, error) {
	d := &DiskReader{
		statsPath:    statsPath,
		sysBlockPath: sysBlockPath,
		devices:      make(map[string]*deviceState),
		now:          time.Now,
	}

	counters, err := d.readCounters()
	if err != nil {
		return nil, err
	}
	for name, sectors := range counters {
		sectorBytes, ok := d.sectorSize(name)
		if !ok {
			// hw_sector_size exists for disks, not partitions.
			continue
		}
		d.devices[name] = &deviceState{
			sectorBytes: sectorBytes,
			lastSectors: sectors,
		}
	}
	if len(d.devices) == 0 {
		return nil, fmt.Errorf("no physical disk counters available")
	}
	d.lastSample = d.now()
	return d, nil
}

// FastestReadRate re-reads the counters and returns the highest
// single-device read rate in bytes/second since the previous sample.
// Transient read failures yield 0 for the tick.
func (d *DiskReader) FastestReadRate() float64 {
	now := d.now()
	elapsed := now.Sub(d.lastSample).Seconds()
	d.lastSample = now
	if elapsed <= 0 {
		return 0
	}

	counters, err := d.readCounters()
	if err != nil {
		return 0
	}

	fastest := 0.0
	for name, dev := range d.devices {
		sectors, ok := counters[name]
		if !ok || sectors < dev.lastSectors {
			continue
		}
		bytes := float64(sectors-dev.lastSectors) * float64(dev.sectorBytes)
		dev.lastSectors = sectors
		if rate := bytes / elapsed; rate > fastest {
			fastest = rate
		}
	}
	return fastest
}

// readCounters parses the sectors-read column for every non-loop device.
func (d *DiskReader) readCounters() (map[string]uint64, error) {
	f, err := os.Open(d.statsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", d.statsPath)
	}
	defer f.Close()
	return parseDiskStats(f)
}

// parseDiskStats extracts device name -> sectors read from diskstats
// content. Line layout:
//
//	8       4 sda4 5 0 28 108 0 0 0 0 0 108 108
//	     NAME--^       ^--sectors read
func parseDiskStats(r io.Reader) (map[string]uint64, error) {
	counters := make(map[string]uint64)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		name := fields[2]
		if strings.HasPrefix(name, "loop") {
			continue
		}
		sectors, err := strconv.ParseUint(fields[5], 10, 64)
		if err != nil {
			continue
		}
		counters[name] = sectors
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan diskstats")
	}
	return counters, nil
}

// sectorSize reads a device's hardware sector size. Absent for
// partitions and virtual devices.
func (d *DiskReader) sectorSize(dev string) (int64, bool) {
	raw, err := os.ReadFile(filepath.Join(d.sysBlockPath, dev, "queue", "hw_sector_size"))
	if err != nil {
		return 0, false
	}
	size, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || size <= 0 {
		return 0, false
	}
	return size, true
}
