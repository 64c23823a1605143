package monitor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nmayer/fsbench/pkg/config"
	"github.com/nmayer/fsbench/pkg/workload"
)

type cpuStub struct {
	value float64
}

func (c cpuStub) Usage() float64 { return c.value }

type diskStub struct {
	rate float64
}

func (d diskStub) FastestReadRate() float64 { return d.rate }

// makeRun writes count input files of distinct sizes and returns a
// validated read-mode config over them.
func makeRun(t *testing.T, count, jobs int) (*config.Config, int64) {
	t.Helper()
	dir := t.TempDir()
	var inputs []string
	var total int64
	for i := 0; i < count; i++ {
		size := 512 * (i + 1)
		path := filepath.Join(dir, fmt.Sprintf("in-%03d", i))
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, path)
		total += int64(size)
	}
	cfg := &config.Config{Inputs: inputs, Jobs: jobs, ReportFPS: -1}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg, total
}

func TestEndToEndSeparateRead(t *testing.T) {
	cfg, total := makeRun(t, 10, 2)

	var out bytes.Buffer
	m := New(cfg, cpuStub{value: 0.1}, nil, &out)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	var doneSum, byteSum int64
	for _, w := range m.Workers() {
		if !w.IsDone() {
			t.Errorf("worker %d not finished after Run", w.ID())
		}
		doneSum += w.DoneCount()
		byteSum += w.TotalBytes()
	}
	if doneSum != 10 {
		t.Errorf("done sum = %d, want 10 (each index exactly once)", doneSum)
	}
	if byteSum != total {
		t.Errorf("byte sum = %d, want %d", byteSum, total)
	}

	report := out.String()
	if !strings.Contains(report, "Progress") {
		t.Error("report header missing")
	}
	if !strings.Contains(report, "done in") {
		t.Error("final summary missing")
	}
	if m.Samples() == 0 {
		t.Error("no throughput samples were collected")
	}
}

func TestSamePolicyEveryWorkerCoversAll(t *testing.T) {
	cfg, total := makeRun(t, 5, 3)
	cfg.Split = string(workload.PolicySame)

	var out bytes.Buffer
	m := New(cfg, nil, nil, &out)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	var doneSum, byteSum int64
	for _, w := range m.Workers() {
		doneSum += w.DoneCount()
		byteSum += w.TotalBytes()
	}
	if doneSum != 15 {
		t.Errorf("done sum = %d, want 15 (5 files x 3 workers)", doneSum)
	}
	if byteSum != 3*total {
		t.Errorf("byte sum = %d, want %d", byteSum, 3*total)
	}
}

func TestCachingWarningFires(t *testing.T) {
	cfg, _ := makeRun(t, 64, 1)

	// A disk that reports zero reads while the workers stream bytes from
	// the page cache must trip the caching warning.
	var out bytes.Buffer
	m := New(cfg, nil, diskStub{rate: 0}, &out)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "data may be cached") {
		t.Error("expected caching warning in report")
	}
}

func TestCPUBoundWarningFires(t *testing.T) {
	cfg, _ := makeRun(t, 64, 1)

	var out bytes.Buffer
	m := New(cfg, cpuStub{value: 1.5}, nil, &out)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "CPU-constrained") {
		t.Error("expected CPU-bound warning in report")
	}
}

func TestCPUSentinelShowsNA(t *testing.T) {
	cfg, _ := makeRun(t, 64, 1)

	var out bytes.Buffer
	m := New(cfg, cpuStub{value: -1}, nil, &out)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	report := out.String()
	if !strings.Contains(report, "n/a") {
		t.Error("overflow sentinel should render as n/a")
	}
	if strings.Contains(report, "CPU-constrained") {
		t.Error("overflow sentinel must suppress the CPU-bound warning")
	}
}

func TestRunRejectsBadEngine(t *testing.T) {
	cfg, _ := makeRun(t, 1, 1)
	cfg.Engine = "bogus"

	var out bytes.Buffer
	m := New(cfg, nil, nil, &out)
	if err := m.Run(); err == nil {
		t.Error("Run should fail before starting workers on a bad engine")
	}
}
