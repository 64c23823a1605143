// Package monitor drives one complete benchmark run: it partitions the
// workload, starts the workers, samples them together with the system
// telemetry at the pacemaker's cadence, and prints the periodic report
// and the final robust summary.
package monitor

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/fatih/color"

	"github.com/nmayer/fsbench/pkg/config"
	"github.com/nmayer/fsbench/pkg/pace"
	"github.com/nmayer/fsbench/pkg/span"
	"github.com/nmayer/fsbench/pkg/stats"
	"github.com/nmayer/fsbench/pkg/worker"
	"github.com/nmayer/fsbench/pkg/workload"
)

// idleSleep is how long the loop yields between pacing checks.
const idleSleep = 10 * time.Millisecond

const mib = 1024 * 1024

// CPUSource reports the CPU usage ratio accumulated since its previous
// call. Negative values are an overflow sentinel and must be discarded.
type CPUSource interface {
	Usage() float64
}

// DiskSource reports the fastest physical device's read rate in
// bytes/second since its previous call.
type DiskSource interface {
	FastestReadRate() float64
}

var (
	bold  = color.New(color.Bold).SprintFunc()
	alert = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Monitor owns the control thread of a run. Either telemetry source may
// be nil, which disables the corresponding columns and warnings.
type Monitor struct {
	cfg  *config.Config
	cpu  CPUSource
	disk DiskSource
	out  io.Writer

	pacer   *pace.Pacemaker
	agg     stats.Aggregator
	workers []*worker.Worker
	rng     *rand.Rand
}

// New builds a monitor for the validated config. The report stream goes
// to out.
func New(cfg *config.Config, cpu CPUSource, disk DiskSource, out io.Writer) *Monitor {
	return &Monitor{
		cfg:   cfg,
		cpu:   cpu,
		disk:  disk,
		out:   out,
		pacer: pace.New(cfg.ReportFPS, false),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes the whole benchmark: plan, start, report until all
// workers finish, join, summarize.
func (m *Monitor) Run() error {
	backend, err := worker.NewBackend(m.cfg.Engine)
	if err != nil {
		return err
	}

	plans, err := workload.Plan(m.cfg.FileCount(), m.cfg.Jobs, m.cfg.SplitPolicy(), m.cfg.Randomize, m.rng)
	if err != nil {
		return err
	}
	m.workers = make([]*worker.Worker, len(plans))
	for i, plan := range plans {
		m.workers[i] = worker.New(i, plan, m.cfg, backend)
	}

	m.printHeader()
	run := span.Begin()

	for _, w := range m.workers {
		w.Start()
	}
	m.pacer.Reset()

	for !m.allFinished() {
		if m.pacer.IsDue() {
			m.tick()
		} else {
			time.Sleep(idleSleep)
		}
	}

	for _, w := range m.workers {
		w.Stop()
	}

	m.printSummary(run.End())
	return nil
}

func (m *Monitor) allFinished() bool {
	for _, w := range m.workers {
		if !w.IsDone() {
			return false
		}
	}
	return true
}

// tick samples every worker plus the telemetry, records the aggregate
// throughput, and prints one report row with any warnings.
func (m *Monitor) tick() {
	var doneSum int64
	var throughput float64
	active := 0
	for _, w := range m.workers {
		doneSum += w.DoneCount()
		throughput += w.Throughput()
		if !w.IsDone() {
			active++
		}
	}

	progress := 0.0
	if total := workload.TotalWork(m.cfg.FileCount(), m.cfg.Jobs, m.cfg.SplitPolicy()); total > 0 {
		progress = 100 * float64(doneSum) / float64(total)
	}

	perWorker := 0.0
	if active > 0 {
		perWorker = throughput / float64(active)
	}

	cpuUsage := telemetrySample(m.cpu)
	cpuTotal, cpuPer := "    n/a ", "    n/a "
	if cpuUsage >= 0 {
		cpuTotal = fmt.Sprintf("%6.1f%% ", cpuUsage*100)
		if active > 0 {
			cpuPer = fmt.Sprintf("%6.1f%% ", cpuUsage*100/float64(active))
		}
	}

	m.agg.AddSample(throughput)

	fmt.Fprintf(m.out, "%7.2f%%  %s  %8.1f MB/s  %s  %s\n",
		progress,
		bold(fmt.Sprintf("%8.1f MB/s", throughput/mib)),
		perWorker/mib,
		cpuTotal,
		cpuPer)

	// CPU near saturation relative to the active workers means the
	// benchmark measures the CPU, not the storage.
	if cpuUsage >= 0 && active > 0 && cpuUsage >= 0.9*float64(active) {
		fmt.Fprintf(m.out, "     %s (benchmark might be CPU-constrained; use more workers!)\n", alert("!!!"))
	}

	// Observed speed well above what any disk physically read means the
	// data is coming out of a cache.
	if m.disk != nil {
		diskRate := m.disk.FastestReadRate()
		if throughput > 1.1*diskRate {
			fmt.Fprintf(m.out, "     %s (actual disk is much slower (%.0f MB/s); data may be cached!)\n",
				alert("!!!"), diskRate/mib)
		}
	}
}

func telemetrySample(cpu CPUSource) float64 {
	if cpu == nil {
		return -1
	}
	return cpu.Usage()
}

func (m *Monitor) printHeader() {
	hline := strings.Repeat("-", 80)
	fmt.Fprintln(m.out, hline)
	fmt.Fprintf(m.out, "%-9s  %-14s  %-13s  %-8s  %-8s\n",
		"Progress", "speed (total)", "speed (worker)", "CPU (total)", "CPU (worker)")
	fmt.Fprintln(m.out, hline)
}

func (m *Monitor) printSummary(elapsed time.Duration) {
	fmt.Fprintln(m.out, strings.Repeat("-", 80))
	fmt.Fprintf(m.out, "%7.2f%%  done in %s\n", 100.0, elapsed.Round(time.Millisecond))

	if avg, reliable, err := m.agg.RobustAverage(); err == nil {
		fmt.Fprintf(m.out, "Robust average throughput: %s\n", bold(fmt.Sprintf("%.1f MB/s", avg/mib)))
		if !reliable {
			fmt.Fprintf(m.out, "     %s (fewer than 100 samples; robust statistics are unreliable)\n", alert("!!!"))
		}
	} else {
		fmt.Fprintln(m.out, "Robust average throughput: n/a")
	}

	if min, err := m.agg.RobustMin(); err == nil {
		fmt.Fprintf(m.out, "Robust minimum throughput: %.1f MB/s\n", min/mib)
	} else {
		fmt.Fprintln(m.out, "Robust minimum throughput: n/a")
	}

	merged := hdrhistogram.New(1, 3600000000, 3)
	for _, w := range m.workers {
		merged.Merge(w.Latencies())
	}
	if merged.TotalCount() > 0 {
		fmt.Fprintf(m.out, "Operation latency: p50 %.1fms, p99 %.1fms\n",
			float64(merged.ValueAtQuantile(50))/1000,
			float64(merged.ValueAtQuantile(99))/1000)
	}
}

// Workers exposes the run's workers for inspection once Run has
// returned.
func (m *Monitor) Workers() []*worker.Worker {
	return m.workers
}

// Samples returns the number of throughput samples collected.
func (m *Monitor) Samples() int {
	return m.agg.Count()
}
