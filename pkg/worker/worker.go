// Package worker implements the benchmark execution units. Each Worker
// owns a private list of file indices and runs them on its own goroutine;
// the monitor polls its atomic progress counters from outside.
package worker

import (
	"os"
	"sync/atomic"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/sirupsen/logrus"

	"github.com/nmayer/fsbench/pkg/config"
	"github.com/nmayer/fsbench/pkg/stats"
)

// Status is the worker lifecycle state.
type Status int32

const (
	StatusInit Status = iota
	StatusRunning
	StatusStopping
	StatusFinished
)

// Worker performs a bounded read/write workload over an assigned index
// list. Progress accessors are lock-free snapshots for display; they are
// never used for control decisions.
type Worker struct {
	id      int
	plan    []int
	mode    config.Mode
	inputs  []string
	outputs []string
	payload []byte
	backend ReadBackend

	status atomic.Int32
	done   atomic.Int64
	est    *stats.RateEstimator
	hist   *hdrhistogram.Histogram
	exited chan struct{}
}

// New builds a worker for the given plan. The backend serves read-mode
// file reads; write payloads are preallocated at the configured size.
func New(id int, plan []int, cfg *config.Config, backend ReadBackend) *Worker {
	w := &Worker{
		id:      id,
		plan:    plan,
		mode:    cfg.OpMode(),
		inputs:  cfg.Inputs,
		outputs: cfg.Outputs,
		backend: backend,
		est:     stats.NewRateEstimator(),
		hist:    hdrhistogram.New(1, 3600000000, 3),
		exited:  make(chan struct{}),
	}
	if w.mode == config.ModeWrite {
		w.payload = make([]byte, cfg.WriteSize)
	}
	return w
}

// Start launches the execution loop. It is a no-op if the worker is
// already running (or finished).
func (w *Worker) Start() {
	if !w.status.CompareAndSwap(int32(StatusInit), int32(StatusRunning)) {
		return
	}
	go w.loop()
}

// Stop requests termination and blocks until the execution goroutine has
// exited. Termination is cooperative, checked once per work item, so stop
// latency is bounded by the in-flight file operation.
func (w *Worker) Stop() {
	if w.status.CompareAndSwap(int32(StatusInit), int32(StatusFinished)) {
		close(w.exited)
		return
	}
	w.status.CompareAndSwap(int32(StatusRunning), int32(StatusStopping))
	<-w.exited
}

func (w *Worker) loop() {
	defer close(w.exited)

	for _, idx := range w.plan {
		if Status(w.status.Load()) != StatusRunning {
			break
		}
		w.done.Add(1)
		w.process(idx)
	}
	w.status.Store(int32(StatusFinished))
}

func (w *Worker) process(idx int) {
	switch w.mode {
	case config.ModeRead:
		w.readOp(idx)
	case config.ModeWrite:
		w.writeOp(idx, w.payload)
	case config.ModeReadWrite:
		data, ok := w.readFull(idx)
		if ok {
			w.writeOp(idx, data)
		}
	}
}

// readOp reads the indexed input in full, discarding the contents.
func (w *Worker) readOp(idx int) {
	if idx >= len(w.inputs) {
		return
	}
	start := time.Now()
	n, err := w.backend.ReadFile(w.inputs[idx])
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"worker": w.id,
			"path":   w.inputs[idx],
		}).Warn("bad input file, skipping")
		return
	}
	w.est.AddSample(n)
	_ = w.hist.RecordValue(time.Since(start).Microseconds())
}

// readFull reads the indexed input and returns its contents for a
// subsequent write.
func (w *Worker) readFull(idx int) ([]byte, bool) {
	if idx >= len(w.inputs) {
		return nil, false
	}
	start := time.Now()
	data, err := os.ReadFile(w.inputs[idx])
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"worker": w.id,
			"path":   w.inputs[idx],
		}).Warn("bad input file, skipping")
		return nil, false
	}
	w.est.AddSample(int64(len(data)))
	_ = w.hist.RecordValue(time.Since(start).Microseconds())
	return data, true
}

func (w *Worker) writeOp(idx int, data []byte) {
	if idx >= len(w.outputs) {
		return
	}
	start := time.Now()
	if err := os.WriteFile(w.outputs[idx], data, 0644); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"worker": w.id,
			"path":   w.outputs[idx],
		}).Warn("bad output file, skipping")
		return
	}
	w.est.AddSample(int64(len(data)))
	_ = w.hist.RecordValue(time.Since(start).Microseconds())
}

// ID returns the worker ordinal.
func (w *Worker) ID() int { return w.id }

// DoneCount returns the number of work items attempted so far.
func (w *Worker) DoneCount() int64 { return w.done.Load() }

// Throughput returns the worker's rolling bytes-per-second rate over a
// one-second window.
func (w *Worker) Throughput() float64 { return w.est.Rate(1) }

// TotalBytes returns the lifetime byte count moved by this worker.
func (w *Worker) TotalBytes() int64 { return w.est.TotalBytes() }

// IsDone reports whether the execution loop has terminated.
func (w *Worker) IsDone() bool {
	return Status(w.status.Load()) == StatusFinished
}

// Done returns a channel that is closed once the execution loop has
// exited (or Stop was called before Start).
func (w *Worker) Done() <-chan struct{} { return w.exited }

// Latencies returns the worker's per-operation latency histogram in
// microseconds. Only safe to read after Stop has returned.
func (w *Worker) Latencies() *hdrhistogram.Histogram { return w.hist }
