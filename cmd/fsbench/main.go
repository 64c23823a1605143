package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nmayer/fsbench/pkg/config"
	"github.com/nmayer/fsbench/pkg/monitor"
	"github.com/nmayer/fsbench/pkg/telemetry"
	"github.com/nmayer/fsbench/pkg/workload"
)

// Flags holds pointers to all supported CLI flags. Every option has a
// short and a long spelling bound to the same variable.
type Flags struct {
	ConfigFile  *string
	WriteConfig *string

	Infiles   *string
	Outfiles  *string
	Jobs      *int
	Split     *string
	Randomize *bool
	Mode      *string
	WriteSize *int
	Engine    *string
	ReportFPS *float64
}

func SetupFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	f.ConfigFile = fs.String("config", "", "Path to YAML configuration file (disables other flags)")
	f.WriteConfig = fs.String("write-config", "", "Save the effective configuration to this YAML file")

	f.Infiles = fs.String("infiles", "", "list of input filenames")
	fs.StringVar(f.Infiles, "i", "", "list of input filenames (shorthand)")

	f.Outfiles = fs.String("outfiles", "", "list of output filenames")
	fs.StringVar(f.Outfiles, "o", "", "list of output filenames (shorthand)")

	f.Jobs = fs.Int("jobs", 1, "number of parallel workers to start")
	fs.IntVar(f.Jobs, "j", 1, "number of parallel workers to start (shorthand)")

	f.Split = fs.String("workload-split", "separate", "how files are split between workers: 'separate', 'overlap' or 'same'")
	fs.StringVar(f.Split, "s", "separate", "workload split (shorthand)")

	f.Randomize = fs.Bool("randomize-files", false, "access listed files randomly instead of sequentially")
	fs.BoolVar(f.Randomize, "r", false, "randomize files (shorthand)")

	f.Mode = fs.String("mode", "read", "benchmark mode: 'read', 'write' or 'readwrite'")
	fs.StringVar(f.Mode, "m", "read", "benchmark mode (shorthand)")

	f.WriteSize = fs.Int("write-size", config.DefaultWriteSize, "payload size in bytes per write operation")
	fs.IntVar(f.WriteSize, "w", config.DefaultWriteSize, "write size (shorthand)")

	f.Engine = fs.String("engine", config.EngineSync, "read engine: 'sync' or 'uring'")
	fs.StringVar(f.Engine, "e", config.EngineSync, "read engine (shorthand)")

	f.ReportFPS = fs.Float64("report-fps", 1, "report rows per second (0 disables, negative is unthrottled)")
	return f
}

// LoadConfig determines the config source (file or flags) and returns an
// immutable Config.
func (f *Flags) LoadConfig() (*config.Config, error) {
	if *f.ConfigFile != "" {
		return config.Load(*f.ConfigFile)
	}
	cfg := &config.Config{
		InfileList:  *f.Infiles,
		OutfileList: *f.Outfiles,
		Jobs:        *f.Jobs,
		Split:       *f.Split,
		Randomize:   *f.Randomize,
		Mode:        *f.Mode,
		WriteSize:   *f.WriteSize,
		Engine:      *f.Engine,
		ReportFPS:   *f.ReportFPS,
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func (f *Flags) MaybeWriteConfig(cfg *config.Config) {
	if *f.WriteConfig == "" {
		return
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		logrus.WithError(err).Warn("failed to marshal config for writing")
		return
	}
	if err := os.WriteFile(*f.WriteConfig, data, 0644); err != nil {
		logrus.WithError(err).Warn("failed to write config file")
		return
	}
	fmt.Printf("Configuration written to %s\n", *f.WriteConfig)
}

func main() {
	f := SetupFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := f.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	f.MaybeWriteConfig(cfg)

	if err := cfg.Resolve(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Parsed %d filenames.\n", cfg.FileCount())
	if cfg.OpMode() == config.ModeWrite && len(cfg.Inputs) > 0 {
		fmt.Println("Ignoring --infiles because --mode=write is set")
	}
	if cfg.OpMode() == config.ModeRead && len(cfg.Outputs) > 0 {
		fmt.Println("Ignoring --outfiles because --mode=read is set")
	}
	if cfg.Randomize {
		fmt.Println("Randomizing filenames")
	}
	switch cfg.SplitPolicy() {
	case workload.PolicySeparate:
		fmt.Println("Workload is equally distributed among all workers")
	case workload.PolicyOverlap:
		fmt.Println("Workload is the same for all workers, but random for each")
	case workload.PolicySame:
		fmt.Println("Workload is exactly the same for all workers")
	}
	fmt.Printf("Spawning %d worker threads...\n", cfg.Jobs)

	var cpuSrc monitor.CPUSource
	if cpu, err := telemetry.NewCPUReader(); err != nil {
		logrus.WithError(err).Warn("CPU usage telemetry unavailable")
	} else {
		cpuSrc = cpu
	}

	var diskSrc monitor.DiskSource
	if disk, err := telemetry.NewDiskReader(); err != nil {
		logrus.WithError(err).Warn("No disk I/O information available")
	} else {
		diskSrc = disk
	}

	m := monitor.New(cfg, cpuSrc, diskSrc, os.Stdout)
	if err := m.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
