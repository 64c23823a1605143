// Package config holds the immutable run configuration. It is built once
// (from flags or a YAML file), validated, and passed explicitly into the
// partitioner, workers and monitor.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nmayer/fsbench/pkg/workload"
)

// Mode selects which file operation each worker performs per index.
type Mode string

const (
	ModeRead      Mode = "read"
	ModeWrite     Mode = "write"
	ModeReadWrite Mode = "readwrite"
)

// ParseMode validates a benchmark mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRead, ModeWrite, ModeReadWrite:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unrecognized mode %q (want read, write or readwrite)", s)
}

// Engine names for the worker read path.
const (
	EngineSync  = "sync"
	EngineUring = "uring"
)

// DefaultWriteSize is the payload size per write operation.
const DefaultWriteSize = 1 << 20

// Config is the complete description of one benchmark run.
type Config struct {
	// List files; resolved into Inputs/Outputs by Resolve.
	InfileList  string `yaml:"infiles"`
	OutfileList string `yaml:"outfiles"`

	Jobs      int     `yaml:"jobs"`
	Split     string  `yaml:"workload_split"`
	Randomize bool    `yaml:"randomize_files"`
	Mode      string  `yaml:"mode"`
	WriteSize int     `yaml:"write_size"`
	Engine    string  `yaml:"engine"`
	ReportFPS float64 `yaml:"report_fps"`

	// Resolved file paths, parallel lists indexed by work index.
	Inputs  []string `yaml:"-"`
	Outputs []string `yaml:"-"`
}

// Load reads a YAML config file and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Jobs == 0 {
		c.Jobs = 1
	}
	if c.Split == "" {
		c.Split = string(workload.PolicySeparate)
	}
	if c.Mode == "" {
		c.Mode = string(ModeRead)
	}
	if c.WriteSize == 0 {
		c.WriteSize = DefaultWriteSize
	}
	if c.Engine == "" {
		c.Engine = EngineSync
	}
	if c.ReportFPS == 0 {
		c.ReportFPS = 1
	}
}

// Resolve loads the newline-delimited file lists named by the config.
func (c *Config) Resolve() error {
	if c.InfileList == "" && c.OutfileList == "" {
		return fmt.Errorf("need at least one of [--infiles, --outfiles]")
	}
	if c.InfileList != "" {
		names, err := LoadList(c.InfileList)
		if err != nil {
			return errors.Wrapf(err, "could not read list of inputs: %s", c.InfileList)
		}
		c.Inputs = names
	}
	if c.OutfileList != "" {
		names, err := LoadList(c.OutfileList)
		if err != nil {
			return errors.Wrapf(err, "could not read list of outputs: %s", c.OutfileList)
		}
		c.Outputs = names
	}
	return nil
}

// Validate checks enum values and the mode's list requirements. It must
// pass before any worker starts.
func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("need at least one worker, got %d", c.Jobs)
	}
	if _, err := workload.ParsePolicy(c.Split); err != nil {
		return err
	}
	mode, err := ParseMode(c.Mode)
	if err != nil {
		return err
	}
	switch c.Engine {
	case EngineSync, EngineUring:
	default:
		return fmt.Errorf("unrecognized engine %q (want sync or uring)", c.Engine)
	}
	if mode != ModeRead && c.WriteSize <= 0 {
		return fmt.Errorf("write-size must be positive, got %d", c.WriteSize)
	}

	switch mode {
	case ModeRead:
		if len(c.Inputs) == 0 {
			return fmt.Errorf("mode read requires a non-empty --infiles list")
		}
	case ModeWrite:
		if len(c.Outputs) == 0 {
			return fmt.Errorf("mode write requires a non-empty --outfiles list")
		}
	case ModeReadWrite:
		if len(c.Inputs) == 0 || len(c.Outputs) == 0 {
			return fmt.Errorf("mode readwrite requires both --infiles and --outfiles")
		}
	}
	return nil
}

// FileCount returns the size of the work-index space.
func (c *Config) FileCount() int {
	if len(c.Inputs) > len(c.Outputs) {
		return len(c.Inputs)
	}
	return len(c.Outputs)
}

// SplitPolicy returns the validated split policy. Call Validate first.
func (c *Config) SplitPolicy() workload.Policy {
	return workload.Policy(c.Split)
}

// OpMode returns the validated mode. Call Validate first.
func (c *Config) OpMode() Mode {
	return Mode(c.Mode)
}

// LoadList reads a newline-delimited list of file paths, skipping blank
// lines and surrounding whitespace.
func LoadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}
	return names, nil
}
