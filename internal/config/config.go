package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"field-monitor/internal/store"
)

type GPSMode string

const (
	GPSModeAuto GPSMode = "auto"
	GPSModeOn   GPSMode = "on"
	GPSModeOff  GPSMode = "off"

	HardcodedVersion string = "V0.3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is fixed for the lifetime of one run.
type Config struct {
	ExperimentName  string
	Duration        time.Duration
	Timestep        time.Duration
	IsTarget        bool
	DatasetPath     string
	TargetAddress   string
	ProcessName     string
	CPUSampleWindow time.Duration
	PingTimeout     time.Duration
	GPSMode         GPSMode
	GPSDevice       string
	GPSBaudRate     int
	GPSReadTimeout  time.Duration
	StoreBackend    store.Backend
	StatusInterval  time.Duration
	ShutdownTimeout time.Duration
	AgentVersion    string
	LogJSON         bool
	LogLevel        string
}

const usage = "monitor [flags] <name> <duration> <step> <is_target>"

// Load reads the environment (after an optional .env file) for defaults,
// then flags and the positional run parameters from args.
func Load(args []string) (Config, error) {
	return load(args, os.Stderr)
}

func load(args []string, output io.Writer) (Config, error) {
	if err := loadDotEnv(env("MONITOR_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s\n", usage)
		fs.PrintDefaults()
	}

	cfg := Config{AgentVersion: HardcodedVersion}
	fs.StringVar(&cfg.DatasetPath, "dataset", env("MONITOR_DATASET_PATH", "./dataset"), "directory receiving the run file")
	fs.StringVar(&cfg.TargetAddress, "target", env("MONITOR_TARGET_ADDR", ""), "address pinged every tick")
	fs.StringVar(&cfg.ProcessName, "process", env("MONITOR_PROCESS_NAME", "ros2"), "exact process name to aggregate")
	fs.DurationVar(&cfg.CPUSampleWindow, "cpu-window", envDuration("MONITOR_CPU_WINDOW", 200*time.Millisecond), "per-process CPU sampling window")
	fs.DurationVar(&cfg.PingTimeout, "ping-timeout", envDuration("MONITOR_PING_TIMEOUT", time.Second), "ping reply timeout")
	gpsMode := fs.String("gps", env("MONITOR_GPS_MODE", string(GPSModeAuto)), "gps columns: auto, on or off")
	fs.StringVar(&cfg.GPSDevice, "gps-device", env("MONITOR_GPS_DEVICE", "/dev/gps"), "gps serial device")
	fs.IntVar(&cfg.GPSBaudRate, "gps-baud", envInt("MONITOR_GPS_BAUD", 9600), "gps serial baud rate")
	fs.DurationVar(&cfg.GPSReadTimeout, "gps-timeout", envDuration("MONITOR_GPS_READ_TIMEOUT", 5*time.Second), "gps read timeout per poll")
	backend := fs.String("store", env("MONITOR_STORE", string(store.BackendCSV)), "store backend: csv or sqlite")
	fs.DurationVar(&cfg.StatusInterval, "status-interval", envDuration("MONITOR_STATUS_INTERVAL", 10*time.Second), "progress log interval")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", envDuration("MONITOR_SHUTDOWN_TIMEOUT", 15*time.Second), "grace period after a signal")
	fs.BoolVar(&cfg.LogJSON, "log-json", envBool("MONITOR_LOG_JSON", false), "log in JSON")
	fs.StringVar(&cfg.LogLevel, "log-level", env("MONITOR_LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() != 4 {
		return Config{}, fmt.Errorf("%w: expected 4 arguments, got %d (usage: %s)", ErrInvalidConfig, fs.NArg(), usage)
	}

	cfg.ExperimentName = strings.TrimSpace(fs.Arg(0))
	var err error
	if cfg.Duration, err = parseSeconds("duration", fs.Arg(1)); err != nil {
		return Config{}, err
	}
	if cfg.Timestep, err = parseSeconds("step", fs.Arg(2)); err != nil {
		return Config{}, err
	}
	if cfg.IsTarget, err = parseFlag("is_target", fs.Arg(3)); err != nil {
		return Config{}, err
	}
	cfg.GPSMode = GPSMode(strings.ToLower(strings.TrimSpace(*gpsMode)))
	cfg.StoreBackend = store.Backend(strings.ToLower(strings.TrimSpace(*backend)))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ExperimentName == "" {
		return fmt.Errorf("%w: experiment name is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.ExperimentName, `/\`) {
		return fmt.Errorf("%w: experiment name %q must not contain a path separator", ErrInvalidConfig, c.ExperimentName)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be > 0", ErrInvalidConfig)
	}
	if c.Timestep <= 0 {
		return fmt.Errorf("%w: step must be > 0", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DatasetPath) == "" {
		return fmt.Errorf("%w: MONITOR_DATASET_PATH is required", ErrInvalidConfig)
	}
	if !c.IsTarget && strings.TrimSpace(c.TargetAddress) == "" {
		return fmt.Errorf("%w: MONITOR_TARGET_ADDR is required unless running on the target", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.ProcessName) == "" {
		return fmt.Errorf("%w: MONITOR_PROCESS_NAME is required", ErrInvalidConfig)
	}
	if c.CPUSampleWindow <= 0 || c.PingTimeout <= 0 || c.GPSReadTimeout <= 0 {
		return fmt.Errorf("%w: sampling timeouts must be > 0", ErrInvalidConfig)
	}
	if c.StatusInterval <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: status and shutdown intervals must be > 0", ErrInvalidConfig)
	}
	switch c.GPSMode {
	case GPSModeAuto, GPSModeOn, GPSModeOff:
	default:
		return fmt.Errorf("%w: unsupported gps mode %q", ErrInvalidConfig, c.GPSMode)
	}
	if c.GPSMode != GPSModeOff {
		if strings.TrimSpace(c.GPSDevice) == "" {
			return fmt.Errorf("%w: MONITOR_GPS_DEVICE is required when gps is enabled", ErrInvalidConfig)
		}
		if c.GPSBaudRate <= 0 {
			return fmt.Errorf("%w: MONITOR_GPS_BAUD must be > 0", ErrInvalidConfig)
		}
	}
	switch c.StoreBackend {
	case store.BackendCSV, store.BackendSQLite:
	default:
		return fmt.Errorf("%w: unsupported store backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: stat env file: %w", ErrInvalidConfig, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: load env file %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

func parseSeconds(name, raw string) (time.Duration, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q is not a number of seconds", ErrInvalidConfig, name, raw)
	}
	return time.Duration(v * float64(time.Second)), nil
}

// parseFlag accepts boolean words as well as numbers, non-zero meaning true.
func parseFlag(name, raw string) (bool, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch raw {
	case "true", "yes", "y", "on":
		return true, nil
	case "false", "no", "n", "off":
		return false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false, fmt.Errorf("%w: %s %q is not a boolean", ErrInvalidConfig, name, raw)
	}
	return v != 0, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
