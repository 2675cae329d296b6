package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/domain/smile"
	"github.com/oshokin/smile-alarm/internal/logger"
)

// Config holds the settings shared by the smile alarm binaries.
type Config struct {
	// AlarmsFile is the path to the JSON file storing alarms.
	AlarmsFile string `yaml:"alarms_file"`
	// PreferencesFile is the path to the JSON file storing sound preferences.
	PreferencesFile string `yaml:"preferences_file"`
	// SoundsDir is the directory holding <sound-id>.wav files.
	SoundsDir string `yaml:"sounds_dir"`
	// PIDFile records the process id of the running daemon.
	PIDFile string `yaml:"pid_file"`
	// LogLevel is the minimum level of emitted log messages.
	LogLevel string `yaml:"log_level"`
	// MaxAlarms caps the number of alarms and can only be lowered.
	MaxAlarms int `yaml:"max_alarms"`

	// Dwell is the continuous smiling time needed to stop a ringing alarm.
	Dwell time.Duration `yaml:"dwell"`
	// ScanInterval is the due-alarm scan cadence.
	ScanInterval time.Duration `yaml:"scan_interval"`
	// ClockInterval is the wall-clock display cadence.
	ClockInterval time.Duration `yaml:"clock_interval"`
	// FrameInterval is the camera polling cadence.
	FrameInterval time.Duration `yaml:"frame_interval"`
	// ConfirmInterval is the smile evaluation cadence.
	ConfirmInterval time.Duration `yaml:"confirm_interval"`
	// AudioLoopInterval is the cadence at which the ringing sound is restarted.
	AudioLoopInterval time.Duration `yaml:"audio_loop_interval"`
	// CollaboratorTimeout bounds every camera, detector and audio call.
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`
	// StopTimeout bounds the acknowledgement wait when stopping a loop.
	StopTimeout time.Duration `yaml:"stop_timeout"`

	// Camera configures the frame source.
	Camera CameraConfig `yaml:"camera"`
	// Detector configures the external smile detector.
	Detector DetectorConfig `yaml:"detector"`
}

// CameraConfig selects the camera adapter.
type CameraConfig struct {
	// SnapshotPath is the image file refreshed by an external capture tool.
	// Empty means no camera is available.
	SnapshotPath string `yaml:"snapshot_path"`
}

// DetectorConfig selects the smile detector adapter.
type DetectorConfig struct {
	// Command is the executable receiving frames on stdin.
	Command string `yaml:"command"`
	// Args are extra arguments passed to Command.
	Args []string `yaml:"args"`
	// Threshold is the confidence that maps to full progress.
	Threshold float64 `yaml:"threshold"`
}

const (
	// DefaultConfigFilename is the default filename for the settings.
	DefaultConfigFilename = "smile-alarm.yaml"

	// DefaultAlarmsFilename is the default filename for the alarms JSON.
	DefaultAlarmsFilename = "alarms.json"

	// DefaultPreferencesFilename is the default filename for the preferences JSON.
	DefaultPreferencesFilename = "alarm_preferences.json"

	// DefaultPIDFilename is the default daemon process id file.
	DefaultPIDFilename = "smile-alarm.pid"

	// DefaultSoundsDir is the default directory of generated sounds.
	DefaultSoundsDir = "assets/sounds"

	// DefaultScanInterval is the due-alarm scan cadence.
	DefaultScanInterval = time.Second

	// DefaultClockInterval is the wall-clock display cadence.
	DefaultClockInterval = time.Second

	// DefaultFrameInterval polls the camera at roughly 30 frames per second.
	DefaultFrameInterval = 33 * time.Millisecond

	// DefaultConfirmInterval evaluates the smile streak at 10Hz.
	DefaultConfirmInterval = 100 * time.Millisecond

	// DefaultAudioLoopInterval restarts the ringing sound every two seconds.
	DefaultAudioLoopInterval = 2 * time.Second

	// DefaultCollaboratorTimeout bounds a single collaborator call.
	DefaultCollaboratorTimeout = 500 * time.Millisecond

	// DefaultStopTimeout bounds the wait for a loop to acknowledge a stop.
	DefaultStopTimeout = 2 * time.Second

	// DefaultDetectorThreshold is the smile ratio considered a full smile.
	DefaultDetectorThreshold = 0.3

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errMaxAlarmsTooHigh is returned when max_alarms exceeds the hard cap.
	errMaxAlarmsTooHigh = errors.New("max_alarms exceeds the supported maximum")
	// errUnknownLogLevel is returned for unparsable log levels.
	errUnknownLogLevel = errors.New("unknown log level")
	// errNegativeDuration is returned for negative cadences or timeouts.
	errNegativeDuration = errors.New("durations must not be negative")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	//nolint:errcheck // Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
//
//nolint:cyclop // A flat list of defaults is easier to read than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.MaxAlarms > alarm.MaxAlarms {
		return fmt.Errorf("%w: %d > %d", errMaxAlarmsTooHigh, settings.MaxAlarms, alarm.MaxAlarms)
	}

	if settings.MaxAlarms <= 0 {
		settings.MaxAlarms = alarm.MaxAlarms
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	durations := []*time.Duration{
		&settings.Dwell,
		&settings.ScanInterval,
		&settings.ClockInterval,
		&settings.FrameInterval,
		&settings.ConfirmInterval,
		&settings.AudioLoopInterval,
		&settings.CollaboratorTimeout,
		&settings.StopTimeout,
	}

	defaults := []time.Duration{
		smile.DefaultDwell,
		DefaultScanInterval,
		DefaultClockInterval,
		DefaultFrameInterval,
		DefaultConfirmInterval,
		DefaultAudioLoopInterval,
		DefaultCollaboratorTimeout,
		DefaultStopTimeout,
	}

	for i, d := range durations {
		if *d < 0 {
			return errNegativeDuration
		}

		if *d == 0 {
			*d = defaults[i]
		}
	}

	if settings.AlarmsFile == "" {
		settings.AlarmsFile = DefaultAlarmsFilename
	}

	if settings.PreferencesFile == "" {
		settings.PreferencesFile = DefaultPreferencesFilename
	}

	if settings.SoundsDir == "" {
		settings.SoundsDir = DefaultSoundsDir
	}

	if settings.PIDFile == "" {
		settings.PIDFile = DefaultPIDFilename
	}

	if settings.Detector.Threshold <= 0 {
		settings.Detector.Threshold = DefaultDetectorThreshold
	}

	return nil
}
