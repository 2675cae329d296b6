package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and rejected values.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	settings := new(Config)
	require.NoError(t, Validate(settings))
	require.Equal(t, 3, settings.MaxAlarms)
	require.Equal(t, 2*time.Second, settings.Dwell)
	require.Equal(t, 2*time.Second, settings.AudioLoopInterval)
	require.Equal(t, DefaultAlarmsFilename, settings.AlarmsFile)
	require.Equal(t, DefaultPIDFilename, settings.PIDFile)
	require.InDelta(t, DefaultDetectorThreshold, settings.Detector.Threshold, 0)

	// Too many alarms.
	require.Error(t, Validate(&Config{MaxAlarms: 4}))

	// Bad level.
	require.Error(t, Validate(&Config{LogLevel: "loud"}))

	// Negative cadence.
	require.Error(t, Validate(&Config{ScanInterval: -time.Second}))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		AlarmsFile: filepath.Join(dir, "alarms.json"),
		Dwell:      3 * time.Second,
		Camera: CameraConfig{
			SnapshotPath: "/tmp/frame.jpg",
		},
		Detector: DetectorConfig{
			Command: "smile-detect",
			Args:    []string{"--model", "face"},
		},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.AlarmsFile, loaded.AlarmsFile)
	require.Equal(t, settings.Dwell, loaded.Dwell)
	require.Equal(t, settings.Camera, loaded.Camera)
	require.Equal(t, settings.Detector.Args, loaded.Detector.Args)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadOrDefault falls back to defaults for a missing file only.
func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultScanInterval, cfg.ScanInterval)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("max_alarms: [1"), 0o600))

	_, err = LoadOrDefault(broken)
	require.Error(t, err)
}
