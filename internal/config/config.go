// Package config loads SignLens settings from defaults, a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "signlens.yaml"

// DetectorConfig configures the hand landmark detector.
type DetectorConfig struct {
	MaxHands      int     `yaml:"max_hands"`
	MinConfidence float64 `yaml:"min_confidence"`
	Script        string  `yaml:"script"`
	Python        string  `yaml:"python"`
}

// CameraConfig configures the optional local camera frame source.
type CameraConfig struct {
	Enabled bool   `yaml:"enabled"`
	Device  int    `yaml:"device"`
	FPS     int    `yaml:"fps"`
	Model   string `yaml:"model"`
	// MotionThreshold is the percent of changed pixels that wakes the
	// camera loop. Zero processes every frame.
	MotionThreshold float64 `yaml:"motion_threshold"`
}

// Config holds all runtime settings.
type Config struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	DataDir   string `yaml:"data_dir"`
	DBPath    string `yaml:"db_path"`

	ForestModel string `yaml:"forest_model"`
	CNNModel    string `yaml:"cnn_model"`

	MinHold          time.Duration `yaml:"min_hold"`
	EvictionFactor   float64       `yaml:"eviction_factor"`
	MaxStreamEntries int           `yaml:"max_stream_entries"`

	FrameQueue          int `yaml:"frame_queue"`
	MaxConcurrentFrames int `yaml:"max_concurrent_frames"`
	MaxCaptureWidth     int `yaml:"max_capture_width"`
	// MaxCaptureDimension bounds the width and height of uploaded captures.
	MaxCaptureDimension int `yaml:"max_capture_dimension"`

	// DatasetPath is where the built dataset JSON is written.
	DatasetPath string `yaml:"dataset_path"`

	Detector DetectorConfig `yaml:"detector"`
	Camera   CameraConfig   `yaml:"camera"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns a Config with the stock settings.
func Default() Config {
	return Config{
		Addr:                ":5000",
		DataDir:             "data",
		DBPath:              "signlens.db",
		ForestModel:         filepath.Join("model", "forest.json"),
		CNNModel:            filepath.Join("model", "cnn.json"),
		MinHold:             3 * time.Second,
		EvictionFactor:      3,
		MaxStreamEntries:    1024,
		FrameQueue:          8,
		MaxConcurrentFrames: 4,
		MaxCaptureWidth:     640,
		MaxCaptureDimension: 4096,
		DatasetPath:         filepath.Join("dataset", "data.json"),
		Detector: DetectorConfig{
			MaxHands:      2,
			MinConfidence: 0.3,
		},
		Camera: CameraConfig{
			Device: 0,
			FPS:    10,
			Model:  "RandomForest",

			MotionThreshold: 1.0,
		},
		LogLevel: "info",
	}
}

// Load builds a Config from defaults, the YAML file at path and the environment.
// A missing file is not an error when path is DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultPath:
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (c *Config) applyEnv() error {
	if p := os.Getenv("PORT"); p != "" {
		c.Addr = ":" + p
	}
	c.Addr = getEnv("SIGNLENS_ADDR", c.Addr)
	c.StaticDir = getEnv("SIGNLENS_STATIC_DIR", c.StaticDir)
	c.DataDir = getEnv("SIGNLENS_DATA_DIR", c.DataDir)
	c.DBPath = getEnv("SIGNLENS_DB_PATH", c.DBPath)
	c.ForestModel = getEnv("SIGNLENS_FOREST_MODEL", c.ForestModel)
	c.CNNModel = getEnv("SIGNLENS_CNN_MODEL", c.CNNModel)
	c.LogLevel = getEnv("SIGNLENS_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("SIGNLENS_LOG_FILE", c.LogFile)

	if v := os.Getenv("SIGNLENS_MIN_HOLD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIGNLENS_MIN_HOLD: %w", err)
		}
		c.MinHold = d
	}
	if v := os.Getenv("SIGNLENS_MAX_CONCURRENT_FRAMES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIGNLENS_MAX_CONCURRENT_FRAMES: %w", err)
		}
		c.MaxConcurrentFrames = n
	}
	return nil
}

// Validate reports settings that cannot run.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.MinHold <= 0 {
		return fmt.Errorf("min_hold must be positive, got %s", c.MinHold)
	}
	if c.EvictionFactor < 1 {
		return fmt.Errorf("eviction_factor must be at least 1, got %g", c.EvictionFactor)
	}
	if c.MaxStreamEntries <= 0 {
		return fmt.Errorf("max_stream_entries must be positive")
	}
	if c.FrameQueue <= 0 {
		return fmt.Errorf("frame_queue must be positive")
	}
	if c.MaxConcurrentFrames <= 0 {
		return fmt.Errorf("max_concurrent_frames must be positive")
	}
	if c.MaxCaptureDimension <= 0 {
		return fmt.Errorf("max_capture_dimension must be positive")
	}
	if c.Detector.MaxHands <= 0 {
		return fmt.Errorf("detector.max_hands must be positive")
	}
	return nil
}
