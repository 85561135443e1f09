package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Loop
	TicksPerSecond = 60

	// Bouncing bodies
	DefaultBallCount   = 10
	DefaultMaxVelocity = 3
	MinBallRadius      = 10
	MaxBallRadius      = 50

	// Slideshow
	DefaultSlideshowInterval = 5 // seconds
	FadeDuration             = time.Second

	// Line art
	DefaultLineCount = 15
	DefaultLineSpeed = 3

	// Glyph rain
	DefaultMatrixFontSize = 18
	DefaultMatrixSpeed    = 3

	// Clock overlay
	DefaultClockEnabled  = true
	DefaultClockPosition = "bottomright"
	DefaultClockFontSize = 24

	// Password prompt
	DefaultPasswordUIPosition = "center"
	DefaultPasswordUIFontSize = 40
	MaxPasswordAttempts       = 3

	// Camera surveillance
	DefaultCameraCaptureFolder   = "captures"
	DefaultCameraMotionThreshold = 1000 // contour area in pixels
	DefaultCameraRetentionDays   = 7
	DefaultCameraWidth           = 640
	DefaultCameraHeight          = 480

	DefaultIdleTimeout = 5000 // milliseconds

	// Config file guard
	maxFileSize = 1 << 20
)

var (
	DefaultClockColor             = RGB{200, 200, 200}
	DefaultPasswordUIPromptColor  = RGB{255, 255, 255}
	DefaultPasswordUIInputColor   = RGB{255, 255, 255}
	DefaultPasswordUIWarningColor = RGB{255, 100, 100}
	DefaultPasswordUIInfoColor    = RGB{180, 180, 180}

	validClockPositions      = map[string]bool{"topleft": true, "topright": true, "bottomleft": true, "bottomright": true}
	validPasswordUIPositions = map[string]bool{"center": true, "top": true, "bottom": true}
	validParticleColorModes  = map[ParticleColorMode]bool{ParticleLinked: true, ParticleRainbow: true}
	validSaverModes          = map[SaverMode]bool{ModeBalls: true, ModeSlideshow: true, ModeLineArt: true, ModeMatrix: true}
)

// SaverMode selects one of the four visual modes.
type SaverMode string

const (
	ModeBalls     SaverMode = "balls"
	ModeSlideshow SaverMode = "slideshow"
	ModeLineArt   SaverMode = "line_art"
	ModeMatrix    SaverMode = "matrix"
)

// ParticleColorMode decides how spark colours are derived.
type ParticleColorMode string

const (
	ParticleLinked  ParticleColorMode = "linked"
	ParticleRainbow ParticleColorMode = "rainbow"
)

// Config is the read-only option set the core consumes. Field tags match the
// keys of the settings file written by the configuration editor.
type Config struct {
	SaverMode   SaverMode `yaml:"saver_mode"`
	IdleTimeout int       `yaml:"idle_timeout"` // milliseconds

	BallCount   int `yaml:"ball_count"`
	MaxVelocity int `yaml:"max_velocity"`

	SlideshowFolder   string `yaml:"slideshow_folder"`
	SlideshowInterval int    `yaml:"slideshow_interval"` // seconds

	LineCount int `yaml:"line_count"`
	LineSpeed int `yaml:"line_speed"`

	MatrixFontSize int    `yaml:"matrix_font_size"`
	MatrixSpeed    int    `yaml:"matrix_speed"`
	MatrixFont     string `yaml:"matrix_font"` // path to a TTF/OTF file

	PasswordEnabled        bool   `yaml:"password_enabled"`
	PasswordHash           string `yaml:"password_hash"`
	PasswordUIPosition     string `yaml:"password_ui_position"`
	PasswordUIFontSize     int    `yaml:"password_ui_font_size"`
	PasswordUIPromptColor  RGB    `yaml:"password_ui_prompt_color"`
	PasswordUIInputColor   RGB    `yaml:"password_ui_input_color"`
	PasswordUIWarningColor RGB    `yaml:"password_ui_warning_color"`
	PasswordUIInfoColor    RGB    `yaml:"password_ui_info_color"`

	ClockEnabled  bool   `yaml:"clock_enabled"`
	ClockPosition string `yaml:"clock_position"`
	ClockColor    RGB    `yaml:"clock_color"`
	ClockFontSize int    `yaml:"clock_font_size"`

	WallSparkEnabled  bool              `yaml:"wall_spark_enabled"`
	ParticleColorMode ParticleColorMode `yaml:"particle_color_mode"`

	CameraEnabled         bool   `yaml:"camera_enabled"`
	CameraDeviceIndex     int    `yaml:"camera_device_index"`
	CameraCaptureFolder   string `yaml:"camera_capture_folder"`
	CameraMotionThreshold int    `yaml:"camera_motion_threshold"`
	CameraRetentionDays   int    `yaml:"camera_capture_retention_days"`
	CameraWidth           int    `yaml:"camera_width"`
	CameraHeight          int    `yaml:"camera_height"`

	AutoRestartOnIdle bool   `yaml:"auto_restart_on_idle"`
	AlertSoundEnabled bool   `yaml:"alert_sound_enabled"`
	AlertSoundFile    string `yaml:"alert_sound_file"`
	DryRunShutdown    bool   `yaml:"dry_run_shutdown"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		SaverMode:              ModeBalls,
		IdleTimeout:            DefaultIdleTimeout,
		BallCount:              DefaultBallCount,
		MaxVelocity:            DefaultMaxVelocity,
		SlideshowInterval:      DefaultSlideshowInterval,
		LineCount:              DefaultLineCount,
		LineSpeed:              DefaultLineSpeed,
		MatrixFontSize:         DefaultMatrixFontSize,
		MatrixSpeed:            DefaultMatrixSpeed,
		PasswordUIPosition:     DefaultPasswordUIPosition,
		PasswordUIFontSize:     DefaultPasswordUIFontSize,
		PasswordUIPromptColor:  DefaultPasswordUIPromptColor,
		PasswordUIInputColor:   DefaultPasswordUIInputColor,
		PasswordUIWarningColor: DefaultPasswordUIWarningColor,
		PasswordUIInfoColor:    DefaultPasswordUIInfoColor,
		ClockEnabled:           DefaultClockEnabled,
		ClockPosition:          DefaultClockPosition,
		ClockColor:             DefaultClockColor,
		ClockFontSize:          DefaultClockFontSize,
		WallSparkEnabled:       true,
		ParticleColorMode:      ParticleRainbow,
		CameraCaptureFolder:    DefaultCameraCaptureFolder,
		CameraMotionThreshold:  DefaultCameraMotionThreshold,
		CameraRetentionDays:    DefaultCameraRetentionDays,
		CameraWidth:            DefaultCameraWidth,
		CameraHeight:           DefaultCameraHeight,
		AutoRestartOnIdle:      true,
	}
}

// Load reads a YAML (or JSON) settings file over the defaults. Keys missing
// from the file keep their default value, and so does every key whose value
// cannot be decoded; those are reported as warnings. An error means the file
// as a whole could not be used and the defaults are returned.
func Load(path string) (Config, []string, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cfg, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.apply(doc), nil
}

// apply decodes every known key on its own.
func (c *Config) apply(doc map[string]yaml.Node) []string {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	var warnings []string
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("yaml")
		node, ok := doc[key]
		if !ok {
			continue
		}
		field := reflect.New(t.Field(i).Type)
		field.Elem().Set(v.Field(i))
		if err := node.Decode(field.Interface()); err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid %s, using default: %v", key, err))
			continue
		}
		v.Field(i).Set(field.Elem())
	}
	return warnings
}

// Normalize replaces invalid options with their defaults and reports each
// replacement. It is meant to run once, at session start.
func (c *Config) Normalize() []string {
	d := Default()
	var warnings []string
	fix := func(bad bool, name string, apply func()) {
		if bad {
			apply()
			warnings = append(warnings, fmt.Sprintf("invalid %s, using default", name))
		}
	}

	fix(!validSaverModes[c.SaverMode], "saver_mode", func() { c.SaverMode = d.SaverMode })
	fix(c.IdleTimeout <= 0, "idle_timeout", func() { c.IdleTimeout = d.IdleTimeout })
	fix(c.BallCount <= 0, "ball_count", func() { c.BallCount = d.BallCount })
	fix(c.MaxVelocity < 2, "max_velocity", func() { c.MaxVelocity = d.MaxVelocity })
	fix(c.SlideshowInterval <= 0, "slideshow_interval", func() { c.SlideshowInterval = d.SlideshowInterval })
	fix(c.LineCount <= 0, "line_count", func() { c.LineCount = d.LineCount })
	fix(c.LineSpeed <= 0, "line_speed", func() { c.LineSpeed = d.LineSpeed })
	fix(c.MatrixFontSize <= 0, "matrix_font_size", func() { c.MatrixFontSize = d.MatrixFontSize })
	fix(c.MatrixSpeed <= 0, "matrix_speed", func() { c.MatrixSpeed = d.MatrixSpeed })
	fix(!validPasswordUIPositions[c.PasswordUIPosition], "password_ui_position", func() { c.PasswordUIPosition = d.PasswordUIPosition })
	fix(c.PasswordUIFontSize <= 0, "password_ui_font_size", func() { c.PasswordUIFontSize = d.PasswordUIFontSize })
	fix(!validClockPositions[c.ClockPosition], "clock_position", func() { c.ClockPosition = d.ClockPosition })
	fix(c.ClockFontSize <= 0, "clock_font_size", func() { c.ClockFontSize = d.ClockFontSize })
	fix(!validParticleColorModes[c.ParticleColorMode], "particle_color_mode", func() { c.ParticleColorMode = d.ParticleColorMode })
	fix(c.CameraDeviceIndex < 0, "camera_device_index", func() { c.CameraDeviceIndex = d.CameraDeviceIndex })
	fix(c.CameraCaptureFolder == "", "camera_capture_folder", func() { c.CameraCaptureFolder = d.CameraCaptureFolder })
	fix(c.CameraMotionThreshold <= 0, "camera_motion_threshold", func() { c.CameraMotionThreshold = d.CameraMotionThreshold })
	fix(c.CameraWidth <= 0 || c.CameraHeight <= 0, "camera size", func() {
		c.CameraWidth, c.CameraHeight = d.CameraWidth, d.CameraHeight
	})

	return warnings
}

// PasswordRequired reports whether leaving the saver needs a password.
func (c Config) PasswordRequired() bool {
	return c.PasswordEnabled && c.PasswordHash != ""
}

// CaptureFolder resolves the capture folder against base when it is relative.
func (c Config) CaptureFolder(base string) string {
	if filepath.IsAbs(c.CameraCaptureFolder) || base == "" {
		return c.CameraCaptureFolder
	}
	return filepath.Join(base, c.CameraCaptureFolder)
}

// TicksFor converts a wall-clock duration to loop ticks.
func TicksFor(d time.Duration) int {
	return int(d * TicksPerSecond / time.Second)
}

// RGB is an opaque colour stored as a three element list in the settings file.
type RGB [3]uint8

// RGBA converts to an opaque color.RGBA.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}
}

// UnmarshalYAML accepts [r, g, b] with each channel clamped to 0..255.
func (c *RGB) UnmarshalYAML(value *yaml.Node) error {
	var channels []int
	if err := value.Decode(&channels); err != nil {
		return fmt.Errorf("colour at line %d: %w", value.Line, err)
	}
	if len(channels) != 3 {
		return fmt.Errorf("colour at line %d: want 3 channels, got %d", value.Line, len(channels))
	}
	for i, v := range channels {
		c[i] = uint8(max(0, min(255, v)))
	}
	return nil
}
