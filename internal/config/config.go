package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile       = "telemetry_config.json"
	DefaultEnvPrefix        = "WTHUD"
	DefaultTelemetryURL     = "http://127.0.0.1:8111/indicators"
	DefaultTelemetryTimeout = 20 * time.Millisecond
	DefaultHistoryFile      = "lap_history.csv"
	DefaultHotkey           = "space"
	DefaultLogLevel         = "warn"
	DefaultRPMMax           = 3000.0
	DefaultUIScale          = 1.5

	// UnsetPosition marks an overlay that has never been placed by the user.
	UnsetPosition = -1

	configEnvVar = "WTHUD_CONFIG"
)

// Overlay selection values for the --overlay flag.
const (
	OverlayAll   = "all"
	OverlayHUD   = "hud"
	OverlayTimer = "timer"
)

type Config struct {
	RPMMax         float64 `mapstructure:"rpm_max"`
	ThresholdPink  float64 `mapstructure:"rpm_threshold_pink"`
	ThresholdBlue  float64 `mapstructure:"rpm_threshold_blue"`
	ThresholdFlash float64 `mapstructure:"rpm_threshold_flash"`

	HUDX   int `mapstructure:"hud_x"`
	HUDY   int `mapstructure:"hud_y"`
	TimerX int `mapstructure:"timer_x"`
	TimerY int `mapstructure:"timer_y"`

	BestLap      float64 `mapstructure:"best_lap"`
	ShowBestLap  bool    `mapstructure:"show_best_lap"`
	ActionHotkey string  `mapstructure:"action_hotkey"`

	TelemetryURL     string        `mapstructure:"telemetry_url"`
	TelemetryTimeout time.Duration `mapstructure:"telemetry_timeout"`
	HistoryFile      string        `mapstructure:"history_file"`
	LapDB            string        `mapstructure:"lap_db"`
	UIScale          float64       `mapstructure:"ui_scale"`

	LogLevel string `mapstructure:"log_level"`
	Debug    bool   `mapstructure:"debug"`
	Verbose  bool   `mapstructure:"verbose"`
	Overlay  string `mapstructure:"overlay"`

	path string
	mu   *sync.Mutex
}

// Load reads defaults, the JSON config file, WTHUD_* environment variables
// and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(o)
	}
	if !o.argsSet {
		o.args = os.Args[1:]
	}

	v := viper.New()
	setDefaults(v)

	flags := newFlagSet()
	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := bindFlags(v, flags); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	path := resolvePath(o, flags)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !isNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	cfg.mu = &sync.Mutex{}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	} else if cfg.Verbose {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Path returns the config file in use.
func (c *Config) Path() string {
	return c.path
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpm_max", DefaultRPMMax)
	v.SetDefault("rpm_threshold_pink", 60.0)
	v.SetDefault("rpm_threshold_blue", 90.0)
	v.SetDefault("rpm_threshold_flash", 96.0)
	v.SetDefault("hud_x", UnsetPosition)
	v.SetDefault("hud_y", UnsetPosition)
	v.SetDefault("timer_x", UnsetPosition)
	v.SetDefault("timer_y", UnsetPosition)
	v.SetDefault("best_lap", 0.0)
	v.SetDefault("show_best_lap", true)
	v.SetDefault("action_hotkey", DefaultHotkey)
	v.SetDefault("telemetry_url", DefaultTelemetryURL)
	v.SetDefault("telemetry_timeout", DefaultTelemetryTimeout.String())
	v.SetDefault("history_file", DefaultHistoryFile)
	v.SetDefault("lap_db", "")
	v.SetDefault("ui_scale", DefaultUIScale)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("overlay", OverlayAll)
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("wthud", pflag.ContinueOnError)
	flags.String("config", "", "Path to the JSON config file (default "+DefaultConfigFile+")")
	flags.String("overlay", OverlayAll, "Overlay to run: all, hud or timer")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.Float64("scale", DefaultUIScale, "UI scale factor")
	flags.String("url", DefaultTelemetryURL, "Telemetry endpoint")
	flags.String("hotkey", DefaultHotkey, "Lap timer hotkey: key name or btnN for gamepad button N")
	flags.String("history", DefaultHistoryFile, "Lap history CSV file")
	flags.String("lap-db", "", "SQLite lap store (empty disables)")
	return flags
}

var flagKeys = map[string]string{
	"overlay":   "overlay",
	"debug":     "debug",
	"verbose":   "verbose",
	"log-level": "log_level",
	"scale":     "ui_scale",
	"url":       "telemetry_url",
	"hotkey":    "action_hotkey",
	"history":   "history_file",
	"lap-db":    "lap_db",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("flag %s: %w", name, err)
		}
	}
	return nil
}

func resolvePath(o *options, flags *pflag.FlagSet) string {
	if p, _ := flags.GetString("config"); p != "" {
		return p
	}
	if o.configPath != "" {
		return o.configPath
	}
	if p := os.Getenv(configEnvVar); p != "" {
		return p
	}
	return DefaultConfigFile
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.Overlay = strings.ToLower(strings.TrimSpace(cfg.Overlay))
	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate rejects values the overlays cannot run with. Threshold ordering
// and rpm_max are reported as warnings only; the color cascade copes with them.
func (c *Config) Validate() (warnings []string, err error) {
	errFactory := errors.New()

	switch c.Overlay {
	case OverlayAll, OverlayHUD, OverlayTimer:
	default:
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "overlay must be one of: all, hud, timer")
	}
	if c.UIScale <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "ui_scale must be positive")
	}
	if c.TelemetryTimeout <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "telemetry_timeout must be positive")
	}
	if c.TelemetryURL == "" {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "telemetry_url is required")
	}
	if c.BestLap < 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "best_lap must not be negative")
	}

	if c.RPMMax <= 0 {
		warnings = append(warnings, fmt.Sprintf("rpm_max %.0f is not positive, using %.0f", c.RPMMax, DefaultRPMMax))
	}
	if c.ThresholdPink > c.ThresholdBlue || c.ThresholdBlue > c.ThresholdFlash {
		warnings = append(warnings, fmt.Sprintf(
			"rpm thresholds are not ordered pink <= blue <= flash (%.0f, %.0f, %.0f)",
			c.ThresholdPink, c.ThresholdBlue, c.ThresholdFlash))
	}
	for name, pct := range map[string]float64{
		"rpm_threshold_pink":  c.ThresholdPink,
		"rpm_threshold_blue":  c.ThresholdBlue,
		"rpm_threshold_flash": c.ThresholdFlash,
	} {
		if pct < 0 || pct > 100 {
			warnings = append(warnings, fmt.Sprintf("%s %.0f is outside [0,100]", name, pct))
		}
	}

	return warnings, nil
}

// SavePlacement writes an overlay's top-left corner back to the config file.
func (c *Config) SavePlacement(overlay string, x, y int) error {
	switch overlay {
	case OverlayHUD:
		return c.save(map[string]any{"hud_x": x, "hud_y": y})
	case OverlayTimer:
		return c.save(map[string]any{"timer_x": x, "timer_y": y})
	default:
		return errors.New().WithData(errors.ErrInvalidArgument, overlay)
	}
}

// SaveBestLap writes the best lap (seconds) back to the config file.
func (c *Config) SaveBestLap(seconds float64) error {
	return c.save(map[string]any{"best_lap": seconds})
}

// save merges values into the file on disk. The HUD and timer processes
// share the file, so the read-modify-write runs under a lock file next to it
// and the new content replaces the old one with a rename.
func (c *Config) save(values map[string]any) error {
	errFactory := errors.New()

	c.mu.Lock()
	defer c.mu.Unlock()

	unlock, err := lockFile(c.path)
	if err != nil {
		return err
	}
	defer unlock()

	v := viper.New()
	v.SetConfigFile(c.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		if !isNotExist(err) {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		for k, val := range c.fileValues() {
			v.Set(k, val)
		}
	}

	for k, val := range values {
		v.Set(k, val)
	}

	return writeAtomic(v, c.path)
}

// fileValues are the keys persisted when the config file is created.
func (c *Config) fileValues() map[string]any {
	return map[string]any{
		"rpm_max":             c.RPMMax,
		"rpm_threshold_pink":  c.ThresholdPink,
		"rpm_threshold_blue":  c.ThresholdBlue,
		"rpm_threshold_flash": c.ThresholdFlash,
		"hud_x":               c.HUDX,
		"hud_y":               c.HUDY,
		"timer_x":             c.TimerX,
		"timer_y":             c.TimerY,
		"best_lap":            c.BestLap,
		"show_best_lap":       c.ShowBestLap,
		"action_hotkey":       c.ActionHotkey,
	}
}

// Watch reloads the config file whenever it is written or replaced and hands
// the fresh values to callback. Only file-backed keys are meaningful in the
// reloaded Config. The directory is watched rather than the file so that
// rename-based writes, ours and editors', keep being seen. The returned
// function stops watching and waits for a running callback to return.
func (c *Config) Watch(callback func(*Config)) (func(), error) {
	errFactory := errors.New()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrWatchConfig, err)
	}
	if err := w.Add(filepath.Dir(c.path)); err != nil {
		w.Close()
		return nil, errFactory.Wrap(errors.ErrWatchConfig, err)
	}

	target := filepath.Clean(c.path)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// A half-written file fails to parse; the next event brings the rest.
				if next, err := c.reload(); err == nil {
					callback(next)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.Close()
			<-done
		})
	}, nil
}

func (c *Config) reload() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(c.path)
	v.SetConfigType("json")
	v.SetEnvPrefix(DefaultEnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New().Wrap(errors.ErrReadConfig, err)
	}

	next, err := decode(v)
	if err != nil {
		return nil, err
	}
	next.path = c.path
	next.mu = c.mu

	return next, nil
}
