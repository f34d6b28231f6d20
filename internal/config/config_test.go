package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/wthud/internal/config"
	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry_config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"rpm_max": 7500,
		"rpm_threshold_pink": 50,
		"rpm_threshold_blue": 85,
		"rpm_threshold_flash": 95,
		"hud_x": 300,
		"hud_y": 900,
		"best_lap": 92.5,
		"show_best_lap": false,
		"action_hotkey": "btn4",
		"telemetry_timeout": "30ms"
	}`)

	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)

	assert.Equal(t, 7500.0, cfg.RPMMax)
	assert.Equal(t, 50.0, cfg.ThresholdPink)
	assert.Equal(t, 85.0, cfg.ThresholdBlue)
	assert.Equal(t, 95.0, cfg.ThresholdFlash)
	assert.Equal(t, 300, cfg.HUDX)
	assert.Equal(t, 900, cfg.HUDY)
	assert.Equal(t, config.UnsetPosition, cfg.TimerX, "unset keys keep their default")
	assert.Equal(t, 92.5, cfg.BestLap)
	assert.False(t, cfg.ShowBestLap)
	assert.Equal(t, 30*time.Millisecond, cfg.TelemetryTimeout)
	assert.Equal(t, config.Hotkey{Kind: config.HotkeyGamepad, Button: 4}, cfg.Hotkey())
	assert.Equal(t, path, cfg.Path())
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err, "a missing config file is not an error")

	assert.Equal(t, config.DefaultRPMMax, cfg.RPMMax)
	assert.Equal(t, 60.0, cfg.ThresholdPink)
	assert.Equal(t, 90.0, cfg.ThresholdBlue)
	assert.Equal(t, 96.0, cfg.ThresholdFlash)
	assert.Equal(t, config.UnsetPosition, cfg.HUDX)
	assert.Equal(t, config.UnsetPosition, cfg.HUDY)
	assert.Equal(t, 0.0, cfg.BestLap)
	assert.True(t, cfg.ShowBestLap)
	assert.Equal(t, config.DefaultHotkey, cfg.ActionHotkey)
	assert.Equal(t, config.DefaultTelemetryURL, cfg.TelemetryURL)
	assert.Equal(t, config.DefaultTelemetryTimeout, cfg.TelemetryTimeout)
	assert.Equal(t, config.DefaultUIScale, cfg.UIScale)
	assert.Equal(t, config.OverlayAll, cfg.Overlay)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, `This is not a valid JSON file`)

	_, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `{"action_hotkey": "f"}`)

	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs([]string{
		"--hotkey", "btn2", "--scale", "2", "--overlay", "Timer", "--debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "btn2", cfg.ActionHotkey)
	assert.Equal(t, 2.0, cfg.UIScale)
	assert.Equal(t, config.OverlayTimer, cfg.Overlay)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigFlagSelectsFile(t *testing.T) {
	path := writeConfig(t, `{"rpm_max": 4200}`)

	cfg, err := config.Load(config.WithArgs([]string{"--config", path}))
	require.NoError(t, err)
	assert.Equal(t, 4200.0, cfg.RPMMax)
}

func TestConfigEnvVarSelectsFile(t *testing.T) {
	path := writeConfig(t, `{"rpm_max": 5100}`)
	t.Setenv("WTHUD_CONFIG", path)

	cfg, err := config.Load(config.WithArgs(nil))
	require.NoError(t, err)
	assert.Equal(t, 5100.0, cfg.RPMMax)
}

func TestInvalidFlag(t *testing.T) {
	_, err := config.Load(config.WithConfigFile(filepath.Join(t.TempDir(), "x.json")),
		config.WithArgs([]string{"--no-such-flag"}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}

func TestValidate(t *testing.T) {
	load := func(t *testing.T, content string) *config.Config {
		t.Helper()
		cfg, err := config.Load(config.WithConfigFile(writeConfig(t, content)), config.WithArgs(nil))
		require.NoError(t, err)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		warnings, err := load(t, `{}`).Validate()
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("inverted thresholds only warn", func(t *testing.T) {
		warnings, err := load(t, `{"rpm_threshold_pink": 95, "rpm_threshold_blue": 40}`).Validate()
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "not ordered")
	})

	t.Run("non-positive rpm_max only warns", func(t *testing.T) {
		warnings, err := load(t, `{"rpm_max": 0}`).Validate()
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "rpm_max")
	})

	t.Run("bad scale is rejected", func(t *testing.T) {
		_, err := load(t, `{"ui_scale": 0}`).Validate()
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
	})

	t.Run("bad overlay is rejected", func(t *testing.T) {
		_, err := load(t, `{"overlay": "speedo"}`).Validate()
		require.Error(t, err)
	})
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSavePlacementKeepsOtherKeys(t *testing.T) {
	path := writeConfig(t, `{"rpm_max": 6000, "timer_x": 10, "timer_y": 20}`)
	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)

	require.NoError(t, cfg.SavePlacement(config.OverlayHUD, 640, 980))

	saved := readJSON(t, path)
	assert.EqualValues(t, 640, saved["hud_x"])
	assert.EqualValues(t, 980, saved["hud_y"])
	assert.EqualValues(t, 10, saved["timer_x"])
	assert.EqualValues(t, 20, saved["timer_y"])
	assert.EqualValues(t, 6000, saved["rpm_max"])
}

func TestSaveBestLapCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.json")
	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)

	require.NoError(t, cfg.SaveBestLap(65.123))

	saved := readJSON(t, path)
	assert.InDelta(t, 65.123, saved["best_lap"], 1e-9)
	assert.EqualValues(t, config.DefaultRPMMax, saved["rpm_max"], "a new file gets the full key set")

	reloaded, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)
	assert.InDelta(t, 65.123, reloaded.BestLap, 1e-9)
}

func TestSavePlacementUnknownOverlay(t *testing.T) {
	cfg, err := config.Load(config.WithConfigFile(filepath.Join(t.TempDir(), "c.json")), config.WithArgs(nil))
	require.NoError(t, err)

	err = cfg.SavePlacement("speedo", 1, 2)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestConcurrentSavesFromTwoProcessesKeepEveryKey(t *testing.T) {
	path := writeConfig(t, `{"rpm_max": 6000}`)

	load := func() *config.Config {
		cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
		require.NoError(t, err)
		return cfg
	}
	// Separate Configs stand in for the HUD and timer processes.
	hud, timer := load(), load()

	for i := 0; i < 50; i++ {
		var (
			wg   sync.WaitGroup
			errs = make([]error, 3)
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = hud.SavePlacement(config.OverlayHUD, i, i+1)
		}()
		go func() {
			defer wg.Done()
			errs[1] = timer.SavePlacement(config.OverlayTimer, i+2, i+3)
			errs[2] = timer.SaveBestLap(float64(60 + i))
		}()
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err, "iteration %d", i)
		}

		saved := readJSON(t, path)
		assert.EqualValues(t, i, saved["hud_x"], "iteration %d", i)
		assert.EqualValues(t, i+1, saved["hud_y"], "iteration %d", i)
		assert.EqualValues(t, i+2, saved["timer_x"], "iteration %d", i)
		assert.EqualValues(t, i+3, saved["timer_y"], "iteration %d", i)
		assert.EqualValues(t, 60+i, saved["best_lap"], "iteration %d", i)
		assert.EqualValues(t, 6000, saved["rpm_max"], "iteration %d", i)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := writeConfig(t, `{}`)
	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)

	require.NoError(t, cfg.SaveBestLap(70))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		name := e.Name()
		if name == filepath.Base(path) || strings.HasSuffix(name, ".lock") {
			continue
		}
		t.Errorf("unexpected file left behind: %s", name)
	}
}

func forward(reloads chan<- *config.Config) func(*config.Config) {
	return func(next *config.Config) {
		select {
		case reloads <- next:
		default:
		}
	}
}

// waitFor drains reloads until one satisfies ok.
func waitFor(t *testing.T, reloads <-chan *config.Config, ok func(*config.Config) bool) *config.Config {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-reloads:
			if ok(next) {
				return next
			}
		case <-deadline:
			t.Fatal("config reload not observed")
			return nil
		}
	}
}

func TestWatchReloadsEditedFile(t *testing.T) {
	path := writeConfig(t, `{"rpm_threshold_pink": 60, "best_lap": 0}`)
	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)

	reloads := make(chan *config.Config, 16)
	stop, err := cfg.Watch(forward(reloads))
	require.NoError(t, err)
	t.Cleanup(stop)

	require.NoError(t, os.WriteFile(path, []byte(`{"rpm_threshold_pink": 70, "best_lap": 88.5}`), 0o600))

	next := waitFor(t, reloads, func(c *config.Config) bool { return c.ThresholdPink == 70 })
	assert.Equal(t, 88.5, next.BestLap)
	assert.Equal(t, path, next.Path())
}

func TestWatchSeesSiblingWriteback(t *testing.T) {
	path := writeConfig(t, `{"best_lap": 0}`)
	load := func() *config.Config {
		cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
		require.NoError(t, err)
		return cfg
	}
	watcher, writer := load(), load()

	reloads := make(chan *config.Config, 16)
	stop, err := watcher.Watch(forward(reloads))
	require.NoError(t, err)
	t.Cleanup(stop)

	require.NoError(t, writer.SaveBestLap(91.25))

	waitFor(t, reloads, func(c *config.Config) bool { return c.BestLap == 91.25 })
}

func TestWatchStop(t *testing.T) {
	path := writeConfig(t, `{"best_lap": 0}`)
	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)

	reloads := make(chan *config.Config, 16)
	stop, err := cfg.Watch(forward(reloads))
	require.NoError(t, err)

	stop()
	stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"best_lap": 50}`), 0o600))
	select {
	case <-reloads:
		t.Fatal("callback ran after stop")
	case <-time.After(200 * time.Millisecond):
	}
}
