package config

import (
	"strconv"
	"strings"
)

// gamepadPrefix marks a hotkey as a gamepad button, e.g. "btn4".
const gamepadPrefix = "btn"

type HotkeyKind int

const (
	HotkeyKeyboard HotkeyKind = iota
	HotkeyGamepad
)

func (k HotkeyKind) String() string {
	if k == HotkeyGamepad {
		return "gamepad"
	}
	return "keyboard"
}

// Hotkey is a parsed action_hotkey value.
type Hotkey struct {
	Kind   HotkeyKind
	Key    string
	Button int
}

func (h Hotkey) String() string {
	if h.Kind == HotkeyGamepad {
		return gamepadPrefix + strconv.Itoa(h.Button)
	}
	return h.Key
}

// ParseHotkey interprets a hotkey string. "btnN" selects gamepad button N;
// a "btn" prefix without a valid number falls back to the space key;
// anything else is a keyboard key name. Matching is case-insensitive.
func ParseHotkey(raw string) Hotkey {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Hotkey{Kind: HotkeyKeyboard, Key: DefaultHotkey}
	}

	if strings.HasPrefix(s, gamepadPrefix) {
		n, err := strconv.Atoi(strings.TrimPrefix(s, gamepadPrefix))
		if err != nil {
			return Hotkey{Kind: HotkeyKeyboard, Key: DefaultHotkey}
		}
		return Hotkey{Kind: HotkeyGamepad, Button: n}
	}

	return Hotkey{Kind: HotkeyKeyboard, Key: s}
}

// Hotkey returns the parsed action hotkey.
func (c *Config) Hotkey() Hotkey {
	return ParseHotkey(c.ActionHotkey)
}
