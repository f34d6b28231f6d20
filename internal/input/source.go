package input

import (
	"fmt"
	"strings"
)

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceKey
	sourceButton
)

// Source is the physical origin of the trigger: one keyboard key or one
// gamepad button.
type Source struct {
	kind   sourceKind
	key    string
	button int
}

func KeySource(name string) Source {
	return Source{kind: sourceKey, key: strings.ToLower(strings.TrimSpace(name))}
}

func ButtonSource(index int) Source {
	return Source{kind: sourceButton, button: index}
}

func (s Source) IsKey() bool {
	return s.kind == sourceKey
}

func (s Source) IsButton() bool {
	return s.kind == sourceButton
}

func (s Source) Key() string {
	return s.key
}

func (s Source) Button() int {
	return s.button
}

func (s Source) String() string {
	switch s.kind {
	case sourceKey:
		return "key:" + s.key
	case sourceButton:
		return fmt.Sprintf("button:%d", s.button)
	default:
		return "none"
	}
}
