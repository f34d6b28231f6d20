package input

import (
	"fmt"

	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/0xcafed00d/joystick"
	"github.com/samber/lo"
)

const (
	maxJoystickID = 4
	axisRange     = 32767.0
)

// JoystickOpener opens the first gamepad among the OS joystick slots.
type JoystickOpener struct{}

func (JoystickOpener) Open() (Device, error) {
	errFactory := errors.New()

	var lastErr error
	for id := 0; id < maxJoystickID; id++ {
		js, err := joystick.Open(id)
		if err != nil {
			lastErr = err
			continue
		}
		return &joystickDevice{id: id, js: js}, nil
	}

	return nil, errFactory.Wrap(ErrNoDevice, lastErr)
}

type joystickDevice struct {
	id int
	js joystick.Joystick
}

func (d *joystickDevice) Name() string {
	if name := d.js.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("joystick %d", d.id)
}

func (d *joystickDevice) AxisCount() int {
	return d.js.AxisCount()
}

func (d *joystickDevice) ButtonCount() int {
	return d.js.ButtonCount()
}

func (d *joystickDevice) Read() (Reading, error) {
	state, err := d.js.Read()
	if err != nil {
		return Reading{}, errors.New().Wrap(ErrDeviceRead, err)
	}

	axes := make([]float64, len(state.AxisData))
	for i, v := range state.AxisData {
		axes[i] = lo.Clamp(float64(v)/axisRange, -1, 1)
	}

	return Reading{Axes: axes, Buttons: state.Buttons}, nil
}

func (d *joystickDevice) Close() {
	d.js.Close()
}
