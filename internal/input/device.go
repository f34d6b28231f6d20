package input

// Reading is one sample of the gamepad. Axes are normalized to [-1,1];
// bit i of Buttons is button i.
type Reading struct {
	Axes    []float64
	Buttons uint32
}

// Device is an acquired gamepad.
type Device interface {
	Name() string
	AxisCount() int
	ButtonCount() int
	Read() (Reading, error)
	Close()
}

// DeviceOpener acquires the first available gamepad.
type DeviceOpener interface {
	Open() (Device, error)
}

// KeyEvent is a physical key transition reported by the keyboard hook.
// Auto-repeat arrives as repeated Down events.
type KeyEvent struct {
	Code uint16
	Down bool
}

// KeyboardHook delivers global key events while started.
type KeyboardHook interface {
	Start() (<-chan KeyEvent, error)
	Stop()
	Resolve(name string) (code uint16, ok bool)
}
