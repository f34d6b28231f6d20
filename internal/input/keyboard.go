package input

import (
	"strings"
	"sync"

	"codeberg.org/mutker/wthud/internal/errors"
	hook "github.com/robotn/gohook"
)

// aliases maps config key names to the names the hook keymap uses.
var aliases = map[string]string{
	"return":   "enter",
	"spacebar": "space",
	"esc":      "escape",
	"del":      "delete",
}

// GlobalKeyboard is a KeyboardHook backed by gohook. Only one instance may be
// started at a time since the underlying hook is process global.
type GlobalKeyboard struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func NewGlobalKeyboard() *GlobalKeyboard {
	return &GlobalKeyboard{}
}

func (k *GlobalKeyboard) Start() (<-chan KeyEvent, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running {
		return nil, errors.New().New(ErrHookRunning)
	}

	events := hook.Start()
	out := make(chan KeyEvent, 32)
	stop := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}

				var ke KeyEvent
				switch ev.Kind {
				case hook.KeyHold:
					ke = KeyEvent{Code: ev.Keycode, Down: true}
				case hook.KeyUp:
					ke = KeyEvent{Code: ev.Keycode}
				default:
					continue
				}

				select {
				case out <- ke:
				case <-stop:
					return
				}
			}
		}
	}()

	k.running = true
	k.stop = stop

	return out, nil
}

func (k *GlobalKeyboard) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.running {
		return
	}

	close(k.stop)
	hook.End()
	k.running = false
}

// Resolve maps a key name such as "space" or "f5" to its hook key code.
func (k *GlobalKeyboard) Resolve(name string) (uint16, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if code, ok := hook.Keycode[name]; ok {
		return code, true
	}

	alias, ok := aliases[name]
	if !ok {
		return 0, false
	}
	code, ok := hook.Keycode[alias]
	return code, ok
}
