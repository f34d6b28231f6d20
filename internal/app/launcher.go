package app

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/logger"
)

// ChildEnv marks a process started by the launcher.
const ChildEnv = "WTHUD_CHILD"

// StopGrace is how long children get to save their state after being asked
// to stop before they are killed.
const StopGrace = 5 * time.Second

// ChildArgs returns args with every --overlay flag removed and
// "--overlay <overlay>" appended.
func ChildArgs(args []string, overlay string) []string {
	out := make([]string, 0, len(args)+2)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--overlay":
			i++ // value
		case strings.HasPrefix(arg, "--overlay="):
		default:
			out = append(out, arg)
		}
	}

	return append(out, "--overlay", overlay)
}

// IsChild reports whether this process was started by Launch.
func IsChild() bool {
	return os.Getenv(ChildEnv) != ""
}

// StopOnEOF calls stop once r reaches EOF or fails. Launch keeps a child's
// stdin open for as long as the child should run, so closing it is the stop
// request; Windows offers no signal that reaches a windowed child reliably.
func StopOnEOF(r io.Reader, stop func()) {
	go func() {
		_, _ = io.Copy(io.Discard, r)
		stop()
	}()
}

// Launch starts one child process per overlay from the current executable
// and waits for all of them. Canceling ctx asks every child to stop.
func Launch(ctx context.Context, args []string, overlays ...string) error {
	errFactory := errors.New()

	if IsChild() {
		return errFactory.WithData(ErrLaunchChild, "refusing to launch overlays from a child process")
	}

	exe, err := os.Executable()
	if err != nil {
		return errFactory.Wrap(ErrLaunchChild, err)
	}

	return launch(ctx, exe, args, overlays, StopGrace)
}

type child struct {
	overlay string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	done    chan struct{}
	err     error
}

func launch(ctx context.Context, exe string, args, overlays []string, grace time.Duration) error {
	errFactory := errors.New()
	log := logger.With("launcher")

	children := make([]*child, 0, len(overlays))
	for _, overlay := range overlays {
		c, err := startChild(exe, args, overlay)
		if err != nil {
			stopAll(children, grace, log)
			return errFactory.Wrap(ErrLaunchChild, err)
		}

		log.Info().Str("overlay", overlay).Int("pid", c.cmd.Process.Pid).Msg("Overlay started")
		children = append(children, c)
	}

	allDone := make(chan struct{})
	go func() {
		for _, c := range children {
			<-c.done
		}
		close(allDone)
	}()

	select {
	case <-allDone:
	case <-ctx.Done():
		log.Info().Msg("Stopping overlays")
		stopAll(children, grace, log)
	}

	errs := make([]error, 0, len(children))
	for _, c := range children {
		if c.err != nil {
			errs = append(errs, errFactory.WithMessage(ErrLaunchChild, c.overlay+": "+c.err.Error()))
		}
	}

	return errors.Join(errs...)
}

func startChild(exe string, args []string, overlay string) (*child, error) {
	cmd := exec.Command(exe, ChildArgs(args, overlay)...)
	cmd.Env = append(os.Environ(), ChildEnv+"=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &child{overlay: overlay, cmd: cmd, stdin: stdin, done: make(chan struct{})}
	go func() {
		c.err = cmd.Wait()
		close(c.done)
	}()

	return c, nil
}

// stopAll asks every child to stop, kills those still running after grace
// and waits for all of them.
func stopAll(children []*child, grace time.Duration, log logger.Logger) {
	for _, c := range children {
		_ = c.stdin.Close()
	}

	expired := make(chan struct{})
	timer := time.AfterFunc(grace, func() { close(expired) })
	defer timer.Stop()

	var wg sync.WaitGroup
	for _, c := range children {
		wg.Add(1)
		go func(c *child) {
			defer wg.Done()
			select {
			case <-c.done:
			case <-expired:
				log.Warn().Str("overlay", c.overlay).Msg("Overlay did not stop in time, killing it")
				_ = c.cmd.Process.Kill()
				<-c.done
			}
		}(c)
	}
	wg.Wait()
}
