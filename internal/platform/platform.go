package platform

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/oshokin/wake-engine/internal/logger"
)

// Screen reports whether a user-facing display session is available. On
// Linux it checks for an X11 or Wayland session; other desktop systems are
// assumed interactive.
type Screen struct{}

// Interactive reports whether the ringing UI can be seen right now.
func (Screen) Interactive(_ context.Context) bool {
	if runtime.GOOS != "linux" {
		return true
	}

	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Foreground surfaces the ringing screen by starting a configured program.
// Without a configured program the request is only logged.
type Foreground struct {
	// Command is the program and its leading arguments. The ringing
	// identifier is appended as the last argument.
	Command []string
}

// BringRingingToFront starts the surface command asynchronously; the
// program takes over from there.
func (f Foreground) BringRingingToFront(ctx context.Context, id int64) {
	if len(f.Command) == 0 {
		logger.InfoKV(ctx, "No ring command configured, leaving surfacing to the UI shell", "id", id)

		return
	}

	args := make([]string, 0, len(f.Command))
	args = append(args, f.Command[1:]...)
	args = append(args, strconv.FormatInt(id, 10))

	cmd := exec.CommandContext(ctx, f.Command[0], args...)
	if err := cmd.Start(); err != nil {
		logger.ErrorKV(ctx, "Failed to start ring command",
			"id", id, "command", f.Command[0], "error", err)

		return
	}

	// Reap the process so it does not linger as a zombie.
	go func() {
		_ = cmd.Wait()
	}()

	logger.InfoKV(ctx, "Ring command started", "id", id, "command", f.Command[0])
}
