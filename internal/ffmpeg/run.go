package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

const stderrTailBytes = 4096

// Run compiles an ffmpeg-go stream and executes it under ctx. The stream's
// stdin/stdout wiring is kept; the tail of stderr is attached to any error.
func Run(ctx context.Context, stream *ffmpeggo.Stream) error {
	compiled := stream.Compile()

	cmd := exec.CommandContext(ctx, compiled.Path, compiled.Args[1:]...)
	cmd.Stdin = compiled.Stdin
	cmd.Stdout = compiled.Stdout

	tail := &tailBuffer{limit: stderrTailBytes}
	if compiled.Stderr != nil {
		cmd.Stderr = io.MultiWriter(compiled.Stderr, tail)
	} else {
		cmd.Stderr = tail
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if msg := tail.String(); msg != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// Args returns the command line ffmpeg-go would run, without the binary.
func Args(stream *ffmpeggo.Stream) []string {
	return stream.GetArgs()
}

// IsNotFound reports whether err came from a missing executable.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// keeps the last limit bytes written
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
