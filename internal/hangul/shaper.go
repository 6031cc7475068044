package hangul

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds one run of an external composer.
const DefaultTimeout = 5 * time.Second

// ErrShaping wraps every failure of a Shaper.
var ErrShaping = errors.New("shaping failed")

// Shaper composes a jamo string into display text.
type Shaper interface {
	Shape(ctx context.Context, jamo string) (string, error)
}

// Passthrough returns its input unchanged.
type Passthrough struct{}

// Shape implements Shaper.
func (Passthrough) Shape(_ context.Context, jamo string) (string, error) {
	return jamo, nil
}

// CommandShaper runs an external composer with the jamo string as its last
// argument and returns its trimmed standard output.
type CommandShaper struct {
	// Name is the program to run, for example "node".
	Name string

	// Args precede the jamo argument, for example the script path.
	Args []string

	// Timeout bounds each run.
	// Default: DefaultTimeout
	Timeout time.Duration
}

// NewNodeShaper returns a CommandShaper running "node script".
func NewNodeShaper(script string) *CommandShaper {
	return &CommandShaper{Name: "node", Args: []string{script}}
}

// Shape implements Shaper.
func (s *CommandShaper) Shape(ctx context.Context, jamo string) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), s.Args...), jamo)
	cmd := exec.CommandContext(ctx, s.Name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %s timed out after %s", ErrShaping, s.Name, timeout)
		}
		return "", fmt.Errorf("%w: %s: %v: %s", ErrShaping, s.Name, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Result is the outcome of shaping one submission.
type Result struct {
	// Raw is the jamo string that was shaped.
	Raw string
	// Text is the shaped text, empty when Err is set.
	Text string
	Err  error
}

// OrRaw returns the shaped text, or the unshaped jamo when shaping failed.
func (r Result) OrRaw() string {
	if r.Err != nil {
		return r.Raw
	}
	return r.Text
}

// Shape converts keys to jamo and runs shaper over them.
func Shape(ctx context.Context, shaper Shaper, keys string) Result {
	jamo := Convert(keys)
	text, err := shaper.Shape(ctx, jamo)
	if err != nil && !errors.Is(err, ErrShaping) {
		err = fmt.Errorf("%w: %v", ErrShaping, err)
	}
	if err != nil {
		return Result{Raw: jamo, Err: err}
	}
	return Result{Raw: jamo, Text: text}
}
