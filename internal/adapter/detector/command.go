// Package detector adapts an external smile detection program to the
// session controller.
//
// The program receives one encoded frame on stdin and prints a single JSON
// object on stdout:
//
//	{"is_smiling": true, "confidence": 0.42}
//
// When is_smiling is omitted the verdict is confidence > threshold.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/smile-alarm/internal/domain/vision"
)

// waitDelay bounds how long output pipes are drained after the program is killed.
const waitDelay = 200 * time.Millisecond

// ErrNoCommand is returned when no detector program is configured.
var ErrNoCommand = errors.New("no detector command configured")

// Command runs a detector program once per frame.
type Command struct {
	name      string
	args      []string
	threshold float64
}

// NewCommand creates a detector running name with args.
func NewCommand(name string, args []string, threshold float64) *Command {
	return &Command{
		name:      name,
		args:      append([]string(nil), args...),
		threshold: threshold,
	}
}

type verdict struct {
	IsSmiling  *bool   `json:"is_smiling"`
	Confidence float64 `json:"confidence"`
}

// Detect runs the program on frame. ctx bounds the program's lifetime.
func (c *Command) Detect(ctx context.Context, frame vision.Frame) (vision.Detection, error) {
	if c.name == "" {
		return vision.Detection{}, ErrNoCommand
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.name, c.args...) //nolint:gosec // The command comes from the local config file.
	cmd.Stdin = bytes.NewReader(frame.Data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return vision.Detection{}, fmt.Errorf("run detector: %w: %s", err, msg)
		}

		return vision.Detection{}, fmt.Errorf("run detector: %w", err)
	}

	return c.parse(stdout.Bytes(), frame)
}

func (c *Command) parse(output []byte, frame vision.Frame) (vision.Detection, error) {
	var v verdict
	if err := json.Unmarshal(bytes.TrimSpace(output), &v); err != nil {
		return vision.Detection{}, fmt.Errorf("decode detector output: %w", err)
	}

	smiling := v.Confidence > c.threshold
	if v.IsSmiling != nil {
		smiling = *v.IsSmiling
	}

	return vision.Detection{
		IsSmiling:  smiling,
		Confidence: v.Confidence,
		Annotated:  frame,
	}, nil
}
