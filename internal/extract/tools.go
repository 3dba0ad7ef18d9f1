// Package extract derives type-specific metadata from files, routing
// each media type to exactly one extractor variant.
package extract

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"findex/internal/findex"
)

// Tool describes one external helper process. Availability is probed
// once at startup; absence is data consulted before each extraction,
// not control flow.
type Tool struct {
	path      string
	timeout   time.Duration
	available bool
	version   string
}

// NewTool probes for the tool at path (resolved via $PATH when relative)
// and captures its version. versionArgs is the argv used for the probe.
func NewTool(path string, timeout time.Duration, versionArgs []string, logger findex.Logger) *Tool {
	t := &Tool{path: path, timeout: timeout}

	resolved, err := exec.LookPath(path)
	if err != nil {
		logger.Warn("external tool not found", "tool", path)
		return t
	}
	t.path = resolved

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, resolved, versionArgs...).Output()
	if err != nil {
		logger.Warn("external tool version check failed", "tool", path, "error", err)
		return t
	}

	t.available = true
	t.version = parseVersionLine(string(out))
	logger.Debug("external tool available", "tool", path, "version", t.version)
	return t
}

// Available reports whether the tool can be invoked.
func (t *Tool) Available() bool { return t.available }

// Version returns the version string captured at startup.
func (t *Tool) Version() string { return t.version }

// Run invokes the tool with a bounded timeout and returns its stdout.
func (t *Tool) Run(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	return exec.CommandContext(ctx, t.path, args...).Output()
}

// parseVersionLine extracts a bare version token from tool output like
// "ffprobe version 6.1.1-3ubuntu5" or "MediaInfo Command line, v24.01".
func parseVersionLine(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	if len(fields) > 0 {
		last := fields[len(fields)-1]
		return strings.TrimPrefix(last, "v")
	}
	return ""
}
