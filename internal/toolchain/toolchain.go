// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package toolchain locates the external converter and OCR binaries and runs
// them with a per-invocation timeout. A missing tool is never an error at
// resolution time: it is recorded as unavailable and callers branch on it.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Role names the logical job a tool fills in the pipeline.
type Role string

const (
	RoleRasterizer         Role = "rasterizer"
	RoleRasterizerFallback Role = "rasterizer-fallback"
	RoleOCR                Role = "ocr"
)

var (
	// ErrUnavailable is returned when an unavailable tool is asked to run.
	ErrUnavailable = errors.New("tool unavailable")
	// ErrInvocationFailed wraps a non-zero exit or start failure.
	ErrInvocationFailed = errors.New("tool invocation failed")
	// ErrTimeout wraps an invocation killed by the per-invocation timeout.
	ErrTimeout = errors.New("tool invocation timed out")
)

// Candidate binary names per role, in preference order.
var (
	rasterizerNames         = []string{"magick", "convert"}
	rasterizerFallbackNames = []string{"pdftoppm"}
	ocrNames                = []string{"tesseract"}
)

// CommonDirs are probed, in order, after the executable search path.
var CommonDirs = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/usr/bin",
	"/bin",
}

// Tool is a resolved binding for one role. An empty Path is the explicit
// "unavailable" marker.
type Tool struct {
	Role Role   `json:"role" yaml:"role"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Available reports whether the tool was found.
func (t Tool) Available() bool { return t.Path != "" }

// Name returns the binary's file name, or "" when unavailable.
func (t Tool) Name() string {
	if t.Path == "" {
		return ""
	}
	return filepath.Base(t.Path)
}

func (t Tool) String() string {
	if !t.Available() {
		return fmt.Sprintf("%s: unavailable", t.Role)
	}
	return fmt.Sprintf("%s: %s", t.Role, t.Path)
}

// Tools holds the bindings resolved once per run.
type Tools struct {
	Rasterizer         Tool `json:"rasterizer" yaml:"rasterizer"`
	RasterizerFallback Tool `json:"rasterizer_fallback" yaml:"rasterizer_fallback"`
	OCR                Tool `json:"ocr" yaml:"ocr"`
}

// All returns the bindings in a stable order for display.
func (t Tools) All() []Tool {
	return []Tool{t.Rasterizer, t.RasterizerFallback, t.OCR}
}

// Executor abstracts process execution and lookup for testing.
type Executor interface {
	// LookPath searches the executable search path for file.
	LookPath(file string) (string, error)
	// IsExecutable reports whether path names an existing regular file.
	IsExecutable(path string) bool
	// Run executes name with args and returns combined stdout and stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// OSExecutor returns the executor backed by the operating system.
func OSExecutor() Executor { return osExecutor{} }

// Resolver finds tool binaries on the search path or in CommonDirs.
type Resolver struct {
	exec Executor
	dirs []string
}

// NewResolver returns a resolver using exec and the given fallback
// directories. A nil exec means the OS executor; nil dirs means CommonDirs.
func NewResolver(exec Executor, dirs []string) *Resolver {
	if exec == nil {
		exec = osExecutor{}
	}
	if dirs == nil {
		dirs = CommonDirs
	}
	return &Resolver{exec: exec, dirs: dirs}
}

// Find returns the absolute path of the first candidate found, or "" if none
// is installed. The search path is tried for every candidate before any
// fallback directory is probed.
func (r *Resolver) Find(candidates ...string) string {
	for _, name := range candidates {
		if p, err := r.exec.LookPath(name); err == nil && p != "" {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	for _, dir := range r.dirs {
		for _, name := range candidates {
			p := filepath.Join(dir, name)
			if r.exec.IsExecutable(p) {
				return p
			}
		}
	}
	return ""
}

// ResolveAll binds every role. It is meant to run once before any document
// is processed.
func (r *Resolver) ResolveAll() Tools {
	return Tools{
		Rasterizer:         Tool{Role: RoleRasterizer, Path: r.Find(rasterizerNames...)},
		RasterizerFallback: Tool{Role: RoleRasterizerFallback, Path: r.Find(rasterizerFallbackNames...)},
		OCR:                Tool{Role: RoleOCR, Path: r.Find(ocrNames...)},
	}
}

// Resolve binds every role using the OS executor and CommonDirs.
func Resolve() Tools {
	return NewResolver(nil, nil).ResolveAll()
}

// maxOutputTail bounds how much tool output is kept in error messages.
const maxOutputTail = 512

// Invoker runs resolved tools, each invocation bounded by a timeout.
type Invoker struct {
	exec    Executor
	timeout time.Duration
}

// NewInvoker returns an invoker. A nil exec means the OS executor; a
// non-positive timeout disables the bound.
func NewInvoker(exec Executor, timeout time.Duration) *Invoker {
	if exec == nil {
		exec = osExecutor{}
	}
	return &Invoker{exec: exec, timeout: timeout}
}

// Invoke runs tool with args. It refuses to run an unavailable tool.
func (i *Invoker) Invoke(ctx context.Context, tool Tool, args ...string) error {
	if !tool.Available() {
		return fmt.Errorf("%s: %w", tool.Role, ErrUnavailable)
	}

	runCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	out, err := i.exec.Run(runCtx, tool.Path, args...)
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%s after %s: %w", tool.Name(), i.timeout, ErrTimeout)
	}
	if tail := outputTail(out); tail != "" {
		return fmt.Errorf("%s: %w: %v: %s", tool.Name(), ErrInvocationFailed, err, tail)
	}
	return fmt.Errorf("%s: %w: %v", tool.Name(), ErrInvocationFailed, err)
}

func outputTail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxOutputTail {
		s = "..." + s[len(s)-maxOutputTail:]
	}
	return s
}
