package formatter

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/dprint-plugin-csharpier/internal/formatconfig"
)

var ErrCancelled = errors.New("formatter: operation cancelled")

const (
	DefaultPrintWidth = 100
	DefaultIndentSize = 4
	DefaultUseTabs    = false
	DefaultEndOfLine  = formatconfig.EndOfLineAuto
)

// Options are the effective formatting options for one request.
type Options struct {
	PrintWidth int
	IndentSize int
	UseTabs    bool
	EndOfLine  string
}

func DefaultOptions() Options {
	return Options{
		PrintWidth: DefaultPrintWidth,
		IndentSize: DefaultIndentSize,
		UseTabs:    DefaultUseTabs,
		EndOfLine:  DefaultEndOfLine,
	}
}

// OptionsFrom fills unset plugin properties with defaults.
func OptionsFrom(cfg formatconfig.Plugin) Options {
	opts := DefaultOptions()
	if cfg.PrintWidth != nil {
		opts.PrintWidth = *cfg.PrintWidth
	}
	if cfg.IndentSize != nil {
		opts.IndentSize = *cfg.IndentSize
	}
	if cfg.UseTabs != nil {
		opts.UseTabs = *cfg.UseTabs
	}
	if cfg.EndOfLine != nil {
		opts.EndOfLine = *cfg.EndOfLine
	}
	return opts
}

// Request is one file handed to the engine. StartByte and EndByte delimit the
// range the host asked for; engines may format the whole file.
type Request struct {
	FilePath  string
	Text      []byte
	StartByte uint32
	EndByte   uint32
	Options   Options
}

// Transformer formats file text. Implementations must return promptly once ctx
// is done, failing with an error that wraps ErrCancelled.
type Transformer interface {
	Transform(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts an ordinary function to Transformer.
type Func func(ctx context.Context, req Request) ([]byte, error)

func (f Func) Transform(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// TransformError is a failed engine run.
type TransformError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *TransformError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("formatter: %s exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("formatter: %s exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}
