package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCommand     = "csharpier"
	DefaultGracePeriod = 5 * time.Second
)

// ConfigPathPlaceholder expands to a per-request csharpier config file holding
// the resolved options. The file is removed once the engine exits.
const ConfigPathPlaceholder = "{configPath}"

// DefaultArgs reads the file from stdin, applies the resolved options through
// a generated config file and writes the result to stdout.
var DefaultArgs = []string{"format", "--write-stdout", "--config-path", ConfigPathPlaceholder}

// ExecTransformer runs an external engine per request with the file text on
// stdin. Args may reference {filePath}, {printWidth}, {indentSize}, {useTabs},
// {endOfLine} and {configPath}.
type ExecTransformer struct {
	Command     string
	Args        []string
	Dir         string
	Env         []string
	GracePeriod time.Duration
}

func NewExecTransformer(command string, args []string, dir string) *ExecTransformer {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
		if args == nil {
			args = DefaultArgs
		}
	}
	return &ExecTransformer{
		Command:     command,
		Args:        args,
		Dir:         dir,
		GracePeriod: DefaultGracePeriod,
	}
}

func (e *ExecTransformer) Transform(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	var configPath string
	if referencesConfigPath(e.Args) {
		path, err := writeOptionsFile(req.Options)
		if err != nil {
			return nil, err
		}
		defer os.Remove(path)
		configPath = path
	}

	cmd := exec.CommandContext(ctx, e.Command, ExpandArgs(e.Args, req, configPath)...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.Stdin = bytes.NewReader(req.Text)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// interrupt first so the engine can clean up; WaitDelay escalates to kill
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = e.GracePeriod

	return e.result(ctx, cmd.Run(), &stdout, &stderr)
}

// result maps a finished run. A clean exit wins over a cancellation that
// arrived after the engine was done.
func (e *ExecTransformer) result(ctx context.Context, err error, stdout, stderr *bytes.Buffer) ([]byte, error) {
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &TransformError{
			Command:  e.Command,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return nil, fmt.Errorf("formatter: run %s: %w", e.Command, err)
}

// ExpandArgs substitutes request placeholders in args. configPath replaces
// {configPath}.
func ExpandArgs(args []string, req Request, configPath string) []string {
	r := strings.NewReplacer(
		ConfigPathPlaceholder, configPath,
		"{filePath}", req.FilePath,
		"{printWidth}", strconv.Itoa(req.Options.PrintWidth),
		"{indentSize}", strconv.Itoa(req.Options.IndentSize),
		"{useTabs}", strconv.FormatBool(req.Options.UseTabs),
		"{endOfLine}", req.Options.EndOfLine,
	)
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = r.Replace(arg)
	}
	return out
}

func referencesConfigPath(args []string) bool {
	for _, arg := range args {
		if strings.Contains(arg, ConfigPathPlaceholder) {
			return true
		}
	}
	return false
}

// optionsFile is the csharpier configuration file layout.
type optionsFile struct {
	PrintWidth int    `json:"printWidth"`
	UseTabs    bool   `json:"useTabs"`
	IndentSize int    `json:"indentSize"`
	EndOfLine  string `json:"endOfLine"`
}

func writeOptionsFile(opts Options) (string, error) {
	data, err := json.Marshal(optionsFile{
		PrintWidth: opts.PrintWidth,
		UseTabs:    opts.UseTabs,
		IndentSize: opts.IndentSize,
		EndOfLine:  opts.EndOfLine,
	})
	if err != nil {
		return "", fmt.Errorf("formatter: encode options: %w", err)
	}
	f, err := os.CreateTemp("", "csharpierrc-*.json")
	if err != nil {
		return "", fmt.Errorf("formatter: create options file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("formatter: write options file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("formatter: write options file: %w", err)
	}
	return f.Name(), nil
}
