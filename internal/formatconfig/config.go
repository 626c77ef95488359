package formatconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

const unknownPropertyMessage = "Unknown configuration property name."

var ErrConfigNotFound = errors.New("formatconfig: configuration not found")

// DecodeError reports a malformed configuration payload.
type DecodeError struct {
	Source   string
	Property string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("formatconfig: malformed %s config: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("formatconfig: malformed %s config property %q: %v", e.Source, e.Property, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EndOfLine values accepted for the plugin endOfLine property.
const (
	EndOfLineAuto = "auto"
	EndOfLineLF   = "lf"
	EndOfLineCRLF = "crlf"
)

// Global is the cross-plugin dprint configuration.
type Global struct {
	LineWidth   *int    `json:"lineWidth,omitempty"`
	IndentWidth *int    `json:"indentWidth,omitempty"`
	UseTabs     *bool   `json:"useTabs,omitempty"`
	NewLineKind *string `json:"newLineKind,omitempty"`
}

// Plugin is the csharpier-specific configuration. Unknown holds property names
// the decoder did not recognize; they are reported, never rejected.
type Plugin struct {
	PrintWidth *int    `json:"printWidth,omitempty"`
	IndentSize *int    `json:"indentSize,omitempty"`
	UseTabs    *bool   `json:"useTabs,omitempty"`
	EndOfLine  *string `json:"endOfLine,omitempty"`

	Unknown map[string]json.RawMessage `json:"-"`
}

// Diagnostic is one configuration problem reported to the host.
type Diagnostic struct {
	PropertyName string `json:"propertyName"`
	Message      string `json:"message"`
}

// DecodeGlobal parses global config bytes. Unrecognized properties are ignored.
func DecodeGlobal(data []byte) (Global, error) {
	var out Global
	props, err := decodeObject("global", data)
	if err != nil || props == nil {
		return out, err
	}
	for name, raw := range props {
		switch name {
		case "lineWidth":
			err = decodeProperty("global", name, raw, &out.LineWidth)
		case "indentWidth":
			err = decodeProperty("global", name, raw, &out.IndentWidth)
		case "useTabs":
			err = decodeProperty("global", name, raw, &out.UseTabs)
		case "newLineKind":
			err = decodeProperty("global", name, raw, &out.NewLineKind)
		}
		if err != nil {
			return Global{}, err
		}
	}
	return out, nil
}

// DecodePlugin parses plugin config bytes, collecting unknown properties.
func DecodePlugin(data []byte) (Plugin, error) {
	var out Plugin
	props, err := decodeObject("plugin", data)
	if err != nil || props == nil {
		return out, err
	}
	for name, raw := range props {
		switch name {
		case "printWidth":
			err = decodeProperty("plugin", name, raw, &out.PrintWidth)
		case "indentSize":
			err = decodeProperty("plugin", name, raw, &out.IndentSize)
		case "useTabs":
			err = decodeProperty("plugin", name, raw, &out.UseTabs)
		case "endOfLine":
			err = decodeProperty("plugin", name, raw, &out.EndOfLine)
			if err == nil && out.EndOfLine != nil && !validEndOfLine(*out.EndOfLine) {
				err = &DecodeError{Source: "plugin", Property: name, Err: fmt.Errorf("unsupported value %q", *out.EndOfLine)}
			}
		default:
			if out.Unknown == nil {
				out.Unknown = make(map[string]json.RawMessage)
			}
			out.Unknown[name] = raw
		}
		if err != nil {
			return Plugin{}, err
		}
	}
	return out, nil
}

// Plugin translates the global options into plugin terms.
func (g Global) Plugin() Plugin {
	out := Plugin{
		PrintWidth: g.LineWidth,
		IndentSize: g.IndentWidth,
		UseTabs:    g.UseTabs,
	}
	if g.NewLineKind != nil {
		eol := translateNewLineKind(*g.NewLineKind)
		out.EndOfLine = &eol
	}
	return out
}

// Combine returns p overlaid by other: explicit fields in other win.
func (p Plugin) Combine(other Plugin) Plugin {
	out := Plugin{
		PrintWidth: firstSet(other.PrintWidth, p.PrintWidth),
		IndentSize: firstSet(other.IndentSize, p.IndentSize),
		UseTabs:    firstSet(other.UseTabs, p.UseTabs),
		EndOfLine:  firstSet(other.EndOfLine, p.EndOfLine),
	}
	if len(p.Unknown)+len(other.Unknown) > 0 {
		out.Unknown = make(map[string]json.RawMessage, len(p.Unknown)+len(other.Unknown))
		maps.Copy(out.Unknown, p.Unknown)
		maps.Copy(out.Unknown, other.Unknown)
	}
	return out
}

// IsEmpty reports whether p sets nothing at all.
func (p Plugin) IsEmpty() bool {
	return p.PrintWidth == nil &&
		p.IndentSize == nil &&
		p.UseTabs == nil &&
		p.EndOfLine == nil &&
		len(p.Unknown) == 0
}

// Diagnostics returns one entry per unknown property, sorted by name.
func (p Plugin) Diagnostics() []Diagnostic {
	names := slices.Sorted(maps.Keys(p.Unknown))
	out := make([]Diagnostic, 0, len(names))
	for _, name := range names {
		out = append(out, Diagnostic{PropertyName: name, Message: unknownPropertyMessage})
	}
	return out
}

func decodeObject(source string, data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &props); err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return props, nil
}

func decodeProperty[T any](source, name string, raw json.RawMessage, dst **T) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*dst = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return &DecodeError{Source: source, Property: name, Err: err}
	}
	*dst = &v
	return nil
}

func validEndOfLine(v string) bool {
	switch v {
	case EndOfLineAuto, EndOfLineLF, EndOfLineCRLF:
		return true
	default:
		return false
	}
}

// dprint newLineKind values are auto, lf, crlf and system.
func translateNewLineKind(kind string) string {
	switch kind {
	case EndOfLineLF, EndOfLineCRLF:
		return kind
	default:
		return EndOfLineAuto
	}
}

func firstSet[T any](vs ...*T) *T {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
