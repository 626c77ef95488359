package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol"
)

func executeRootCommand(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := newRootCommand(bytes.NewReader(stdin), &stdout)
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	stdout, err := executeRootCommand(t, nil, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if stdout != "dprint-plugin-csharpier "+version+"\n" {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
}

func TestRootServesProtocolOverStdio(t *testing.T) {
	var in bytes.Buffer
	in.Write(binary.BigEndian.AppendUint32(nil, 0))
	for _, msg := range []protocol.Message{
		&protocol.Active{MessageID: 1},
		&protocol.Shutdown{MessageID: 2},
	} {
		if err := protocol.Encode(&in, msg); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	stdout, err := executeRootCommand(t, in.Bytes(), "--parent-pid", "0")
	if err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	want := binary.BigEndian.AppendUint32(nil, 0)
	want = binary.BigEndian.AppendUint32(want, protocol.SchemaVersion)
	if !strings.HasPrefix(stdout, string(want)) {
		t.Fatalf("missing schema reply: %x", stdout)
	}
	if len(stdout) <= len(want) {
		t.Fatalf("expected a reply to Active after the schema")
	}
}

func TestRootRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.toml")
	if err := os.WriteFile(path, []byte("log_level = \"loud\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := executeRootCommand(t, nil, "--config", path); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestRootRejectsArgs(t *testing.T) {
	if _, err := executeRootCommand(t, nil, "extra"); err == nil {
		t.Fatalf("expected positional args to be rejected")
	}
}
