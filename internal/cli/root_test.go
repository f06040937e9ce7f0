package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// localArgs points a command at a fresh database under a temporary home.
func localArgs(t *testing.T, args ...string) []string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return append(args,
		"--db", filepath.Join(home, "desk.db"),
		"--config", filepath.Join(home, "missing.yaml"),
	)
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	formatFlag := root.PersistentFlags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("expected --format flag to exist")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("expected --format default 'text', got %q", formatFlag.DefValue)
	}

	for _, name := range []string{"db", "config"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to exist", name)
		}
	}
}

func TestCommandTree(t *testing.T) {
	root := NewRootCmd()
	for _, path := range [][]string{
		{"serve"}, {"migrate"}, {"due"}, {"export"}, {"remind"}, {"version"},
		{"user", "add"}, {"user", "list"}, {"user", "remove"}, {"user", "passwd"},
		{"apikey", "create"}, {"apikey", "list"}, {"apikey", "revoke"},
		{"login"}, {"logout"}, {"status"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("command %v not found", path)
		}
	}
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"user add needs email", []string{"user", "add"}},
		{"apikey create needs name", []string{"apikey", "create"}},
		{"apikey create needs user", []string{"apikey", "create", "laptop"}},
		{"apikey revoke needs id", []string{"apikey", "revoke"}},
		{"export needs kind", []string{"export"}},
		{"due takes no args", []string{"due", "extra"}},
		{"remind takes no args", []string{"remind", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
