package scene

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hubforge/homehub/internal/infrastructure/config"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
)

func quietLogger() *logging.Logger {
	return logging.New(config.Logging{Level: "error", Format: "text", Output: "stderr"}, "test")
}

func TestResolveConfinesToSceneDirectory(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(config.Scenes{Directory: dir, Timeout: 5}, quietLogger())

	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{"plain name", "radio.sh", false},
		{"subdirectory", "morning/lights.sh", false},
		{"empty command", "", true},
		{"parent escape", "../evil.sh", true},
		{"deep escape", "a/../../evil.sh", true},
		{"absolute-looking", "/etc/passwd", false}, // joined under dir, stays confined
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := r.resolve(tt.command)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCommand) {
					t.Fatalf("expected ErrInvalidCommand, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			absDir, _ := filepath.Abs(dir)
			if !strings.HasPrefix(path, absDir+string(filepath.Separator)) {
				t.Errorf("resolved path %s escapes %s", path, absDir)
			}
		})
	}
}

func TestTriggerRunsScript(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	script := "#!/bin/sh\necho \"$1\" > " + marker + "\n"
	if err := os.WriteFile(filepath.Join(dir, "mark.sh"), []byte(script), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	r := NewRunner(config.Scenes{Directory: dir, Timeout: 5}, quietLogger())
	r.Trigger("mark.sh", "hello")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if out, err := os.ReadFile(marker); err == nil {
			if strings.TrimSpace(string(out)) != "hello" {
				t.Fatalf("script argument not passed, got %q", out)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("script never ran")
}

func TestTriggerRejectedCommandRunsNothing(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(config.Scenes{Directory: dir, Timeout: 5}, quietLogger())

	// Fire-and-forget: a rejected command is logged, never panics.
	r.Trigger("../outside.sh")
	r.Trigger("")
}
