package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInfoRequiresEnable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewLogger(&stdout, &stderr)

	l.Info("hidden %d", 1)
	if stdout.Len() != 0 {
		t.Fatalf("expected no output before EnableInfo, got %q", stdout.String())
	}

	l.EnableInfo()
	l.Info("visible %d", 2)
	if !strings.Contains(stdout.String(), "visible 2") {
		t.Errorf("expected info line, got %q", stdout.String())
	}
}

func TestWarnAndErrorGoToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewLogger(&stdout, &stderr)

	l.Warn("careful")
	l.Error("broken")
	if stdout.Len() != 0 {
		t.Errorf("unexpected stdout output %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "careful") || !strings.Contains(stderr.String(), "broken") {
		t.Errorf("expected both lines on stderr, got %q", stderr.String())
	}
}

func TestTraceSubsystems(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewLogger(&stdout, &stderr)

	l.Trace("index", "before enabling")
	if stdout.Len() != 0 {
		t.Fatalf("expected no trace output before EnableTrace")
	}

	l.EnableTrace("index, packer")
	l.Trace("index", "reset")
	l.Trace("packer", "flush")
	l.Trace("repository", "upload")

	out := stdout.String()
	if !strings.Contains(out, "index: reset") || !strings.Contains(out, "packer: flush") {
		t.Errorf("expected enabled subsystems in output, got %q", out)
	}
	if strings.Contains(out, "repository: upload") {
		t.Errorf("unexpected trace for disabled subsystem: %q", out)
	}

	stdout.Reset()
	l.EnableTrace("all")
	l.Trace("repository", "upload")
	if !strings.Contains(stdout.String(), "repository: upload") {
		t.Errorf("expected all to enable every subsystem, got %q", stdout.String())
	}
}

func TestLoggerWithFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	filename := filepath.Join(t.TempDir(), "blobbackup.log")
	l := NewLoggerWithFile(&stdout, &stderr, Rotation{Filename: filename, MaxSize: 1})

	l.Printf("hello file")
	l.Warn("warned")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), "warned") {
		t.Errorf("expected both lines in log file, got %q", data)
	}
	if !strings.Contains(stdout.String(), "hello file") {
		t.Errorf("expected line on stdout too")
	}
}
