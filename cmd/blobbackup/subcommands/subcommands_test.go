package subcommands

import (
	"bytes"
	"os"
	"testing"

	"github.com/PlakarLabs/blobbackup/config"
	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/local"
	"github.com/PlakarLabs/blobbackup/logging"
)

func testRuntime(t *testing.T) *Runtime {
	cfg := config.Default()
	cfg.KeysDir = t.TempDir()
	return &Runtime{Config: cfg, Logger: logging.Discard()}
}

func TestExecute(t *testing.T) {
	var received []string
	Register("test-command", func(rt *Runtime, args []string) int {
		received = args
		return 3
	})

	status, err := Execute(testRuntime(t), "test-command", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if status != 3 || len(received) != 2 {
		t.Errorf("unexpected status %d, args %v", status, received)
	}

	if _, err := Execute(testRuntime(t), "no-such-command", nil); err == nil {
		t.Errorf("expected error for unknown command")
	}

	found := false
	for _, command := range List() {
		if command == "test-command" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected registered command to be listed")
	}
}

func TestOperatorKeyFromEnvironment(t *testing.T) {
	key, _ := encryption.GenerateKey()
	t.Setenv(KeyEnvironment, encryption.EncodeKey(key))

	loaded, err := testRuntime(t).OperatorKey()
	if err != nil {
		t.Fatalf("OperatorKey: %v", err)
	}
	if !bytes.Equal(loaded, key) {
		t.Errorf("unexpected key")
	}
}

func TestOperatorKeyFromLocalStore(t *testing.T) {
	t.Setenv(KeyEnvironment, "")
	os.Unsetenv(KeyEnvironment)

	rt := testRuntime(t)
	rt.KeyID = "laptop"
	key, _ := encryption.GenerateKey()
	if err := local.SetKey(rt.Config.KeysDir, rt.KeyID, key); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	loaded, err := rt.OperatorKey()
	if err != nil {
		t.Fatalf("OperatorKey: %v", err)
	}
	if !bytes.Equal(loaded, key) {
		t.Errorf("unexpected key")
	}
}
