package subcommands

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/utils"
	"github.com/PlakarLabs/blobbackup/config"
	"github.com/PlakarLabs/blobbackup/context"
	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/local"
	"github.com/PlakarLabs/blobbackup/logging"
)

const KeyEnvironment = "BLOBBACKUP_KEY"

// Runtime carries what every subcommand needs before a context exists.
type Runtime struct {
	Config *config.Config
	Logger *logging.Logger
	KeyID  string
}

var subcommands map[string]func(*Runtime, []string) int = make(map[string]func(*Runtime, []string) int)

func Register(command string, fn func(*Runtime, []string) int) {
	subcommands[command] = fn
}

func Execute(rt *Runtime, command string, args []string) (int, error) {
	fn, exists := subcommands[command]
	if !exists {
		return 1, fmt.Errorf("unknown command: %s", command)
	}
	return fn(rt, args), nil
}

func List() []string {
	var list []string
	for command := range subcommands {
		list = append(list, command)
	}
	sort.Strings(list)
	return list
}

// OperatorKey looks the key up in the environment, then in the local key
// store, and prompts for it as a last resort. A prompted key is stored.
func (rt *Runtime) OperatorKey() ([]byte, error) {
	if text, exists := os.LookupEnv(KeyEnvironment); exists {
		return encryption.ParseKey(text)
	}

	key, err := local.GetKey(rt.Config.KeysDir, rt.KeyID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, local.ErrNoKey) {
		return nil, err
	}

	passphrase, err := utils.GetPassphraseConfirm("operator key")
	if err != nil {
		return nil, err
	}
	key, err = encryption.ParseKey(string(passphrase))
	if err != nil {
		return nil, err
	}
	if err := local.SetKey(rt.Config.KeysDir, rt.KeyID, key); err != nil {
		return nil, err
	}
	rt.Logger.Info("operator key stored in %s", rt.Config.KeysDir)
	return key, nil
}

// BuildContext wires a context that still holds the operator key.
func (rt *Runtime) BuildContext(opts context.Options) (*context.Context, error) {
	key, err := rt.OperatorKey()
	if err != nil {
		return nil, err
	}
	return context.New(rt.Config, rt.Logger, key, opts)
}

// OpenContext wires a context and switches it to the main key.
func (rt *Runtime) OpenContext(opts context.Options) (*context.Context, error) {
	ctx, err := rt.BuildContext(opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Repository().LoadMainKey(); err != nil {
		ctx.Close()
		return nil, err
	}
	return ctx, nil
}
