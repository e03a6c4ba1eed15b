/*
 * Copyright (c) 2021 Gilles Chehade <gilles@poolp.org>
 *
 * Permission to use, copy, modify, and distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package key

import (
	"errors"
	"flag"

	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands"
	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/utils"
	"github.com/PlakarLabs/blobbackup/context"
	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/local"
)

func init() {
	subcommands.Register("key", cmd_key)
}

func cmd_key(rt *subcommands.Runtime, args []string) int {
	flags := flag.NewFlagSet("key", flag.ExitOnError)
	flags.Parse(args)

	logger := rt.Logger
	if flags.NArg() == 0 {
		logger.Error("%s: expected one of set, change or forget", flags.Name())
		return 1
	}

	var err error
	switch flags.Arg(0) {
	case "set":
		err = keySet(rt, flags.Args()[1:])
	case "change":
		err = keyChange(rt, flags.Args()[1:])
	case "forget":
		err = keyForget(rt, flags.Args()[1:])
	default:
		logger.Error("%s: unknown subcommand %s", flags.Name(), flags.Arg(0))
		return 1
	}
	if err != nil {
		logger.Error("%s %s: %s", flags.Name(), flags.Arg(0), err)
		return 1
	}
	return 0
}

// keySet overwrites the main key of the repository. Data encrypted with
// the previous main key becomes unreadable.
func keySet(rt *subcommands.Runtime, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: key set <main key>")
	}
	mainKey, err := encryption.ParseKey(args[0])
	if err != nil {
		return err
	}

	ctx, err := rt.BuildContext(context.Options{})
	if err != nil {
		return err
	}
	defer ctx.Close()

	if err := ctx.Repository().SetMainKey(mainKey); err != nil {
		return err
	}
	rt.Logger.Warn("main key replaced")
	return nil
}

func keyChange(rt *subcommands.Runtime, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: key change")
	}

	ctx, err := rt.BuildContext(context.Options{})
	if err != nil {
		return err
	}
	defer ctx.Close()

	passphrase, err := utils.GetPassphraseConfirm("new operator key")
	if err != nil {
		return err
	}
	newKey, err := encryption.ParseKey(string(passphrase))
	if err != nil {
		return err
	}

	if err := ctx.Repository().ChangeKey(newKey); err != nil {
		return err
	}
	if err := local.SetKey(rt.Config.KeysDir, rt.KeyID, newKey); err != nil {
		return err
	}
	rt.Logger.Printf("operator key changed")
	return nil
}

func keyForget(rt *subcommands.Runtime, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: key forget")
	}
	if err := local.DeleteKey(rt.Config.KeysDir, rt.KeyID); err != nil {
		return err
	}
	rt.Logger.Printf("operator key removed from %s", rt.Config.KeysDir)
	return nil
}
