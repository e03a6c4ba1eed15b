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

package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands"
	"github.com/PlakarLabs/blobbackup/config"
	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/profiler"

	_ "github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands/backup"
	_ "github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands/copyshards"
	_ "github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands/key"
	_ "github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands/ls"
	_ "github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands/restore"
	_ "github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands/version"

	_ "github.com/PlakarLabs/blobbackup/storage/backends/fs"
	_ "github.com/PlakarLabs/blobbackup/storage/backends/memory"
	_ "github.com/PlakarLabs/blobbackup/storage/backends/s3"
)

func main() {
	os.Exit(entryPoint())
}

func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	pathname := filepath.Join(dir, "blobbackup", "config.yml")
	if _, err := os.Stat(pathname); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return pathname
}

func entryPoint() int {
	var opt_config string
	var opt_keyID string
	var opt_verbose bool
	var opt_trace string
	var opt_profiling bool

	flag.StringVar(&opt_config, "config", defaultConfigFile(), "configuration file")
	flag.StringVar(&opt_keyID, "key-id", "", "name of the operator key in the local key store")
	flag.BoolVar(&opt_verbose, "v", false, "display informational messages")
	flag.StringVar(&opt_trace, "trace", "", "display trace logs for a comma separated list of subsystems, or all")
	flag.BoolVar(&opt_profiling, "profile", false, "display profiling logs")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [OPTIONS] <command> [ARGS]\n", flag.CommandLine.Name())
		fmt.Fprintf(flag.CommandLine.Output(), "\nCommands: %s\n\nOptions:\n", strings.Join(subcommands.List(), ", "))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(opt_config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", flag.CommandLine.Name(), err)
		return 1
	}

	logger := logging.NewLoggerWithFile(os.Stdout, os.Stderr, logging.Rotation{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   true,
	})
	defer logger.Close()

	if opt_verbose {
		logger.EnableInfo()
	}
	if opt_trace != "" {
		logger.EnableTrace(opt_trace)
	}

	if flag.NArg() == 0 {
		logger.Error("%s: a command must be provided", flag.CommandLine.Name())
		flag.Usage()
		return 1
	}

	rt := &subcommands.Runtime{
		Config: cfg,
		Logger: logger,
		KeyID:  opt_keyID,
	}

	t0 := time.Now()
	command, args := flag.Arg(0), flag.Args()[1:]
	status, err := subcommands.Execute(rt, command, args)
	if err != nil {
		logger.Error("%s", err)
	}
	logger.Trace("main", "%s completed in %s with status %d", command, time.Since(t0), status)

	if opt_profiling {
		profiler.Display(logger)
	}
	return status
}
