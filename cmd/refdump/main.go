// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command refdump inspects object-graph documents written by the
// objstream package.
//
// Usage:
//
//	refdump document.bin
//	refdump -config refcore.yaml document.bin
//
// The dump lists every object in the document's table with its class
// and fields; reference fields print the table index of their target.
// Output is diagnostic only and has no stable format.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vizworks/refcore/config"
	"github.com/vizworks/refcore/logging"
	"github.com/vizworks/refcore/objstream"
)

func main() {
	configPath := flag.String("config", "", "path to a refcore YAML config file")
	logLevel := flag.String("log-level", "", "override log level (debug, info, warn, error)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: refdump [-config file] [-log-level level] <document>")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "refdump: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(level),
		LogDir:  cfg.Log.Dir,
		Service: "refdump",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "refdump: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	path := flag.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		logger.Error("open document failed", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	logger.Debug("dumping document", "path", path)
	if err := objstream.Describe(f, os.Stdout); err != nil {
		logger.Error("dump failed", "path", path, "error", err)
		os.Exit(1)
	}
}
