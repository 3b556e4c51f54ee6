// Copyright 2026 The trapdbg Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux && amd64

// Package cli is the main entrypoint for trapdbg.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/google/subcommands"
	"github.com/trapdbg/trapdbg/pkg/log"
	"github.com/trapdbg/trapdbg/trapdbg/cmd"
	"github.com/trapdbg/trapdbg/trapdbg/cmd/util"
	"github.com/trapdbg/trapdbg/trapdbg/config"
)

// version is set at link time with -X.
var version = "unknown"

const versionFlagName = "version"

// Main is the main entrypoint.
func Main() {
	forEachCmd(subcommands.Register)

	config.RegisterFlags(flag.CommandLine)
	showVersion := flag.Bool(versionFlagName, false, "show version and exit.")

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	if *showVersion {
		fmt.Fprintf(os.Stdout, "trapdbg version %s\n", version)
		os.Exit(0)
	}

	if path := flag.Lookup("config").Value.String(); path != "" {
		if err := config.LoadFile(flag.CommandLine, path); err != nil {
			util.Fatalf("%v", err)
		}
	}
	conf, err := config.NewFromFlags(flag.CommandLine)
	if err != nil {
		util.Fatalf("%v", err)
	}

	if conf.LogFilename != "" {
		// Append, several invocations may share one error log.
		f, err := os.OpenFile(conf.LogFilename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			util.Fatalf("error opening log file %q: %v", conf.LogFilename, err)
		}
		util.ErrorLogger = f
	}

	subcommand := flag.CommandLine.Arg(0)
	if conf.Debug {
		log.SetLevel(log.Debug)
	}

	var emitters log.MultiEmitter
	if conf.DebugLog != "" {
		f, err := log.OpenFile(conf.DebugLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, log.DefaultPatternOpts(subcommand))
		if err != nil {
			util.Fatalf("error opening debug log file %q: %v", conf.DebugLog, err)
		}
		emitters = append(emitters, newEmitter(conf.DebugLogFormat, f))
	}
	if conf.AlsoLogToStderr || conf.DebugLog == "" {
		emitters = append(emitters, newEmitter(conf.LogFormat, os.Stderr))
	}
	if len(emitters) == 1 {
		log.SetTarget(emitters[0])
	} else {
		log.SetTarget(&emitters)
	}

	const delimString = `*************** trapdbg ***************`
	log.Debugf(delimString)
	log.Debugf("Version %s, %s, %s, PID %d, UID %d", version, runtime.Version(), runtime.GOARCH, os.Getpid(), os.Getuid())
	log.Debugf("Args: %v", os.Args)
	if log.IsLogging(log.Debug) {
		conf.Log()
	}
	log.Debugf(delimString)

	status := subcommands.Execute(context.Background(), conf)
	log.Debugf("Exiting with status: %v", status)
	os.Exit(int(status))
}

// forEachCmd invokes the passed callback for each command supported by
// trapdbg.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")
	cb(subcommands.CommandsCommand(), "")

	cb(new(cmd.Break), "")

	const inspectGroup = "inspect"
	cb(new(cmd.Symbols), inspectGroup)
	cb(new(cmd.Headers), inspectGroup)
}

func newEmitter(format string, logFile io.Writer) log.Emitter {
	switch format {
	case config.LogFormatText:
		return log.GoogleEmitter{Writer: &log.Writer{Next: logFile}}
	case config.LogFormatJSON:
		return log.JSONEmitter{Writer: &log.Writer{Next: logFile}}
	}
	util.Fatalf("invalid log format %q, must be %q or %q", format, config.LogFormatText, config.LogFormatJSON)
	panic("unreachable")
}
