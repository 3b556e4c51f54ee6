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

// Package config provides basic infrastructure to set configuration settings
// for trapdbg. Each setting that can be changed from the command line or from
// a configuration file must be registered as a flag in RegisterFlags and have
// a Config field tagged with the flag's name.
package config

import (
	"fmt"
	"path/filepath"
)

// Log formats accepted by --log-format and --debug-log-format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds configuration that is not part of the command arguments.
type Config struct {
	// ConfigFile is a TOML file whose keys are flag names. Flags given on
	// the command line take precedence over it.
	ConfigFile string `flag:"config"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is a file that errors are appended to as JSON lines.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// DebugLog is a pattern for an additional log file. It may contain
	// %PID%, %TIMESTAMP% and %COMMAND%.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for debug.
	DebugLogFormat string `flag:"debug-log-format"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// Demangle enables demangling of C++ and Rust symbol names.
	Demangle bool `flag:"demangle"`

	// Disassemble shows the instruction at the breakpoint on every hit.
	Disassemble bool `flag:"disassemble"`

	// TraceSysGood marks syscall stops so they can't be confused with
	// breakpoint traps.
	TraceSysGood bool `flag:"trace-sysgood"`

	// TraceFork, TraceExec, TraceClone and TraceExit enable the matching
	// ptrace event stops.
	TraceFork  bool `flag:"trace-fork"`
	TraceExec  bool `flag:"trace-exec"`
	TraceClone bool `flag:"trace-clone"`
	TraceExit  bool `flag:"trace-exit"`

	// WaitRetries is how often an interrupted wait is retried.
	WaitRetries uint64 `flag:"wait-retries"`

	// ProcRoot is where procfs is mounted.
	ProcRoot string `flag:"proc-root"`
}

func validateLogFormat(name, format string) error {
	switch format {
	case LogFormatText, LogFormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid --%s %q: must be %q or %q", name, format, LogFormatText, LogFormatJSON)
	}
}

func (c *Config) validate() error {
	if err := validateLogFormat("log-format", c.LogFormat); err != nil {
		return err
	}
	if err := validateLogFormat("debug-log-format", c.DebugLogFormat); err != nil {
		return err
	}
	if !filepath.IsAbs(c.ProcRoot) {
		return fmt.Errorf("--proc-root must be an absolute path, got %q", c.ProcRoot)
	}
	return nil
}
