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

package config

import (
	"flag"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/trapdbg/trapdbg/pkg/log"
)

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.String("config", "", "TOML file with flag values, keyed by flag name. Command line flags take precedence.")

	// Logging flags.
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.String("log", "", "file where errors are appended as JSON lines, in addition to stderr.")
	flagSet.String("log-format", LogFormatText, "log format: text (default) or json.")
	flagSet.String("debug-log", "", "additional location for logs. The following variables are available: %PID%, %TIMESTAMP%, %COMMAND%.")
	flagSet.String("debug-log-format", LogFormatText, "log format for --debug-log: text (default) or json.")
	flagSet.Bool("alsologtostderr", false, "send log messages to stderr.")

	// Symbol flags.
	flagSet.Bool("demangle", true, "show demangled C++ and Rust symbol names.")
	flagSet.Bool("disassemble", true, "show the instruction at the breakpoint on every hit.")

	// Tracing flags.
	flagSet.Bool("trace-sysgood", true, "mark syscall stops (PTRACE_O_TRACESYSGOOD).")
	flagSet.Bool("trace-fork", false, "stop on fork (PTRACE_O_TRACEFORK). The child is released with the breakpoint removed.")
	flagSet.Bool("trace-exec", true, "stop on execve (PTRACE_O_TRACEEXEC). The session ends, since the breakpoint went with the old image.")
	flagSet.Bool("trace-clone", false, "stop on clone (PTRACE_O_TRACECLONE). The new thread is released untraced.")
	flagSet.Bool("trace-exit", false, "stop before exit (PTRACE_O_TRACEEXIT).")
	flagSet.Uint64("wait-retries", 3, "number of times an interrupted wait is retried.")
	flagSet.String("proc-root", "/proc", "mount point of procfs.")
}

// NewFromFlags creates a new Config with values coming from command line flags.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := &Config{}

	obj := reflect.ValueOf(conf).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			// No flag set for this field.
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		x := reflect.ValueOf(fl.Value.(flag.Getter).Get())
		obj.Field(i).Set(x)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// ToFlags returns a slice of flags that correspond to the given Config.
// Fields holding their default value are omitted.
func (c *Config) ToFlags() []string {
	var rv []string

	// Construct a temporary set for default plumbing.
	flagSet := flag.NewFlagSet("tmp", flag.ContinueOnError)
	RegisterFlags(flagSet)

	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			continue
		}
		val := getVal(obj.Field(i))

		fl := flagSet.Lookup(name)
		if fl == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		if val == fl.DefValue {
			continue
		}
		rv = append(rv, fmt.Sprintf("--%s=%s", fl.Name, val))
	}
	return rv
}

// Log writes the non-default settings to the info log.
func (c *Config) Log() {
	flags := c.ToFlags()
	if len(flags) == 0 {
		log.Infof("Config: defaults")
		return
	}
	log.Infof("Config: %s", strings.Join(flags, " "))
}

func getVal(field reflect.Value) string {
	switch field.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(field.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(field.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(field.Uint(), 10)
	case reflect.String:
		return field.String()
	default:
		panic("unknown type " + field.Kind().String())
	}
}

// LoadFile sets flags in flagSet from the TOML file at path. Keys are flag
// names and values must be scalars. Flags already set on the command line
// are left alone.
func LoadFile(flagSet *flag.FlagSet, path string) error {
	var values map[string]any
	if _, err := toml.DecodeFile(path, &values); err != nil {
		return fmt.Errorf("reading config file %q: %w", path, err)
	}

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fl := flagSet.Lookup(name)
		if fl == nil || name == "config" {
			return fmt.Errorf("config file %q: unknown key %q", path, name)
		}
		if explicit[name] {
			continue
		}
		var val string
		switch v := values[name].(type) {
		case string:
			val = v
		case bool:
			val = strconv.FormatBool(v)
		case int64:
			val = strconv.FormatInt(v, 10)
		default:
			return fmt.Errorf("config file %q: key %q: unsupported value %v (%T)", path, name, v, v)
		}
		if err := flagSet.Set(name, val); err != nil {
			return fmt.Errorf("config file %q: key %q: %w", path, name, err)
		}
	}
	return nil
}
