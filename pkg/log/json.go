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

package log

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// levelNames are the JSON names of the levels, indexed by Level.
var levelNames = [...]string{
	Warning: "warning",
	Info:    "info",
	Debug:   "debug",
}

// MarshalJSON implements json.Marshaler.MarshalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	if int(l) >= len(levelNames) {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return strconv.AppendQuote(nil, levelNames[l]), nil
}

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON. It accepts the
// level names in any case and the numeric values.
func (l *Level) UnmarshalJSON(b []byte) error {
	if n, err := strconv.ParseUint(string(b), 10, 32); err == nil {
		if n >= uint64(len(levelNames)) {
			return fmt.Errorf("unknown level %d", n)
		}
		*l = Level(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("level %s: %w", b, err)
	}
	for i, n := range levelNames {
		if strings.EqualFold(n, name) {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", name)
}

// jsonLine is one record of JSONEmitter output.
type jsonLine struct {
	Time   time.Time `json:"time"`
	Level  Level     `json:"level"`
	Pid    int       `json:"pid"`
	Caller string    `json:"caller"`
	Msg    string    `json:"msg"`
}

// JSONEmitter writes one JSON object per message, for log collectors.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	file, line := callerFileLine(depth + 1)
	rec := jsonLine{
		Time:   timestamp,
		Level:  level,
		Pid:    pid,
		Caller: file + ":" + strconv.Itoa(line),
		Msg:    fmt.Sprintf(format, v...),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		// Unknown level.
		rec.Level = Warning
		b, _ = json.Marshal(rec)
	}
	e.Writer.Write(b)
}
