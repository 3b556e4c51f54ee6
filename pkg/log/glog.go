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
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// GoogleEmitter emits logs in a format compatible with package
// github.com/golang/glog.
type GoogleEmitter struct {
	*Writer
}

// pid stands in for the thread ID of the glog header.
var pid = os.Getpid()

// levelLetter is the first character of a glog line.
func levelLetter(level Level) byte {
	switch level {
	case Debug:
		return 'D'
	case Info:
		return 'I'
	default:
		return 'W'
	}
}

// callerFileLine returns the base file name and line depth+1 frames above
// its caller, or "x:0" if the stack is not that deep.
func callerFileLine(depth int) (string, int) {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		return "x", 0
	}
	if slash := strings.LastIndexByte(file, '/'); slash >= 0 {
		file = file[slash+1:]
	}
	return file, line
}

// Emit emits the message, google-style.
//
// Log lines have this form:
//
//	Lmmdd hh:mm:ss.uuuuuu threadid file:line] msg...
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, args ...any) {
	file, line := callerFileLine(depth + 1)
	_, month, day := timestamp.Date()
	hour, minute, second := timestamp.Clock()

	b := make([]byte, 0, 256)
	b = append(b, levelLetter(level))
	b = fmt.Appendf(b, "%02d%02d %02d:%02d:%02d.%06d %7d %s:%d] ",
		int(month), day, hour, minute, second, timestamp.Nanosecond()/1000, pid, file, line)
	b = fmt.Appendf(b, format, args...)
	if b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}
	g.Writer.Write(b)
}
