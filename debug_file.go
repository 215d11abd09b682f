// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package radio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Session log rotation limits
const (
	SessionLogMaxSizeMB  = 10
	SessionLogMaxBackups = 5
	SessionLogMaxAgeDays = 14
)

var (
	sessionMu   syncutil.Mutex
	sessionLog  io.WriteCloser
	sessionPath string
)

func writeSession(message string) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionLog == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	_, _ = fmt.Fprintf(sessionLog, "%s DEBUG: %s\n", timestamp, message)
}

// InitSessionLog opens a rotating session log in dir (the current directory
// if empty) and returns its path. A log that is already open is closed
// first.
func InitSessionLog(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create session log directory: %w", err)
	}
	if err := CloseSessionLog(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("nrfradio_%s.log", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	logger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    SessionLogMaxSizeMB,
		MaxBackups: SessionLogMaxBackups,
		MaxAge:     SessionLogMaxAgeDays,
	}
	writeSessionHeader(logger)

	sessionMu.Lock()
	sessionLog = logger
	sessionPath = path
	sessionMu.Unlock()
	return path, nil
}

// CloseSessionLog writes the session footer and closes the log.
func CloseSessionLog() error {
	sessionMu.Lock()
	logger := sessionLog
	sessionLog = nil
	sessionPath = ""
	sessionMu.Unlock()

	if logger == nil {
		return nil
	}
	timestamp := time.Now().Format("15:04:05.000")
	_, _ = fmt.Fprintf(logger, "\n%s === Session ended ===\n", timestamp)
	if err := logger.Close(); err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

// GetSessionLogPath returns the open session log path, or "".
func GetSessionLogPath() string {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return sessionPath
}

func writeSessionHeader(w io.Writer) {
	_, _ = fmt.Fprint(w, "=== nrfradio Debug Session Log ===\n")
	_, _ = fmt.Fprintf(w, "Started: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "PID: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(w, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	if exe, err := os.Executable(); err == nil {
		_, _ = fmt.Fprintf(w, "Executable: %s\n", exe)
	}
	_, _ = fmt.Fprintf(w, "Command Line: %s\n", strings.Join(os.Args, " "))
	_, _ = fmt.Fprint(w, "==================================\n\n")
}
