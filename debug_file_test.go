//nolint:paralleltest // Tests modify package-level session log state, cannot run in parallel
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
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanupSessionLog closes any log a test left open
func cleanupSessionLog(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { _ = CloseSessionLog() })
}

func TestInitSessionLog_CreatesFile(t *testing.T) {
	cleanupSessionLog(t)
	dir := t.TempDir()

	path, err := InitSessionLog(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, path, GetSessionLogPath())

	_, err = os.Stat(path)
	require.NoError(t, err, "log file should exist")

	matched, err := regexp.MatchString(`^nrfradio_\d{8}_\d{6}\.log$`, filepath.Base(path))
	require.NoError(t, err)
	assert.True(t, matched, "got: %s", path)
}

func TestInitSessionLog_CreatesDirectory(t *testing.T) {
	cleanupSessionLog(t)
	dir := filepath.Join(t.TempDir(), "logs", "radio")

	path, err := InitSessionLog(dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestInitSessionLog_WritesHeader(t *testing.T) {
	cleanupSessionLog(t)

	path, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)

	content, err := os.ReadFile(path) //nolint:gosec // test file path
	require.NoError(t, err)
	assert.Contains(t, string(content), "=== nrfradio Debug Session Log ===")
	assert.Contains(t, string(content), "Started:")
	assert.Contains(t, string(content), "PID:")
	assert.Contains(t, string(content), "Go Version:")
}

func TestCloseSessionLog_WritesFooter(t *testing.T) {
	path, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)

	Debugf("between header and footer")
	require.NoError(t, CloseSessionLog())
	assert.Empty(t, GetSessionLogPath())

	content, err := os.ReadFile(path) //nolint:gosec // test file path
	require.NoError(t, err)
	assert.Regexp(t, `\d{2}:\d{2}:\d{2}\.\d{3} DEBUG: between header and footer`, string(content))
	assert.Contains(t, string(content), "=== Session ended ===")
}

func TestCloseSessionLog_NotOpen(t *testing.T) {
	require.NoError(t, CloseSessionLog())
	require.NoError(t, CloseSessionLog())
}

func TestInitSessionLog_ErrorOnInvalidDirectory(t *testing.T) {
	cleanupSessionLog(t)

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := InitSessionLog(filepath.Join(file, "sub"))
	require.Error(t, err)
	assert.Empty(t, GetSessionLogPath())
}

func TestInitSessionLog_ReopenClosesPrevious(t *testing.T) {
	cleanupSessionLog(t)

	first, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	second, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, second, GetSessionLogPath())

	content, err := os.ReadFile(first) //nolint:gosec // test file path
	require.NoError(t, err)
	assert.Contains(t, string(content), "=== Session ended ===")
}
