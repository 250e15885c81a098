package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-out", "site", "-sandbox", "none", "https://acme.test"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.test", opts.url)
	assert.Equal(t, "site", opts.outDir)
	assert.Equal(t, "none", opts.sandbox)
	assert.Equal(t, ".env", opts.envFile)

	_, err = parseFlags(nil, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-h"}, io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestWriteProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeProject(dir, map[string]string{
		"package.json":     `{"name":"clone"}`,
		"app/page.tsx":     "export default function Page() {}",
		"components/a.tsx": "export const A = 1",
	}))

	data, err := os.ReadFile(filepath.Join(dir, "app", "page.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "export default function Page() {}", string(data))

	err = writeProject(dir, map[string]string{"../escape.txt": "x"})
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFollow(t *testing.T) {
	stream := make(chan entity.Event, 3)
	stream <- entity.Event{Seq: 1, Status: entity.StatusScraping}
	stream <- entity.Event{Seq: 2, Log: "Navigating to page..."}
	stream <- entity.Event{Seq: 3, Status: entity.StatusDone, PreviewURL: "https://preview.test", Files: map[string]string{"app/page.tsx": "x"}}
	close(stream)

	dir := t.TempDir()
	var out bytes.Buffer
	code := follow(stream, &out, "c-1", dir)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Navigating to page...")
	assert.Contains(t, out.String(), "https://preview.test")
	_, err := os.Stat(filepath.Join(dir, "app", "page.tsx"))
	assert.NoError(t, err)
}

func TestFollowError(t *testing.T) {
	stream := make(chan entity.Event, 1)
	stream <- entity.Event{Seq: 1, Status: entity.StatusError, Message: "Failed to generate code"}
	close(stream)

	var out bytes.Buffer
	assert.Equal(t, 1, follow(stream, &out, "c-1", ""))
	assert.Contains(t, out.String(), "Failed to generate code")
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	line := formatEvent(entity.Event{Status: entity.StatusFixing, Message: "attempt 2"}, at)
	assert.True(t, strings.Contains(line, "fixing"))
	assert.True(t, strings.Contains(line, "attempt 2"))
	assert.Contains(t, line, "12:30:00")
}
