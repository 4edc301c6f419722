package db

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGooseLogger_Printf(t *testing.T) {
	var buf bytes.Buffer
	l := gooseLogger{log: slog.New(slog.NewTextHandler(&buf, nil))}

	l.Printf("OK   %s (%s)\n", "00002_catches.sql", "4ms")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="OK   00002_catches.sql (4ms)"`)
}
