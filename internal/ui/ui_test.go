package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFprintTableAligns(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	FprintTable(&buf, []string{"METRIC", "VALUE"}, [][]string{
		{"nodes", "500"},
		{"overlapping pairs", "0"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	col := strings.Index(lines[0], "VALUE")
	if strings.Index(lines[2], "500") != col || strings.Index(lines[3], "0 ") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestFprintTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FprintTable(&buf, []string{"A"}, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
