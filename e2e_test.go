//go:build e2e

package main

import (
	"encoding/json"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var canopyBin string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "canopy-e2e-*")
	if err != nil {
		panic("failed to create temp dir: " + err.Error())
	}
	defer os.RemoveAll(tmp)

	canopyBin = filepath.Join(tmp, "canopy")
	build := exec.Command("go", "build", "-ldflags", "-X github.com/msalah0e/canopy/cmd.version=0.9.0-test", "-o", canopyBin, ".")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		panic("failed to build canopy: " + err.Error())
	}

	os.Exit(m.Run())
}

// runCanopy executes the canopy binary with an isolated HOME directory.
func runCanopy(t *testing.T, dir string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	cmd := exec.Command(canopyBin, args...)
	cmd.Dir = dir
	home := t.TempDir()
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"NO_COLOR=1",
	)

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run canopy %v: %v", args, err)
		}
	}
	return outBuf.String(), errBuf.String(), exitCode
}

// --- Core CLI ---

func TestE2E_Version(t *testing.T) {
	out, _, code := runCanopy(t, t.TempDir(), "--version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "0.9.0") {
		t.Errorf("expected version output to contain '0.9.0', got %q", out)
	}
}

func TestE2E_Help(t *testing.T) {
	out, _, code := runCanopy(t, t.TempDir(), "--help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"Available Commands", "render", "layout", "top"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help to contain %q, got %q", want, out)
		}
	}
}

// --- Rendering ---

func TestE2E_RenderSynthetic(t *testing.T) {
	dir := t.TempDir()
	_, stderr, code := runCanopy(t, dir, "render", "--synthetic", "60:90", "--seed", "3", "--width", "320", "--height", "200", "-o", "g.png")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	f, err := os.Open(filepath.Join(dir, "g.png"))
	if err != nil {
		t.Fatalf("png not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Errorf("expected 320x200, got %v", b)
	}
}

func TestE2E_RenderFiles(t *testing.T) {
	dir := t.TempDir()
	data := `{"nodes":[{"id":"a","labels":["Person"],"properties":{"name":"Ada"}},{"id":"b","labels":["City"]}],` +
		`"relationships":[{"id":"r","type":"LIVES_IN","source":"a","target":"b"},{"id":"x","type":"BROKEN","source":"a","target":"zz"}]}`
	for _, name := range []string{"one.json", "two.json"} {
		os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644)
	}
	out, stderr, code := runCanopy(t, dir, "render", "one.json", "two.json", "--dir", "shots", "--width", "200", "--height", "120")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s %s", code, out, stderr)
	}
	for _, name := range []string{"one.png", "two.png"} {
		if _, err := os.Stat(filepath.Join(dir, "shots", name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if !strings.Contains(stderr, "dropped malformed input") {
		t.Errorf("expected a warning for the dangling relationship, got %q", stderr)
	}
}

func TestE2E_RenderNoInput(t *testing.T) {
	_, _, code := runCanopy(t, t.TempDir(), "render")
	if code == 0 {
		t.Fatal("expected non-zero exit without a data set")
	}
}

// --- Layout ---

func TestE2E_LayoutJSON(t *testing.T) {
	out, stderr, code := runCanopy(t, t.TempDir(), "layout", "--synthetic", "80:120", "--seed", "5", "--json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	var report struct {
		Nodes    int `json:"nodes"`
		Overlaps int `json:"overlaps"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if report.Nodes != 80 {
		t.Errorf("expected 80 nodes, got %d", report.Nodes)
	}
	if report.Overlaps != 0 {
		t.Errorf("expected no overlaps, got %d", report.Overlaps)
	}
}

// --- Live loop ---

func TestE2E_TopDuration(t *testing.T) {
	out, stderr, code := runCanopy(t, t.TempDir(), "top", "--synthetic", "100:150", "--seed", "1", "--duration", "1500ms", "--orbit", "--width", "320", "--height", "200")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(out, "FPS") {
		t.Errorf("expected dashboard output, got %q", out)
	}
}

// --- Config ---

func TestE2E_ConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	_, _, code := runCanopy(t, dir, "config", "init")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	out, _, code := runCanopy(t, dir, "config", "show")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"[cull]", "[lod]", "[layout]", "[idle]", "[interaction]", "[telemetry]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in config show output", want)
		}
	}
}

func TestE2E_ProjectConfigOverride(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".canopy.toml"), []byte("[layout]\nticks = 42\n"), 0o644)
	out, _, code := runCanopy(t, dir, "config", "show")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "ticks = 42") {
		t.Errorf("expected project override in output:\n%s", out)
	}
}
