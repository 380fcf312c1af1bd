package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/image-layout/internal/config"
	"github.com/menta2k/image-layout/pkg/processing"
)

// run executes the root command with a config path inside a temp dir
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	return runWithConfig(t, cfgPath, args...)
}

func runWithConfig(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	out, err := run(t, "plan", "4000", "3000", "w=300&h=200&mode=crop", "--exif", "6")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"rotate-90", "3000x4000", "300x200", "resize", "retained", "50.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanCommandJSON(t *testing.T) {
	out, err := run(t, "plan", "640", "480", "?maxwidth=320", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Plan struct {
			Canvas struct{ Width, Height uint32 } `json:"canvas"`
		} `json:"plan"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.Plan.Canvas.Width != 320 || got.Plan.Canvas.Height != 240 {
		t.Errorf("canvas = %+v", got.Plan.Canvas)
	}
}

func TestPlanCommandErrors(t *testing.T) {
	for _, args := range [][]string{
		{"plan", "x", "10"},
		{"plan", "10", "10", "w=5", "--exif", "9"},
		{"plan", "0", "10", "w=5"},
		{"plan", "10"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestDiagramCommand(t *testing.T) {
	out, err := run(t, "diagram", "800", "600", "w=100&h=100&mode=crop")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "<svg") {
		t.Errorf("expected SVG on stdout, got:\n%s", out)
	}

	file := filepath.Join(t.TempDir(), "plan.svg")
	if _, err := run(t, "diagram", "800", "600", "--no-labels", "-o", file); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("<text")) {
		t.Error("labels drawn despite --no-labels")
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.png")
	if err := processing.SaveImage(image.NewNRGBA(image.Rect(0, 0, 60, 30)), input, "png", 0, false); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")
	out, err := run(t, "render", input, "w=20&h=20&mode=crop", "-o", outDir, "--format", "png", "--debug")
	if err != nil {
		t.Fatal(err)
	}
	rendered := filepath.Join(outDir, "in_layout.png")
	img, err := processing.LoadImage(rendered)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Errorf("rendered size = %v", img.Bounds())
	}
	if _, err := os.Stat(filepath.Join(outDir, "in_layout_debug.png")); err != nil {
		t.Errorf("debug overlay missing: %v", err)
	}
	if !strings.Contains(out, "in_layout.png") {
		t.Errorf("output does not name the file:\n%s", out)
	}
}

func TestRenderCommandDirectory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	for _, name := range []string{"a.png", filepath.Join("nested", "b.jpg")} {
		path := filepath.Join(in, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := processing.SaveImage(image.NewNRGBA(image.Rect(0, 0, 40, 80)), path, filepath.Ext(name)[1:], 90, false); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "out")
	out, err := run(t, "render", in, "w=10&h=10&mode=pad", "-o", outDir, "--format", "png")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a_layout.png", "b_layout.png"} {
		img, err := processing.LoadImage(filepath.Join(outDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
			t.Errorf("%s size = %v", name, img.Bounds())
		}
	}
	if !strings.Contains(out, "2 of 2") {
		t.Errorf("output missing batch summary:\n%s", out)
	}

	if _, err := run(t, "render", t.TempDir(), "w=10", "-o", outDir); err == nil {
		t.Error("expected error for a directory without images")
	}
}

func TestFocusCommand(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.png")
	img := image.NewNRGBA(image.Rect(0, 0, 128, 128))
	for y := 90; y < 120; y++ {
		for x := 90; x < 120; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 255, 255, 255
		}
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	if err := processing.SaveImage(img, input, "png", 0, false); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "focus", input, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var res struct {
		Primary struct {
			Label string `json:"label"`
			Box   struct{ X, Y float64 }
		} `json:"primary"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if res.Primary.Label == "none" || res.Primary.Box.X < 0.5 || res.Primary.Box.Y < 0.5 {
		t.Errorf("subject = %+v, want bottom right", res.Primary)
	}
}

func TestConfigCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sub", "config.toml")
	if _, err := runWithConfig(t, cfgPath, "config", "init"); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFromFile(cfgPath); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if _, err := runWithConfig(t, cfgPath, "config", "init"); err == nil {
		t.Error("expected error when the file exists")
	}
	if _, err := runWithConfig(t, cfgPath, "config", "init", "--force"); err != nil {
		t.Error(err)
	}

	out, err := runWithConfig(t, cfgPath, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[decoder]") || !strings.Contains(out, `backend = "none"`) {
		t.Errorf("unexpected config:\n%s", out)
	}
}

func TestSetVersion(t *testing.T) {
	defer SetVersion(version, commit, date)
	SetVersion("2.0.0", "abc123", "2026-01-01")
	if version != "2.0.0" || commit != "abc123" || date != "2026-01-01" {
		t.Errorf("version = %q %q %q", version, commit, date)
	}
}
