package main

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/layerpaint/internal/config"
	"github.com/example/layerpaint/internal/storage"
)

func TestDrawRunWritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, solidImage(60, 40, white))

	d, err := parseDrawCmd([]string{
		"-file", in, "-output", out, "-color", "blue", "-fill",
		"rect", "10", "10", "30", "30",
		"-e", "text 40 5 hi",
	}, testRoot(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := storage.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := img.At(20, 20).RGBA(); r != 0 || g != 0 || b != 0xffff {
		t.Fatalf("filled rectangle pixel = %v %v %v", r, g, b)
	}
	if r, _, _, _ := img.At(5, 35).RGBA(); r != 0xffff {
		t.Fatalf("untouched pixel changed")
	}
	// The input is left alone when an output is given.
	orig, _ := os.ReadFile(in)
	src, _, _ := storage.Decode(orig)
	if r, _, _, _ := src.At(20, 20).RGBA(); r != 0xffff {
		t.Fatalf("input modified")
	}
}

func TestDrawRunReportsFailingCommand(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.png")
	writePNG(t, in, solidImage(10, 10, white))
	d, err := parseDrawCmd([]string{"-file", in, "rect", "1", "2"}, testRoot(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err == nil || !strings.HasPrefix(err.Error(), "rect 1 2:") {
		t.Fatalf("got %v", err)
	}
}

func TestExportRunAddsShadow(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, solidImage(40, 30, white))

	x, err := parseExportCmd([]string{"-output", out, "-shadow", "-shadow-radius", "2", "-shadow-x", "3", "-shadow-y", "3", in}, testRoot(t))
	if err != nil {
		t.Fatal(err)
	}
	var stderr bytes.Buffer
	x.stderr = &stderr
	if err := x.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	img, format, err := storage.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" {
		t.Fatalf("format = %s", format)
	}
	if b := img.Bounds(); b.Dx() <= 40 || b.Dy() <= 30 {
		t.Fatalf("shadow did not pad the image: %v", b)
	}
	if !strings.Contains(stderr.String(), "wrote "+out+" (png") {
		t.Fatalf("stderr: %q", stderr.String())
	}
}

func TestExportRunFallsBackToJPEG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.jpg")
	img := solidImage(64, 64, white)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))
	}
	writePNG(t, in, img)

	x, err := parseExportCmd([]string{"-output", out, "-max-bytes", "6000", "-min-quality", "5", in}, testRoot(t))
	if err != nil {
		t.Fatal(err)
	}
	var stderr bytes.Buffer
	x.stderr = &stderr
	if err := x.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, _ := os.ReadFile(out)
	if len(data) > 6000 {
		t.Fatalf("encoded %d bytes", len(data))
	}
	if !strings.Contains(stderr.String(), "jpeg") || !strings.Contains(stderr.String(), "quality") {
		t.Fatalf("stderr: %q", stderr.String())
	}
}

func TestConfigSave(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	prev := configPathOverride
	t.Cleanup(func() { configPathOverride = prev })

	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"rc", filepath.Join(dir, "a", "config.rc"), filepath.Join(dir, "a", "config.rc")},
		{"toml redirected", filepath.Join(dir, "b", "config.toml"), filepath.Join(dir, "b", "config.rc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPathOverride = tt.override
			r := testRoot(t)
			r.config.SaveDir = "/srv/edits"
			c, err := parseConfigCmd([]string{"save"}, r)
			if err != nil {
				t.Fatal(err)
			}
			if err := c.Run(); err != nil {
				t.Fatalf("save: %v", err)
			}
			data, err := os.ReadFile(tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != r.config.String() {
				t.Fatalf("saved:\n%s", data)
			}
			loaded, err := config.NewLoader(version, tt.want).Load()
			if err != nil || loaded.SaveDir != "/srv/edits" {
				t.Fatalf("reload: %v %+v", err, loaded)
			}
		})
	}
}

func TestConfigPathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	prevHome, prevOverride := userHomeDir, configPathOverride
	t.Cleanup(func() { userHomeDir, configPathOverride = prevHome, prevOverride })
	userHomeDir = func() (string, error) { return home, nil }
	configPathOverride = ""

	c, err := parseConfigCmd([]string{"path"}, testRoot(t))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c.out = &out
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, ".config", "layerpaint", "config.rc")
	if got := strings.TrimSpace(out.String()); got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}

	userHomeDir = func() (string, error) { return "", errors.New("no home") }
	if _, err := c.configPath(); err == nil {
		t.Fatal("expected an error without a home directory")
	}
}

func TestConfigUnknownSubcommand(t *testing.T) {
	c, err := parseConfigCmd([]string{"frob"}, testRoot(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Run(); err == nil || !strings.Contains(err.Error(), "unknown config command") {
		t.Fatalf("got %v", err)
	}
	c, _ = parseConfigCmd(nil, testRoot(t))
	var uerr *UsageError
	if err := c.Run(); !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
