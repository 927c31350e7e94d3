package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#112233", color.RGBA{0x11, 0x22, 0x33, 0xFF}},
		{"#11223344", color.RGBA{0x11, 0x22, 0x33, 0x44}},
		{"Red", color.RGBA{0xFF, 0, 0, 0xFF}},
		{" cornflowerblue ", color.RGBA{100, 149, 237, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if err != nil {
				t.Fatalf("ParseColor: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
	for _, bad := range []string{"", "#12", "#GGGGGG", "notacolour"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, c := range []color.RGBA{{1, 2, 3, 255}, {10, 20, 30, 40}} {
		got, err := ParseColor(Hex(c))
		if err != nil || got != c {
			t.Fatalf("round trip %v -> %q -> %v (%v)", c, Hex(c), got, err)
		}
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	th, err := Parse(strings.NewReader("Name: Mine\n// comment\nbackground: #010203\nUnknown: #FFFFFF\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if th.Name != "Mine" || th.Background != (color.RGBA{1, 2, 3, 255}) {
		t.Fatalf("unexpected theme %+v", th)
	}
	if th.CheckerDark != Default().CheckerDark {
		t.Fatalf("missing key should keep the default")
	}
	if _, err := Parse(strings.NewReader("CheckerLight: nope\n")); err == nil {
		t.Fatalf("expected colour error")
	}
}

func TestLoaderOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mine.theme"), []byte("Name: FromDir\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{ConfigDir: dir, Inline: map[string]*Theme{"inline": {Name: "Inline"}}}

	for name, want := range map[string]string{
		"":       "Default",
		"inline": "Inline",
		"dark":   "Dark",
		"mine":   "FromDir",
	} {
		th, err := l.Load(name)
		if err != nil {
			t.Fatalf("Load(%q): %v", name, err)
		}
		if th.Name != want {
			t.Errorf("Load(%q) = %q, want %q", name, th.Name, want)
		}
	}
	if _, err := l.Load("missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestResolvePrecedence(t *testing.T) {
	l := &Loader{}
	t.Setenv(EnvVar, "dark")
	th, err := l.Resolve("", "light")
	if err != nil || th.Name != "Dark" {
		t.Fatalf("env should beat config: %v %v", th, err)
	}
	th, err = l.Resolve("light", "")
	if err != nil || th.Name != "Light" {
		t.Fatalf("flag should beat env: %v %v", th, err)
	}
}
