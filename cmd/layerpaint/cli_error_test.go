package main

import (
	"errors"
	"flag"
	"io"
	"strings"
	"testing"
)

func TestDrawParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"line", "0", "0", "5", "5"}, "input file is required"},
		{"clipboard without output", []string{"-from-clipboard", "line", "0", "0", "5", "5"}, "output file is required"},
		{"clipboard with file", []string{"-from-clipboard", "-file", "in.png", "-output", "o.png", "line", "0", "0", "1", "1"}, "cannot be combined"},
		{"bad colour", []string{"-file", "in.png", "-color", "nope", "line", "0", "0", "1", "1"}, "nope"},
		{"dangling flag", []string{"line", "0", "0", "1", "1", "-file"}, "requires a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDrawCmd(tt.args, testRoot(t).subcommand("draw"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDrawFlagsAfterCommand(t *testing.T) {
	d, err := parseDrawCmd([]string{"line", "-5", "-5", "10", "10", "-file", "in.png", "--size=3", "-fill"}, testRoot(t))
	if err != nil {
		t.Fatal(err)
	}
	if d.command != "line -5 -5 10 10" {
		t.Fatalf("command = %q", d.command)
	}
	if d.file != "in.png" || d.output != "in.png" || d.size != 3 || !d.fill {
		t.Fatalf("parsed %+v", d)
	}
}

func TestDrawWithoutCommandShowsUsage(t *testing.T) {
	_, err := parseDrawCmd([]string{"-file", "in.png"}, testRoot(t).subcommand("draw"))
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	help := err.Error()
	if !strings.Contains(help, "layerpaint draw") || !strings.Contains(help, "rect X0 Y0 X1 Y1") {
		t.Fatalf("draw help:\n%s", help)
	}
}

func TestExportParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"budget", []string{"-max-bytes", "0", "in.png"}, "-max-bytes"},
		{"step", []string{"-quality-step", "0", "in.png"}, "-quality-step"},
		{"order", []string{"-start-quality", "40", "-min-quality", "50", "in.png"}, "qualities"},
		{"range", []string{"-start-quality", "101", "in.png"}, "qualities"},
		{"opacity", []string{"-shadow-opacity", "1.5", "in.png"}, "-shadow-opacity"},
		{"matte", []string{"-matte", "nope", "in.png"}, "matte"},
		{"clipboard with file", []string{"-from-clipboard", "in.png"}, "cannot be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExportCmd(tt.args, testRoot(t))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestEditParse(t *testing.T) {
	r := testRoot(t)
	r.config.SaveDir = "/tmp/edits"
	if _, err := parseEditCmd([]string{"-from-clipboard", "in.png"}, r); err == nil {
		t.Fatal("expected error combining clipboard and file")
	}
	e, err := parseEditCmd([]string{"photo.png"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if e.output != "photo.png" {
		t.Fatalf("local files save in place, got %q", e.output)
	}
	e, err = parseEditCmd([]string{"https://example.com/a.png"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(e.output, "/tmp/edits/layerpaint-") || !strings.HasSuffix(e.output, ".png") {
		t.Fatalf("remote output = %q", e.output)
	}
	_, err = parseEditCmd(nil, r.subcommand("edit"))
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestInteractiveParseErrors(t *testing.T) {
	r := testRoot(t)
	if _, err := parseInteractiveCmd([]string{"-window"}, r); err == nil {
		t.Fatal("-window without an image should fail")
	}
	if _, err := parseInteractiveCmd([]string{"-window", "-name", "s", "in.png"}, r); err == nil {
		t.Fatal("-window with -name should fail")
	}
}

func TestBackgroundParse(t *testing.T) {
	r := testRoot(t).subcommand("background")
	for _, args := range [][]string{nil, {"frob"}, {"stop", "a", "b", "c"}} {
		_, err := parseBackgroundCmd(args, r)
		var uerr *UsageError
		if !errors.As(err, &uerr) {
			t.Fatalf("%v: expected usage error, got %v", args, err)
		}
	}
	if _, err := parseBackgroundCmd([]string{"run"}, r); err == nil {
		t.Fatal("run without a command should fail")
	}

	b, err := parseBackgroundCmd([]string{"stop", "s1", "/tmp/sockets"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if b.name != "s1" || b.dir != "/tmp/sockets" {
		t.Fatalf("positional: %+v", b)
	}
	b, err = parseBackgroundCmd([]string{"run", "-name", "s1", "line", "0", "0", "4", "4"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if b.name != "s1" || strings.Join(b.runArgs, " ") != "line 0 0 4 4" {
		t.Fatalf("run: %+v", b)
	}
	b, err = parseBackgroundCmd([]string{"start", "-file", "in.png", "work"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if b.name != "work" || b.file != "in.png" {
		t.Fatalf("start: %+v", b)
	}
}

func TestRootUsage(t *testing.T) {
	r := testRoot(t)
	r.fs = flag.NewFlagSet("layerpaint", flag.ContinueOnError)
	r.fs.SetOutput(io.Discard)
	for _, args := range [][]string{nil, {"frobnicate"}} {
		err := r.Run(args)
		var uerr *UsageError
		if !errors.As(err, &uerr) {
			t.Fatalf("%v: expected usage error, got %v", args, err)
		}
		if !strings.Contains(err.Error(), "Commands:") {
			t.Fatalf("root help:\n%s", err.Error())
		}
	}
}

func TestHelpTemplatesRender(t *testing.T) {
	r := testRoot(t)
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	fs.String("sample", "v", "sample flag")
	for _, of := range []HelpData{
		&editCmd{root: r, fs: fs},
		&drawCmd{root: r, fs: fs},
		&exportCmd{root: r, fs: fs},
		&interactiveCLI{interactiveCmd: newInteractiveCmd(r), fs: fs},
		&backgroundCmd{root: r, fs: fs},
	} {
		help, err := (&UsageError{of: of}).renderHelp()
		if err != nil {
			t.Fatalf("%s: %v", of.Template(), err)
		}
		if !strings.Contains(help, "-sample") {
			t.Fatalf("%s does not list flags:\n%s", of.Template(), help)
		}
	}
	help, err := (&UsageError{of: &configCmd{root: r, fs: fs}}).renderHelp()
	if err != nil || !strings.Contains(help, "save") {
		t.Fatalf("config help %v:\n%s", err, help)
	}
}
