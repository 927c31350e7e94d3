package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/layerpaint/internal/config"
)

// userHomeDir is swapped in tests.
var userHomeDir = os.UserHomeDir

type configCmd struct {
	*root
	fs  *flag.FlagSet
	out io.Writer
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	c := &configCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "print":
		_, err := io.WriteString(c.out, c.config.String())
		return err
	case "path":
		path, err := c.configPath()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.out, path)
		return err
	case "save":
		return c.runSave()
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

// configPath is the file the loader reads, or the per-user default when
// there is none yet.
func (c *configCmd) configPath() (string, error) {
	loader := config.NewLoader(version, configPathOverride)
	if path := loader.GetConfigPath(); path != "" {
		return path, nil
	}
	if configPathOverride != "" {
		return configPathOverride, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home dir: %w", err)
	}
	return filepath.Join(home, ".config", "layerpaint", "config.rc"), nil
}

func (c *configCmd) runSave() error {
	path, err := c.configPath()
	if err != nil {
		return err
	}
	// Saves are always rc; the loader prefers config.rc over config.toml.
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		path = filepath.Join(filepath.Dir(path), "config.rc")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file %s: %w", path, err)
	}
	defer closeWithLog(path, f)

	if _, err := f.WriteString(c.config.String()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
	return nil
}
