package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/example/layerpaint/internal/appstate"
)

type interactiveCLI struct {
	*interactiveCmd

	fs *flag.FlagSet

	execs       commandList
	file        string
	sessionName string
	socketDir   string
	window      bool
}

func parseInteractiveCmd(args []string, r *root) (*interactiveCLI, error) {
	base := newInteractiveCmd(r)
	fs := flag.NewFlagSet("interactive", flag.ExitOnError)
	cli := &interactiveCLI{interactiveCmd: base, fs: fs}
	fs.Usage = usageFunc(cli)
	fs.Var(&cli.execs, "e", "execute a command in immediate mode (may be specified multiple times)")
	fs.StringVar(&cli.file, "file", "", "image to open before reading commands")
	fs.StringVar(&base.output, "output", "", "destination for save without an argument")
	fs.BoolVar(&cli.window, "window", false, "show the document in a window while reading commands")
	fs.StringVar(&cli.sessionName, "name", "", "send the commands to this background session")
	fs.StringVar(&cli.socketDir, "dir", "", "directory that stores layerpaint sockets")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cli.file == "" && fs.NArg() > 0 {
		cli.file = fs.Arg(0)
	}
	if cli.window && cli.file == "" {
		return nil, errors.New("-window requires an image to open")
	}
	if cli.window && cli.sessionName != "" {
		return nil, errors.New("-window cannot be combined with -name")
	}
	return cli, nil
}

func (c *interactiveCLI) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *interactiveCLI) Program() string {
	return c.r.Program()
}

func (c *interactiveCLI) Run() error {
	if c.sessionName != "" {
		dir, err := resolveSocketDir(c.socketDir)
		if err != nil {
			return err
		}
		if len(c.execs) == 0 {
			return attachSocket(dir, c.sessionName, c.stdin, c.stdout, c.stderr)
		}
		return runSocketCommands(dir, c.sessionName, c.execs, c.stdout, c.stderr)
	}

	if c.file != "" {
		output := c.output
		if err := c.open([]string{c.file}); err != nil {
			return err
		}
		if output != "" {
			c.output = output
		}
	}
	if c.window {
		return c.runWithWindow()
	}
	if len(c.execs) > 0 {
		return c.runExecs()
	}
	return c.repl()
}

func (c *interactiveCLI) runExecs() error {
	for _, cmd := range c.execs {
		done, err := c.executeLine(cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		if done {
			break
		}
	}
	return nil
}

// runWithWindow shows the session and reads commands on another goroutine;
// the window owns the main goroutine as shiny requires.
func (c *interactiveCLI) runWithWindow() error {
	s := c.session
	app := appstate.New(
		appstate.WithSession(s),
		appstate.WithOutput(c.output),
		appstate.WithStorage(c.r.imageStore()),
		appstate.WithTheme(c.r.activeTheme),
		appstate.WithNotifier(c.r.notifier),
		appstate.WithWindowSize(c.r.config.WindowWidth, c.r.config.WindowHeight),
	)
	s.SetOnChange(app.NotifyImageChanged)
	c.app = app

	go func() {
		var err error
		if len(c.execs) > 0 {
			err = c.runExecs()
		} else {
			err = c.repl()
		}
		if err != nil {
			log.Printf("interactive: %v", err)
		}
		app.Close()
	}()
	app.Run()
	return nil
}

func (c *interactiveCmd) repl() error {
	fmt.Fprintln(c.stdout, "Enter commands (type 'help' for a list, 'exit' to quit)")
	scanner := bufio.NewScanner(c.stdin)
	for {
		fmt.Fprint(c.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := c.executeLine(scanner.Text())
		if err != nil {
			fmt.Fprintln(c.stderr, err)
		}
		if done {
			break
		}
	}
	return scanner.Err()
}
