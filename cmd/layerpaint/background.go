package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Socket protocol, one line per message:
//
//	server: READY
//	client: PING | EXEC <command> | SHUTDOWN
//	server: PONG | OUT <text> | ERR <text> | DONE OK [CLOSE] | DONE ERR <message>
const (
	msgReady    = "READY"
	msgPing     = "PING"
	msgPong     = "PONG"
	msgExec     = "EXEC "
	msgShutdown = "SHUTDOWN"
	msgOut      = "OUT "
	msgErr      = "ERR "
	msgDoneOK   = "DONE OK"
	msgDoneErr  = "DONE ERR "
	msgClose    = "CLOSE"
)

var errSocketClosed = errors.New("socket closed by server")

// commandError is a command failure reported by the server.
type commandError struct{ msg string }

func (e *commandError) Error() string { return e.msg }

type commandList []string

func (c *commandList) String() string {
	return strings.Join(*c, ";")
}

func (c *commandList) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

func closeWithLog(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("%s: close: %v", name, err)
	}
}

func removeWithLog(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("remove %s: %v", path, err)
	}
}

// backgroundCmd manages editing sessions that live behind unix sockets so
// separate invocations can work on the same document.
type backgroundCmd struct {
	*root

	fs *flag.FlagSet

	op     string
	name   string
	dir    string
	file   string
	output string

	runArgs []string
}

func parseBackgroundCmd(args []string, r *root) (*backgroundCmd, error) {
	cmd := &backgroundCmd{root: r}
	if len(args) == 0 {
		cmd.fs = flag.NewFlagSet("background", flag.ExitOnError)
		return nil, &UsageError{of: cmd}
	}
	cmd.op = strings.ToLower(args[0])
	cmd.fs = flag.NewFlagSet("background "+cmd.op, flag.ContinueOnError)
	cmd.fs.SetOutput(io.Discard)

	switch cmd.op {
	case "start", "stop", "attach", "run", "serve":
		cmd.fs.StringVar(&cmd.name, "name", "", "socket session name")
	}
	switch cmd.op {
	case "start", "serve":
		cmd.fs.StringVar(&cmd.file, "file", "", "image the session opens")
		cmd.fs.StringVar(&cmd.output, "output", "", "destination for save without an argument")
	}
	switch cmd.op {
	case "start", "stop", "attach", "list", "clean", "run", "serve":
		cmd.fs.StringVar(&cmd.dir, "dir", "", "directory that stores layerpaint sockets")
	default:
		return nil, &UsageError{of: cmd}
	}

	if err := cmd.fs.Parse(args[1:]); err != nil {
		return nil, &UsageError{of: cmd}
	}
	rest := cmd.fs.Args()

	switch cmd.op {
	case "run":
		cmd.runArgs, rest = rest, nil
		if len(cmd.runArgs) == 0 {
			return nil, errors.New("background run requires a command")
		}
	case "list", "clean":
		rest = cmd.positional(rest, &cmd.dir)
	default:
		rest = cmd.positional(rest, &cmd.name, &cmd.dir)
	}
	if len(rest) > 0 {
		return nil, &UsageError{of: cmd}
	}
	if cmd.op == "serve" && cmd.name == "" {
		return nil, errors.New("serve requires a session name")
	}
	return cmd, nil
}

// positional fills unset fields from leading arguments, in order.
func (b *backgroundCmd) positional(rest []string, fields ...*string) []string {
	for _, f := range fields {
		if *f == "" && len(rest) > 0 {
			*f, rest = rest[0], rest[1:]
		}
	}
	return rest
}

func (b *backgroundCmd) Program() string {
	if b.root == nil {
		return "layerpaint background"
	}
	return b.root.Program()
}

func (b *backgroundCmd) FlagSet() *flag.FlagSet {
	return b.fs
}

func (b *backgroundCmd) Template() string {
	return "background.txt"
}

func (b *backgroundCmd) Run() error {
	dir, err := resolveSocketDir(b.dir)
	if err != nil {
		return err
	}
	switch b.op {
	case "list":
		return printSocketList(dir, os.Stdout)
	case "clean":
		return cleanSocketDir(dir, os.Stdout)
	case "start":
		name, err := startBackgroundServer(dir, b.name, b.file, b.output)
		if err != nil {
			return err
		}
		return writef(os.Stdout, "started background session %s at %s\n", name, socketPath(dir, name))
	case "stop":
		name, err := selectSocketForStop(dir, b.name)
		if err != nil {
			return err
		}
		if err := stopSocket(dir, name); err != nil {
			return err
		}
		return writef(os.Stdout, "stop requested for %s\n", name)
	case "attach":
		name, err := selectRunningSocket(dir, b.name)
		if err != nil {
			return err
		}
		return attachSocket(dir, name, os.Stdin, os.Stdout, os.Stderr)
	case "run":
		name, command, err := resolveRunTarget(dir, b.name, b.runArgs)
		if err != nil {
			return err
		}
		return runSocketCommands(dir, name, []string{strings.Join(command, " ")}, os.Stdout, os.Stderr)
	case "serve":
		return b.serve(dir)
	}
	return &UsageError{of: b}
}

func (b *backgroundCmd) serve(dir string) error {
	session := newInteractiveCmd(b.root)
	if b.file != "" {
		restore := session.withIO(nil, io.Discard, nil)
		err := session.open([]string{b.file})
		restore()
		if err != nil {
			return err
		}
	}
	if b.output != "" {
		session.output = b.output
	}
	srv, err := listenSocketServer(dir, b.name, session)
	if err != nil {
		return err
	}
	return srv.serve()
}

func resolveSocketDir(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if dir := os.Getenv("LAYERPAINT_SOCKET_DIR"); dir != "" {
		return dir, nil
	}
	if runtime.GOOS != "windows" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "layerpaint"), nil
		}
	}
	home, err := userHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".layerpaint", "sockets"), nil
}

func socketPath(dir, name string) string {
	return filepath.Join(dir, strings.TrimSuffix(name, ".sock")+".sock")
}

type socketStatus struct {
	name string
	file string
	err  error
}

func collectSocketStatuses(dir string) ([]socketStatus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var statuses []socketStatus
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (entry.Type()&os.ModeSocket == 0 && !strings.HasSuffix(name, ".sock")) {
			continue
		}
		st := socketStatus{name: strings.TrimSuffix(name, ".sock"), file: name}
		if err := pingSocket(filepath.Join(dir, name)); err != nil {
			st.err = normalizeSocketError(err)
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].name < statuses[j].name })
	return statuses, nil
}

func aliveNames(statuses []socketStatus) []string {
	var names []string
	for _, st := range statuses {
		if st.err == nil {
			names = append(names, st.name)
		}
	}
	return names
}

func printSocketList(dir string, out io.Writer) error {
	statuses, err := collectSocketStatuses(dir)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		return writeln(out, "no sessions found")
	}
	if err := writeln(out, "sessions:"); err != nil {
		return err
	}
	for _, st := range statuses {
		line := "  " + st.name
		if st.err != nil {
			line += fmt.Sprintf(" (dead: %v)", st.err)
		}
		if err := writeln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func cleanSocketDir(dir string, out io.Writer) error {
	statuses, err := collectSocketStatuses(dir)
	if err != nil {
		return err
	}
	var removed []string
	for _, st := range statuses {
		if st.err == nil {
			continue
		}
		if err := os.Remove(filepath.Join(dir, st.file)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err := writef(out, "failed to remove %s: %v\n", st.name, err); err != nil {
				return err
			}
			continue
		}
		removed = append(removed, st.name)
	}
	if len(removed) == 0 {
		return writeln(out, "no dead sessions found")
	}
	return writef(out, "removed %d dead session(s): %s\n", len(removed), strings.Join(removed, ", "))
}

func startBackgroundServer(dir, name, file, output string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if name == "" {
		var err error
		if name, err = nextSocketName(dir); err != nil {
			return "", err
		}
	}
	statuses, err := collectSocketStatuses(dir)
	if err != nil {
		return "", err
	}
	for _, st := range statuses {
		if st.name != name {
			continue
		}
		if st.err == nil {
			return "", fmt.Errorf("session %s already running", name)
		}
		if err := os.Remove(filepath.Join(dir, st.file)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	args := []string{"background", "serve", "-name", name, "-dir", dir}
	if file != "" {
		args = append(args, "-file", file)
	}
	if output != "" {
		args = append(args, "-output", output)
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return "", err
	}
	if err := cmd.Process.Release(); err != nil {
		return "", err
	}

	socket := socketPath(dir, name)
	deadline := time.Now().Add(3 * time.Second)
	lastErr := errors.New("unknown startup failure")
	for time.Now().Before(deadline) {
		err := pingSocket(socket)
		if err == nil {
			return name, nil
		}
		lastErr = normalizeSocketError(err)
		time.Sleep(50 * time.Millisecond)
	}
	return "", fmt.Errorf("session %s did not become ready: %v", name, lastErr)
}

func selectRunningSocket(dir, preferred string) (string, error) {
	statuses, err := collectSocketStatuses(dir)
	if err != nil {
		return "", err
	}
	alive := aliveNames(statuses)
	if preferred != "" {
		for _, name := range alive {
			if name == preferred {
				return preferred, nil
			}
		}
		return "", fmt.Errorf("session %s is not running", preferred)
	}
	switch len(alive) {
	case 0:
		return "", errors.New("no background sessions running")
	case 1:
		return alive[0], nil
	}
	return "", fmt.Errorf("multiple background sessions running; specify a session name (%s)", strings.Join(alive, ", "))
}

func selectSocketForStop(dir, preferred string) (string, error) {
	if preferred != "" {
		return preferred, nil
	}
	statuses, err := collectSocketStatuses(dir)
	if err != nil {
		return "", err
	}
	switch len(statuses) {
	case 0:
		return "", errors.New("no background sessions found")
	case 1:
		return statuses[0].name, nil
	}
	if alive := aliveNames(statuses); len(alive) == 1 {
		return alive[0], nil
	}
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, st.name)
	}
	return "", fmt.Errorf("multiple background sessions found; specify a session name (%s)", strings.Join(names, ", "))
}

// resolveRunTarget picks the session for "run". A leading argument naming a
// live session selects it.
func resolveRunTarget(dir, preferred string, args []string) (string, []string, error) {
	statuses, err := collectSocketStatuses(dir)
	if err != nil {
		return "", nil, err
	}
	alive := aliveNames(statuses)
	isAlive := func(name string) bool {
		for _, a := range alive {
			if a == name {
				return true
			}
		}
		return false
	}
	name, rest := preferred, args
	if name == "" && len(rest) > 0 && isAlive(rest[0]) {
		name, rest = rest[0], rest[1:]
	}
	if len(rest) == 0 {
		return "", nil, errors.New("background run requires a command")
	}
	switch {
	case name != "" && !isAlive(name):
		return "", nil, fmt.Errorf("session %s is not running", name)
	case name != "":
	case len(alive) == 0:
		return "", nil, errors.New("no background sessions running")
	case len(alive) == 1:
		name = alive[0]
	default:
		return "", nil, fmt.Errorf("multiple background sessions running; specify a session name (%s)", strings.Join(alive, ", "))
	}
	return name, rest, nil
}

func nextSocketName(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "1", nil
		}
		return "", err
	}
	maxVal := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if val, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), ".sock")); err == nil && val > maxVal {
			maxVal = val
		}
	}
	return strconv.Itoa(maxVal + 1), nil
}

func normalizeSocketError(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return errors.New("missing socket file")
	case errors.Is(err, os.ErrPermission):
		return errors.New("permission denied")
	}
	return err
}

// dialSession connects and consumes the greeting.
func dialSession(path string, timeout time.Duration) (net.Conn, *bufio.Scanner, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, nil, err
	}
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		err := scanner.Err()
		if err == nil {
			err = errors.New("socket closed")
		}
		closeWithLog("socket client", conn)
		return nil, nil, err
	}
	if scanner.Text() != msgReady {
		closeWithLog("socket client", conn)
		return nil, nil, fmt.Errorf("unexpected greeting: %s", scanner.Text())
	}
	return conn, scanner, nil
}

func pingSocket(path string) error {
	conn, scanner, err := dialSession(path, time.Second)
	if err != nil {
		return err
	}
	defer closeWithLog("ping socket", conn)
	if err := conn.SetDeadline(time.Now().Add(2 * time.Second)); err != nil {
		return err
	}
	if err := writeln(conn, msgPing); err != nil {
		return err
	}
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return errors.New("no pong received")
	}
	if scanner.Text() != msgPong {
		return fmt.Errorf("unexpected response: %s", scanner.Text())
	}
	return nil
}

// taggedWriter prefixes every write so the client can route it.
type taggedWriter struct {
	w   io.Writer
	tag string
}

func (t *taggedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	lines := strings.SplitAfter(string(p), "\n")
	var buf strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		buf.WriteString(t.tag)
		buf.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			buf.WriteByte('\n')
		}
	}
	if _, err := io.WriteString(t.w, buf.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// socketServer shares one interactive session between connections;
// commands run one at a time.
type socketServer struct {
	session  *interactiveCmd
	path     string
	listener net.Listener

	execMu   sync.Mutex
	stopOnce sync.Once
	stopCh   chan struct{}
}

func listenSocketServer(dir, name string, session *interactiveCmd) (*socketServer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := socketPath(dir, name)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &socketServer{session: session, path: path, listener: ln, stopCh: make(chan struct{})}, nil
}

func (s *socketServer) serve() error {
	defer removeWithLog(s.path)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *socketServer) handleConn(conn net.Conn) {
	defer closeWithLog("socket connection", conn)
	if err := writeln(conn, msgReady); err != nil {
		log.Printf("socket write READY: %v", err)
		return
	}
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		var reply string
		switch {
		case line == msgPing:
			reply = msgPong
		case line == msgShutdown:
			if err := writeln(conn, msgDoneOK+" "+msgClose); err != nil {
				log.Printf("socket write: %v", err)
			}
			s.shutdown()
			return
		case strings.HasPrefix(line, msgExec):
			done, err := s.exec(conn, strings.TrimPrefix(line, msgExec))
			switch {
			case err != nil:
				reply = msgDoneErr + strings.ReplaceAll(err.Error(), "\n", `\n`)
			case done:
				if err := writeln(conn, msgDoneOK+" "+msgClose); err != nil {
					log.Printf("socket write: %v", err)
				}
				return
			default:
				reply = msgDoneOK
			}
		default:
			reply = msgErr + "unknown request"
		}
		if err := writeln(conn, reply); err != nil {
			log.Printf("socket write: %v", err)
			return
		}
	}
}

func (s *socketServer) exec(conn net.Conn, command string) (bool, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	restore := s.session.withIO(nil, &taggedWriter{w: conn, tag: msgOut}, &taggedWriter{w: conn, tag: msgErr})
	defer restore()
	return s.session.executeLine(command)
}

func (s *socketServer) shutdown() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		closeWithLog("socket listener", s.listener)
		removeWithLog(s.path)
	})
}

func runSocketCommands(dir, name string, commands []string, stdout, stderr io.Writer) error {
	conn, scanner, err := dialSession(socketPath(dir, name), 5*time.Second)
	if err != nil {
		return err
	}
	defer closeWithLog("socket client", conn)
	for _, cmd := range commands {
		if err := writef(conn, "%s%s\n", msgExec, cmd); err != nil {
			return err
		}
		if err := readResponse(scanner, stdout, stderr); err != nil {
			if errors.Is(err, errSocketClosed) {
				return nil
			}
			return err
		}
	}
	return nil
}

// readResponse copies OUT and ERR lines until the DONE line ending one
// command.
func readResponse(scanner *bufio.Scanner, stdout, stderr io.Writer) error {
	for scanner.Scan() {
		line := scanner.Text()
		var err error
		switch {
		case strings.HasPrefix(line, msgOut):
			err = writeln(stdout, strings.TrimPrefix(line, msgOut))
		case strings.HasPrefix(line, msgErr):
			err = writeln(stderr, strings.TrimPrefix(line, msgErr))
		case strings.HasPrefix(line, msgDoneOK):
			if strings.HasSuffix(line, msgClose) {
				return errSocketClosed
			}
			return nil
		case strings.HasPrefix(line, msgDoneErr):
			msg := strings.TrimPrefix(line, msgDoneErr)
			return &commandError{msg: strings.ReplaceAll(msg, `\n`, "\n")}
		default:
			err = writeln(stdout, line)
		}
		if err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errSocketClosed
}

func attachSocket(dir, name string, stdin io.Reader, stdout, stderr io.Writer) error {
	conn, scanner, err := dialSession(socketPath(dir, name), 5*time.Second)
	if err != nil {
		return err
	}
	defer closeWithLog("socket client", conn)
	input := bufio.NewScanner(stdin)
	for {
		if err := writef(stdout, "%s> ", name); err != nil {
			return err
		}
		if !input.Scan() {
			return input.Err()
		}
		if err := writef(conn, "%s%s\n", msgExec, input.Text()); err != nil {
			return err
		}
		if err := readResponse(scanner, stdout, stderr); err != nil {
			if errors.Is(err, errSocketClosed) {
				return nil
			}
			var cerr *commandError
			if !errors.As(err, &cerr) {
				return err
			}
			if err := writeln(stderr, cerr.Error()); err != nil {
				return err
			}
		}
	}
}

func stopSocket(dir, name string) error {
	path := socketPath(dir, name)
	conn, scanner, err := dialSession(path, time.Second)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if rmErr := os.Remove(path); rmErr == nil || errors.Is(rmErr, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer closeWithLog("socket client", conn)
	if err := writeln(conn, msgShutdown); err != nil {
		return err
	}
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "DONE ") {
			break
		}
	}
	removeWithLog(path)
	return scanner.Err()
}
