package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	protocore "github.com/jeremytammik/Dynamo"
)

const (
	appName     = "dsi"
	historyFile = ".dsi_history"
	promptMain  = "==> "
)

var (
	banner   = fmt.Sprintf("dsi %s associative inspector\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", protocore.Version)
	helpText = `
Inspector commands:
  :watch <name>            Add a name to the watch list
  :unwatch <name>          Remove a name from the watch list
  :watches                 Show watched names with current values
  :set <name> <literal>    Overwrite a variable and re-execute its dependents
  :type <name>             Show a variable's runtime type
  :dump                    Dump every global as "name = value"
  :quit                    Exit
Anything else is evaluated as source.
`
)

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func blue(s string) string { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(protocore.Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`dsi %s

Usage:
  %s run <file.ds>       Execute a script and dump the final globals.
  %s repl                Start the interactive inspector.
  %s version             Print the version.

Options are read from %s.toml in the working directory if present.
`, protocore.Version, appName, appName, appName, appName)
}

func newMirror() (*protocore.Engine, *protocore.ExecutionMirror, error) {
	opts, err := protocore.LoadOptions(appName + ".toml")
	if err != nil {
		return nil, nil, err
	}
	exe := protocore.NewExecutable()
	engine := protocore.NewEngine(exe, protocore.NewRuntimeMemory(exe))
	return engine, protocore.NewExecutionMirrorWithOptions(engine, opts), nil
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run <file.ds>\n", appName)
		return 2
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, args[0], err)
		return 1
	}

	engine, mirror, err := newMirror()
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	if err := engine.RunSource(string(src)); err != nil {
		fmt.Fprintln(os.Stderr, red(protocore.WrapErrorWithSource(err, string(src)).Error()))
		return 1
	}
	fmt.Print(mirror.GetCoreDump())
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	engine, mirror, err := newMirror()
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	session := protocore.NewWatchSession()

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if err != nil {
			continue
		}
		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(code, ":") {
			if quit := command(code, mirror, session); quit {
				return 0
			}
			continue
		}

		if err := engine.RunSource(code); err != nil {
			fmt.Fprintln(os.Stderr, red(protocore.WrapErrorWithSource(err, code).Error()))
			continue
		}
		showWatches(mirror, session)
	}
}

// command dispatches one ":" line; the return value reports :quit.
func command(code string, mirror *protocore.ExecutionMirror, session *protocore.WatchSession) bool {
	fields := strings.Fields(code)
	switch fields[0] {
	case ":quit":
		return true
	case ":help":
		fmt.Print(helpText)
	case ":dump":
		fmt.Print(mirror.GetCoreDump())
	case ":watch":
		if len(fields) != 2 {
			fmt.Fprintln(os.Stderr, "usage: :watch <name>")
			break
		}
		session.Watch(fields[1])
	case ":unwatch":
		if len(fields) != 2 {
			fmt.Fprintln(os.Stderr, "usage: :unwatch <name>")
			break
		}
		session.Unwatch(fields[1])
	case ":watches":
		showWatches(mirror, session)
	case ":type":
		if len(fields) != 2 {
			fmt.Fprintln(os.Stderr, "usage: :type <name>")
			break
		}
		t, err := mirror.GetType(fields[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			break
		}
		fmt.Println(blue(t))
	case ":set":
		if len(fields) != 3 {
			fmt.Fprintln(os.Stderr, "usage: :set <name> <literal>")
			break
		}
		v, err := parseLiteral(fields[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			break
		}
		set, err := mirror.SetValueAndExecute(fields[1], v)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			break
		}
		if !set {
			fmt.Fprintf(os.Stderr, "%s is not an associative variable; nothing set\n", fields[1])
			break
		}
		showWatches(mirror, session)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s. Type :help for commands.\n", fields[0])
	}
	return false
}

func showWatches(mirror *protocore.ExecutionMirror, session *protocore.WatchSession) {
	for _, w := range session.Watches() {
		v, err := mirror.GetRawValue(w.Name)
		if err != nil {
			fmt.Printf("%s = %s\n", w.Name, red(err.Error()))
			continue
		}
		rendered := mirror.GetStringValue(v, mirror.Memory().Heap, mirror.Executable().TopBlock().ID, false)
		fmt.Printf("%s = %s\n", w.Name, blue(rendered))
	}
}

// parseLiteral accepts the scalar literals :set supports.
func parseLiteral(s string) (protocore.StackValue, error) {
	switch s {
	case "true":
		return protocore.BoolValue(true), nil
	case "false":
		return protocore.BoolValue(false), nil
	case "null":
		return protocore.NullValue, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return protocore.IntValue(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return protocore.DoubleValue(f), nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return protocore.InvalidValue, fmt.Errorf("bad string literal %s", s)
		}
		return protocore.StringValue(unq), nil
	}
	return protocore.InvalidValue, fmt.Errorf("unsupported literal %q", s)
}
