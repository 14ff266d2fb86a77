// Package main provides the terminal front end for the abacus calculator.
//
// Usage:
//
//	abacus [flags]                  - Interactive keypad (one key sequence per line)
//	abacus eval [flags] "<expr>"    - Evaluate an expression with precedence
//	abacus keys [flags] "<keys>"    - Press a key sequence and print the display
//	abacus profiles [flags]         - List available profiles
//	abacus version                  - Show version
//
// Flags:
//
//	--profile NAME    basic (default), extended or a catalog profile
//	--profiles FILE   TOML profile catalog
//	--keymap FILE     TOML keymap overriding the default bindings
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/abacus/internal/profiles"
	"github.com/ternarybob/abacus/pkg/calc"
	"github.com/ternarybob/abacus/pkg/expr"
	"github.com/ternarybob/abacus/pkg/session"
)

// version is set via -ldflags at build time
var version = "dev"

// options holds the flags shared by all commands.
type options struct {
	profile      string
	profilesFile string
	keymapFile   string
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	cmd := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version", "-v", "--version":
		fmt.Fprintf(out, "abacus version %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	}

	opts, rest, err := parseOptions(args)
	if err != nil {
		return err
	}

	switch cmd {
	case "", "repl":
		return cmdREPL(opts, in, out)
	case "eval":
		return cmdEval(opts, rest, out)
	case "keys":
		return cmdKeys(opts, rest, out)
	case "profiles":
		return cmdProfiles(opts, out)
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `abacus - Keypad calculator

Usage:
  abacus [command] [flags] [args]

Commands:
  (none)              Interactive keypad, one key sequence per line
  eval "<expr>"       Evaluate an expression (2+3*4 = 14)
  keys "<keys>"       Press keys left to right (2+3*4= gives 20)
  profiles            List available profiles
  version             Show version information
  help                Show this help

Flags:
  --profile NAME      basic (default), extended or a catalog profile
  --profiles FILE     TOML profile catalog
  --keymap FILE       TOML keymap overriding the default bindings

Keypad words:
  c, clear, Escape    Clear the entry (history is kept)
  del, Backspace      Delete the last digit
  ch                  Clear history (extended profile)
  :history            Show history
  :quit               Leave`)
}

// parseOptions extracts the shared flags and returns the remaining args.
func parseOptions(args []string) (options, []string, error) {
	opts := options{profile: calc.ProfileBasic}
	var rest []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || (name != "profile" && name != "profiles" && name != "keymap") {
			rest = append(rest, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return opts, nil, fmt.Errorf("flag --%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		switch name {
		case "profile":
			opts.profile = value
		case "profiles":
			opts.profilesFile = value
		case "keymap":
			opts.keymapFile = value
		}
	}
	return opts, rest, nil
}

func (o options) registry() (*profiles.Registry, error) {
	r := profiles.NewRegistry()
	if o.profilesFile != "" {
		if err := r.LoadFile(o.profilesFile); err != nil {
			return nil, err
		}
	}
	if o.keymapFile != "" {
		r.SetKeymapFile(o.keymapFile)
	}
	return r, nil
}

func (o options) session() (*session.Session, error) {
	r, err := o.registry()
	if err != nil {
		return nil, err
	}
	engine, keys, err := r.Factory(calc.ProfileBasic)(o.profile)
	if err != nil {
		return nil, err
	}
	return session.New("terminal", engine, keys), nil
}

// cmdREPL reads one key sequence per line and prints the calculator face
// after each.
func cmdREPL(opts options, in io.Reader, out io.Writer) error {
	sess, err := opts.session()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "abacus %s (%s profile). Type :help for keys, :quit to leave.\n", version, sess.Profile().Name)
	render(out, sess.Snapshot())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ":q", ":quit", ":exit":
			return nil
		case ":help":
			printUsage(out)
			continue
		case ":history", ":h":
			printHistory(out, sess.Snapshot().History)
			continue
		}

		snap, err := sess.PressSequence(line)
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		render(out, snap)
	}
}

// cmdEval evaluates an expression with standard precedence.
func cmdEval(opts options, args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: abacus eval \"<expr>\"")
	}

	r, err := opts.registry()
	if err != nil {
		return err
	}
	p, err := r.Get(opts.profile)
	if err != nil {
		return err
	}

	result, err := expr.Eval(strings.Join(args, " "), p.Precision)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, calc.Group(result, p.Grouping))
	return nil
}

// cmdKeys presses a key sequence and prints the final face and history.
func cmdKeys(opts options, args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: abacus keys \"<keys>\"")
	}

	sess, err := opts.session()
	if err != nil {
		return err
	}

	snap, err := sess.PressSequence(strings.Join(args, " "))
	if err != nil {
		return err
	}
	render(out, snap)
	if len(snap.History) > 0 {
		fmt.Fprintln(out)
		printHistory(out, snap.History)
	}
	return nil
}

// cmdProfiles lists the available profiles.
func cmdProfiles(opts options, out io.Writer) error {
	r, err := opts.registry()
	if err != nil {
		return err
	}

	for _, p := range r.List() {
		maxDigits := "unlimited"
		if p.MaxDigits > 0 {
			maxDigits = fmt.Sprintf("%d", p.MaxDigits)
		}
		fmt.Fprintf(out, "%-12s precision=%d max_digits=%s history=%d delete_on_fresh=%s\n",
			p.Name, p.Precision, maxDigits, p.HistorySize, p.DeleteOnFresh)
	}
	return nil
}

// render prints the annotation line (if any) above the display.
func render(out io.Writer, snap session.Snapshot) {
	if snap.Annotation != "" {
		fmt.Fprintf(out, "  %s\n", snap.Annotation)
	}
	fmt.Fprintf(out, "  [%s]\n", snap.Display)
}

func printHistory(out io.Writer, entries []calc.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "  (no history)")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "  %s\n", e)
	}
}
