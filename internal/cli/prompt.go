package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// promptProxyPassword asks for the proxy password without echoing it.
func promptProxyPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("proxy password for %q is not set and stdin is not a terminal (set NEBULA_PROXY_PASSWORD)", user)
	}

	fmt.Fprintf(os.Stderr, "Proxy password for %s: ", user)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read proxy password: %w", err)
	}
	return string(password), nil
}

// prompter reads answers for interactive setup, one line each.
type prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{reader: bufio.NewReader(in), out: out}
}

// line prints label with its default and returns the answer, or def for an
// empty line.
func (p *prompter) line(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	input, _ := p.reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// yesNo asks a y/N question.
func (p *prompter) yesNo(label string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s [%s]: ", label, hint)
	input, _ := p.reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

// number asks for a non-negative integer, re-asking on bad input.
func (p *prompter) number(label string, def int64) int64 {
	for {
		answer := p.line(label, strconv.FormatInt(def, 10))
		v, err := strconv.ParseInt(answer, 10, 64)
		if err == nil && v >= 0 {
			return v
		}
		fmt.Fprintln(p.out, "  Error: enter a whole number, 0 or more")
		if _, err := p.reader.Peek(1); err != nil {
			return def
		}
	}
}

// choice asks for one of options, re-asking on anything else.
func (p *prompter) choice(label string, options []string, def string) string {
	for {
		answer := strings.ToLower(p.line(fmt.Sprintf("%s (%s)", label, strings.Join(options, ", ")), def))
		for _, o := range options {
			if answer == o {
				return o
			}
		}
		fmt.Fprintln(p.out, "Invalid choice, please try again.")
		if _, err := p.reader.Peek(1); err != nil {
			return def
		}
	}
}
