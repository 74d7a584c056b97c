package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the user. Passwords are read without echo when
// stdin is a terminal and as a plain line otherwise.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// readPassword is replaced in tests.
	readPassword func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.readPassword = func() (string, error) {
			pw, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(pw), err
		}
	} else {
		p.readPassword = p.line
	}
	return p
}

func (p *prompter) line() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// text returns value when set, otherwise prompts for it.
func (p *prompter) text(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	return p.line()
}

func (p *prompter) password(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if _, err := fmt.Fprint(p.out, "Password: "); err != nil {
		return "", err
	}
	return p.readPassword()
}
