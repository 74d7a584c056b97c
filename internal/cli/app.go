// Package cli implements the deepscan command line client.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"deepfake-guard/internal/auth"
	"deepfake-guard/internal/client"
	"deepfake-guard/internal/logging"
	"deepfake-guard/internal/model"
	"deepfake-guard/internal/session"
)

const defaultServer = "http://localhost:3000"

var errUsage = errors.New("usage")

// ErrNotSignedIn is returned by commands that need a session when none is
// held.
var ErrNotSignedIn = errors.New("not signed in; run 'deepscan login' first")

type app struct {
	ctx    context.Context
	out    io.Writer
	errOut io.Writer
	prompt *prompter
	api    *client.Client
	ctrl   *session.Controller
}

// Run executes one deepscan invocation.
func Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("deepscan", flag.ContinueOnError)
	fs.SetOutput(errOut)
	serverURL := fs.String("server", envOr("DEEPSCAN_SERVER", defaultServer), "API base URL")
	sessionPath := fs.String("session", envOr("DEEPSCAN_SESSION", defaultSessionPath()), "session file")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() { usage(errOut, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		usage(errOut, fs)
		return errUsage
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(errOut, level, "text")

	storage, err := session.OpenFileStorage(*sessionPath, logger)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	api := client.New(*serverURL, nil)
	ctrl := session.NewController(api, storage, session.Options{
		Decoder: auth.JWTIdentityDecoder{},
		Logger:  logger,
	})
	if st := ctrl.Restore(); st.Authenticated() {
		api.SetToken(st.Token)
	}

	a := &app{
		ctx:    ctx,
		out:    out,
		errOut: errOut,
		prompt: newPrompter(in, out),
		api:    api,
		ctrl:   ctrl,
	}
	return a.dispatch(fs.Arg(0), fs.Args()[1:])
}

func (a *app) dispatch(cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(args)
	case "login":
		return a.login(args)
	case "federated":
		return a.federated(args)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami(args)
	case "scan":
		return a.scan(args)
	case "history":
		return a.history()
	case "stats":
		return a.stats()
	case "show":
		return a.show(args)
	case "version":
		return a.version()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireSession returns the held user or ErrNotSignedIn.
func (a *app) requireSession() (model.User, error) {
	st := a.ctrl.State()
	if st.User == nil {
		return model.User{}, ErrNotSignedIn
	}
	return *st.User, nil
}

// checkAuth drops the stored session when the server no longer accepts it.
func (a *app) checkAuth(err error) error {
	if errors.Is(err, model.ErrInvalidToken) {
		_ = a.ctrl.Revalidate(a.ctx)
		return fmt.Errorf("%w: session rejected by server, sign in again", err)
	}
	return err
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: deepscan [-server URL] [-session FILE] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  register [-email E] [-name N] [-password P]")
	fmt.Fprintln(w, "  login [-email E] [-password P]")
	fmt.Fprintln(w, "  federated <credential>")
	fmt.Fprintln(w, "  logout")
	fmt.Fprintln(w, "  whoami [-verify]")
	fmt.Fprintln(w, "  scan -type image|video|audio|text <content>")
	fmt.Fprintln(w, "  history")
	fmt.Fprintln(w, "  stats")
	fmt.Fprintln(w, "  show <scan-id>")
	fmt.Fprintln(w, "  version")
	fmt.Fprintln(w)
	fs.PrintDefaults()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "deepscan", "session.json")
}

func newCommandFlags(name string, errOut io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	return fs
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
