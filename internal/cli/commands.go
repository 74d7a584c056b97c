package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"deepfake-guard/internal/model"
	"github.com/fatih/color"
)

var (
	bold      = color.New(color.Bold)
	faint     = color.New(color.FgHiBlack)
	deepfake  = color.New(color.FgRed, color.Bold)
	authentic = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
)

func (a *app) register(args []string) error {
	fs := newCommandFlags("register", a.errOut)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email, err = a.prompt.text(*email, "Email"); err != nil {
		return err
	}
	if *name, err = a.prompt.text(*name, "Name"); err != nil {
		return err
	}
	if *password, err = a.prompt.password(*password); err != nil {
		return err
	}

	if err := a.ctrl.Register(a.ctx, *email, *password, *name); err != nil {
		return err
	}
	return a.greet("Registered")
}

func (a *app) login(args []string) error {
	fs := newCommandFlags("login", a.errOut)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email, err = a.prompt.text(*email, "Email"); err != nil {
		return err
	}
	if *password, err = a.prompt.password(*password); err != nil {
		return err
	}

	if err := a.ctrl.Login(a.ctx, *email, *password); err != nil {
		return err
	}
	return a.greet("Signed in")
}

func (a *app) federated(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("federated needs exactly one credential argument")
	}
	if err := a.ctrl.FederatedLogin(a.ctx, args[0]); err != nil {
		return err
	}
	return a.greet("Signed in")
}

func (a *app) greet(verb string) error {
	st := a.ctrl.State()
	if st.User == nil {
		return ErrNotSignedIn
	}
	fmt.Fprintf(a.out, "%s as %s <%s>\n", verb, bold.Sprint(st.User.Name), st.User.Email)
	return nil
}

func (a *app) logout() error {
	if _, err := a.requireSession(); err != nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	if err := a.ctrl.Logout(a.ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(args []string) error {
	fs := newCommandFlags("whoami", a.errOut)
	verify := fs.Bool("verify", false, "confirm the session with the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verify {
		if err := a.ctrl.Revalidate(a.ctx); err != nil {
			return err
		}
	}
	user, err := a.requireSession()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\n", bold.Sprint(user.Name), user.Email)
	fmt.Fprintf(a.out, "%s %s\n", faint.Sprint("id:"), user.ID)
	if user.Avatar != "" {
		fmt.Fprintf(a.out, "%s %s\n", faint.Sprint("avatar:"), user.Avatar)
	}
	return nil
}

func (a *app) scan(args []string) error {
	fs := newCommandFlags("scan", a.errOut)
	ct := fs.String("type", string(model.ContentImage), "content type: image, video, audio or text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	content := strings.Join(fs.Args(), " ")

	fmt.Fprintln(a.errOut, faint.Sprint("Analyzing..."))
	scan, err := a.api.Scan(a.ctx, model.ContentType(*ct), content)
	if err != nil {
		return a.checkAuth(err)
	}
	a.printScan(scan)
	return nil
}

func (a *app) show(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("show needs exactly one scan id")
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	scan, err := a.api.ScanResult(a.ctx, args[0])
	if err != nil {
		return a.checkAuth(err)
	}
	a.printScan(scan)
	return nil
}

func (a *app) history() error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	scans, err := a.api.History(a.ctx)
	if err != nil {
		return a.checkAuth(err)
	}
	if len(scans) == 0 {
		fmt.Fprintln(a.out, "No scans yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tVERDICT\tSCORE")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\n",
			shortID(s.ID), s.ScanDate.Local().Format("2006-01-02 15:04"), s.ContentType, verdict(s.IsDeepfake), s.ConfidenceScore)
	}
	return tw.Flush()
}

func (a *app) stats() error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	st, err := a.api.Stats(a.ctx)
	if err != nil {
		return a.checkAuth(err)
	}

	fmt.Fprintf(a.out, "Total scans:        %d\n", st.TotalScans)
	fmt.Fprintf(a.out, "Deepfakes detected: %s (%.1f%%)\n", deepfake.Sprint(st.DeepfakesDetected), st.DeepfakePercentage)
	if st.LastScan != nil {
		fmt.Fprintf(a.out, "Last scan:          %s\n", st.LastScan.Local().Format(time.RFC1123))
	}

	types := make([]string, 0, len(st.ByContentType))
	for ct := range st.ByContentType {
		types = append(types, string(ct))
	}
	sort.Strings(types)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nTYPE\tAUTHENTIC\tDEEPFAKE")
	for _, ct := range types {
		c := st.ByContentType[model.ContentType(ct)]
		fmt.Fprintf(tw, "%s\t%d\t%d\n", ct, c.Authentic, c.Deepfake)
	}
	return tw.Flush()
}

func (a *app) version() error {
	v, err := a.api.ServerVersion(a.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "server %s\n", v)
	return nil
}

func (a *app) printScan(s model.ScanResult) {
	fmt.Fprintf(a.out, "%s %s\n", bold.Sprint("Scan"), s.ID)
	fmt.Fprintf(a.out, "  verdict:    %s\n", verdict(s.IsDeepfake))
	fmt.Fprintf(a.out, "  confidence: %.1f%%\n", s.ConfidenceScore)
	fmt.Fprintf(a.out, "  type:       %s\n", s.ContentType)
	fmt.Fprintf(a.out, "  content:    %s\n", s.OriginalContent)
	fmt.Fprintf(a.out, "  scanned:    %s (%d ms)\n", s.ScanDate.Local().Format(time.RFC1123), s.ProcessingTimeMs)
	if len(s.DetectedMarkers) == 0 {
		return
	}
	fmt.Fprintln(a.out, "  markers:")
	for _, m := range s.DetectedMarkers {
		line := fmt.Sprintf("    [%s] %s", severity(m.Severity), m.Description)
		if m.Location != nil {
			line += faint.Sprintf(" at %d,%d %dx%d", m.Location.X, m.Location.Y, m.Location.Width, m.Location.Height)
		}
		fmt.Fprintln(a.out, line)
	}
}

func verdict(isDeepfake bool) string {
	if isDeepfake {
		return deepfake.Sprint("DEEPFAKE")
	}
	return authentic.Sprint("AUTHENTIC")
}

func severity(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return deepfake.Sprint(s)
	case model.SeverityMedium:
		return warnColor.Sprint(s)
	default:
		return faint.Sprint(s)
	}
}
