package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/jrsteele09/carpool-client/api"
	"github.com/jrsteele09/carpool-client/app"
	"github.com/jrsteele09/carpool-client/federated"
	"github.com/jrsteele09/carpool-client/internal/config"
	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/jrsteele09/carpool-client/trips"
)

// credentials are the optional login flags shared by commands that need a
// session. The backend session lives in the process cookie jar, so such
// commands log in first when an email is given.
type credentials struct {
	email     string
	password  string
	recaptcha string
}

func (cr *credentials) addFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&cr.email, "email", "e", "", "account email")
	flags.StringVarP(&cr.password, "password", "p", "", "account password (default $CARPOOL_PASSWORD)")
	flags.StringVar(&cr.recaptcha, "recaptcha", "", "recaptcha token, when the backend requires one")
}

func (cr *credentials) login(ctx context.Context, a *app.App) error {
	if cr.email == "" {
		return nil
	}
	password := cr.password
	if password == "" {
		password = os.Getenv("CARPOOL_PASSWORD")
	}
	return a.Auth().Login(ctx, api.Credentials{Email: cr.email, Password: password, RecaptchaToken: cr.recaptcha})
}

func parseFlags(flags *pflag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func startApp(ctx context.Context, c config.Config, options ...app.Option) (*app.App, error) {
	a, err := app.New(c, options...)
	if err != nil {
		return nil, err
	}
	a.Start(ctx)
	return a, nil
}

func runLogin(c config.Config, args []string) error {
	var cr credentials
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	cr.addFlags(flags)
	if err := parseFlags(flags, args); err != nil {
		return err
	}
	if cr.email == "" {
		return fmt.Errorf("--email is required")
	}

	ctx, cancel := signalContext()
	defer cancel()
	a, err := startApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := cr.login(ctx, a); err != nil {
		return err
	}
	a.Wait()
	printSession(a)
	return nil
}

func runLogout(c config.Config, args []string) error {
	var cr credentials
	flags := pflag.NewFlagSet("logout", pflag.ContinueOnError)
	cr.addFlags(flags)
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	a, err := startApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := cr.login(ctx, a); err != nil {
		return err
	}
	a.Auth().Logout(ctx)
	a.Wait()
	printSession(a)
	return nil
}

func runMe(c config.Config, args []string) error {
	var cr credentials
	flags := pflag.NewFlagSet("me", pflag.ContinueOnError)
	cr.addFlags(flags)
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	a, err := startApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := cr.login(ctx, a); err != nil {
		return err
	}
	a.Wait()
	printSession(a)
	return nil
}

func runTrips(c config.Config, args []string) error {
	var cr credentials
	flags := pflag.NewFlagSet("trips", pflag.ContinueOnError)
	cr.addFlags(flags)
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	a, err := startApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := cr.login(ctx, a); err != nil {
		return err
	}
	if a.Store().User() == nil {
		return fmt.Errorf("%w, log in with --email", carpoolerrors.ErrNoSession)
	}

	envelope, err := a.Backend().DriverTrips(ctx)
	if err != nil {
		return err
	}
	if !envelope.OK() {
		return fmt.Errorf("trips unavailable: %w: %s", carpoolerrors.ErrBackendState, envelope.Message(0))
	}
	if len(envelope.Data) == 0 {
		fmt.Println("No trips.")
		return nil
	}
	for _, t := range envelope.Data {
		printTrip(t)
	}
	return nil
}

func runWatch(c config.Config, args []string) error {
	var cr credentials
	flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	cr.addFlags(flags)
	if err := parseFlags(flags, args); err != nil {
		return err
	}
	if cr.email == "" {
		return fmt.Errorf("--email is required")
	}

	ctx, cancel := signalContext()
	defer cancel()
	a, err := startApp(ctx, c, app.WithMessageHandler(func(payload any) {
		fmt.Printf("[%s] %v\n", time.Now().Format(time.TimeOnly), payload)
	}))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := cr.login(ctx, a); err != nil {
		return err
	}
	printSession(a)
	fmt.Println("Waiting for notifications, press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}

func runGoogle(c config.Config, args []string) error {
	flags := pflag.NewFlagSet("google", pflag.ContinueOnError)
	timeout := flags.Duration("timeout", 5*time.Minute, "how long to wait for the browser sign-in")
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	google, err := federated.NewGoogle(ctx, c)
	if err != nil {
		return err
	}
	idToken, identity, err := awaitGoogleCallback(ctx, google, c.GetGoogleRedirectURL())
	if err != nil {
		return err
	}
	log.Info().Str("email", identity.Email).Msg("google account verified")

	a, err := startApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Auth().AuthGoogle(ctx, idToken); err != nil {
		return err
	}
	a.Wait()
	printSession(a)
	return nil
}

type callbackResult struct {
	idToken  string
	identity *federated.Identity
	err      error
}

// awaitGoogleCallback serves the redirect URL locally, prints the consent
// URL and waits for the browser to come back with the authorization code.
func awaitGoogleCallback(ctx context.Context, google *federated.Google, redirectURL string) (string, *federated.Identity, error) {
	redirect, err := url.Parse(redirectURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid redirect url: %w", err)
	}
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", nil, fmt.Errorf("listen for callback: %w", err)
	}

	req := google.Begin()
	results := make(chan callbackResult, 1)
	router := mux.NewRouter()
	router.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		idToken, identity, err := google.Exchange(r.Context(), req, q.Get("state"), q.Get("code"))
		if err != nil {
			http.Error(w, "sign-in failed, check the terminal", http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "Signed in, you can close this window.")
		}
		select {
		case results <- callbackResult{idToken: idToken, identity: identity, err: err}:
		default:
		}
	}).Methods(http.MethodGet)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("callback server stopped")
		}
	}()
	defer func() {
		_ = shutdown(srv)
	}()

	fmt.Println("Open this URL to sign in with Google:")
	fmt.Println()
	fmt.Println("  " + req.URL)
	fmt.Println()

	select {
	case res := <-results:
		return res.idToken, res.identity, res.err
	case <-ctx.Done():
		return "", nil, fmt.Errorf("waiting for google sign-in: %w", ctx.Err())
	}
}

func printSession(a *app.App) {
	snap := a.Store().Snapshot()
	fmt.Printf("Location: %s\n", a.Router().Path())
	u := snap.User
	if u == nil {
		fmt.Println("Session:  none")
		return
	}
	name := u.FullName()
	if name == "" {
		name = u.Username
	}
	fmt.Printf("Session:  %s (%s)\n", name, u.Username)
	if u.ID != nil {
		fmt.Printf("ID:       %d\n", *u.ID)
	}
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	if len(roles) > 0 {
		fmt.Printf("Roles:    %s\n", strings.Join(roles, ", "))
	}
	if u.ProfileImage != "" {
		fmt.Printf("Image:    %s\n", u.ProfileImage)
	}
	if snap.Debt.Blocked() {
		fmt.Println("Debt:     pending payment")
	}
	if snap.Token != nil {
		fmt.Printf("Token:    %s\n", snap.Token.Redacted())
	}
}

func printTrip(t trips.TripDriver) {
	fmt.Printf("#%-5d %s -> %s\n", t.ID, trips.CapitalizeWords(t.StartCity), trips.CapitalizeWords(t.DestinationCity))
	fmt.Printf("       %s (%s)  $%.2f  %s %s [%s]\n",
		trips.FormatDateTime(t.StartDateTime, time.Local),
		trips.ClockIcon(t.StartDateTime.In(time.Local)),
		t.SeatPrice,
		t.Vehicle.Brand,
		t.Vehicle.Model,
		trips.FormatDomain(t.Vehicle.Domain),
	)
	state := trips.CapitalizeWords(string(t.TripState))
	if b, ok := trips.ButtonFor(t.TripState); ok && !b.Disabled {
		state += " | next: " + b.Label
	}
	fmt.Printf("       %s\n", state)
}
