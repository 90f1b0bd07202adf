package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"taskpad/internal/app"
	"taskpad/internal/config"
	"taskpad/internal/exitcode"
)

const (
	// oauthCallbackTimeout bounds the wait for the browser redirect.
	oauthCallbackTimeout = 5 * time.Minute

	// tokenExchangeTimeout bounds the code-for-token exchange.
	tokenExchangeTimeout = 30 * time.Second

	// oauthStartPort is the first loopback port tried for the callback.
	oauthStartPort = 8085

	// oauthMaxPortAttempts limits the port search.
	oauthMaxPortAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command. Password sign-in is the
// default; --provider switches to a browser OAuth flow.
type LoginCmd struct {
	password      string
	oauthProvider string
}

// SetPassword sets the password (for testing).
func (c *LoginCmd) SetPassword(pw string) {
	c.password = pw
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in" }
func (c *LoginCmd) Usage() string {
	return "taskpad login --password <password> <email> | taskpad login --provider <name>"
}
func (c *LoginCmd) NeedsClient() bool { return true }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
	fs.StringVar(&c.oauthProvider, "provider", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if c.oauthProvider != "" {
		return c.runOAuth(ctx, cfg, a, out, errOut)
	}

	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: email required")
		return exitcode.UserError
	}

	if err := a.Session.SignIn(ctx, args[0], c.password); err != nil {
		a.Status.Errorf("%v", err)
		return fail(errOut, err)
	}

	a.Status.Successf("signed in")
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// tokenAdopter is the extra surface the OAuth flow needs from the
// provider client: the base URL for the authorize endpoint and a way
// to install the exchanged token pair as the session.
type tokenAdopter interface {
	BaseURL() string
	AdoptTokens(accessToken, refreshToken string) error
}

// runOAuth performs the browser code flow with PKCE against the
// provider's authorize endpoint, receiving the redirect on a loopback
// port.
func (c *LoginCmd) runOAuth(ctx context.Context, cfg *config.Config, a *app.App, out, errOut io.Writer) int {
	adopter, ok := a.Client.(tokenAdopter)
	if !ok {
		fmt.Fprintln(errOut, "error: backend does not support oauth sign-in")
		return exitcode.UserError
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		fmt.Fprintln(errOut, "error: could not bind to local port for oauth callback")
		return exitcode.AuthError
	}
	defer listener.Close()

	oauthConfig := &oauth2.Config{
		ClientID:    cfg.AnonKey,
		RedirectURL: fmt.Sprintf("http://localhost:%d/callback", port),
		Endpoint: oauth2.Endpoint{
			AuthURL:  adopter.BaseURL() + "/auth/v1/authorize",
			TokenURL: adopter.BaseURL() + "/auth/v1/token",
		},
	}

	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("state",
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("provider", c.oauthProvider),
	)

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- fmt.Errorf("no code in callback")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Sign-in successful</h1><p>You may close this window.</p></body></html>")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var code string
	select {
	case code = <-codeCh:
		// Got code
	case err := <-errCh:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	case <-time.After(oauthCallbackTimeout):
		fmt.Fprintln(errOut, "error: oauth callback timed out")
		return exitcode.AuthError
	case <-ctx.Done():
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.AuthError
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return exitcode.AuthError
	}

	if err := adopter.AdoptTokens(token.AccessToken, token.RefreshToken); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	a.Status.Successf("signed in")
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// findAvailablePort tries loopback ports starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}
