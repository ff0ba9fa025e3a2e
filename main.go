package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	// Build info (set via ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errUsage marks errors that should exit with status 2.
var errUsage = errors.New("usage error")

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := loadConfig()
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:           "peekrepo [directory]",
		Short:         "Browse a directory tree in the browser",
		Long:          "Serve a password protected web view of a directory: listings with rendered READMEs, highlighted source files and raw downloads.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(stdout, "peekrepo %s (commit: %s, built: %s)\n", version, commit, date)
				return nil
			}
			if len(args) > 0 {
				cfg.Root = args[0]
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, stdout)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&showVersion, "version", false, "show version information")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.SecretFile, "secret-file", cfg.SecretFile, "file holding the login password or its bcrypt hash")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "store sessions in redis instead of memory")
	flags.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "session lifetime")
	flags.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "failed logins before a client is locked out")
	flags.DurationVar(&cfg.Cooldown, "cooldown", cfg.Cooldown, "lockout duration after too many failed logins")
	flags.StringVar(&cfg.HighlightStyle, "style", cfg.HighlightStyle, "syntax highlighting style")
	flags.BoolVar(&cfg.OpenBrowser, "browser", cfg.OpenBrowser, "open the browser on start")
	flags.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload pages when files change")

	passwdCmd := &cobra.Command{
		Use:           "passwd",
		Short:         "Print a bcrypt hash for the secret file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	password := passwdCmd.Flags().StringP("password", "p", "", "password (required)")
	cost := passwdCmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	passwdCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *password == "" {
			return fmt.Errorf("%w: peekrepo passwd -p <password>", errUsage)
		}
		if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
			return fmt.Errorf("%w: invalid cost %d (min=%d max=%d)", errUsage, *cost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		h, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
		if err != nil {
			return fmt.Errorf("bcrypt: %w", err)
		}
		fmt.Fprintln(stdout, string(h))
		return nil
	}

	rootCmd.AddCommand(passwdCmd)
	rootCmd.SetArgs(args[1:])
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

// serve runs the HTTP server until ctx is cancelled or a signal arrives.
func serve(ctx context.Context, cfg config, stdout io.Writer) error {
	store, err := openSessionStore(cfg)
	if err != nil {
		return err
	}

	srv := newServer(cfg, store)
	defer srv.close()

	if _, err := os.Stat(cfg.SecretFile); err != nil {
		log.Printf("Warning: secret file %s is not readable, nobody can log in until it exists: %v", cfg.SecretFile, err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// WriteTimeout omitted: /events streams are long-lived
		IdleTimeout: 60 * time.Second,
	}

	url := fmt.Sprintf("http://%s", cfg.Addr)
	fmt.Fprintf(stdout, "peekrepo at %s\n", url)
	if cfg.Root != "" {
		fmt.Fprintf(stdout, "Browsing %s\n", cfg.Root)
	}
	fmt.Fprintln(stdout, "Press Ctrl+C to quit")

	if cfg.OpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openURL(url)
		}()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	return nil
}

func openSessionStore(cfg config) (sessionStore, error) {
	if cfg.RedisURL == "" {
		log.Printf("Using in-memory session storage")
		return newMemorySessionStore(), nil
	}
	log.Printf("Using Redis for session storage")
	store, err := newRedisSessionStore(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis session store: %w", err)
	}
	return store, nil
}

func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
