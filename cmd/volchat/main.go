package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/config"
	"github.com/voluntr/volchat/internal/profile"
	"github.com/voluntr/volchat/internal/tui"
	"github.com/voluntr/volchat/internal/tui/client"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	addr := cfg.Addr()

	c := client.New(addr)

	// Probe daemon health; auto-start if needed.
	st, err := probeDaemon(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", profileName)
		if err := startDaemon(profileName); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		st, err = waitForDaemon(c, 10*time.Second)
		if err != nil {
			fmt.Fprintln(os.Stderr, "daemon did not become ready")
			os.Exit(1)
		}
	}

	if st.UserID == "" {
		fmt.Fprintf(os.Stderr, "no identity configured for profile %q\n", profileName)
		fmt.Fprintln(os.Stderr, "run: volchatctl login --user <id> --name <name> --email <email>")
		os.Exit(1)
	}

	logger, err := newClientLogger(profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ident := chat.Identity{UserID: st.UserID, Name: st.UserName}
	ctrl := chat.NewController(ident, c, c, c, logger.Named("chat"))

	app := tui.NewApp(c, ctrl, profileName)
	app.SetOnLogout(func() error {
		return profile.ClearIdentity(profileName)
	})

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newClientLogger writes to the profile's log file only; stdout belongs to
// the terminal UI.
func newClientLogger(profileName string) (*zap.Logger, error) {
	logPath := filepath.Join(profile.LogDir(profileName), "volchat-tui.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{logPath}
	return cfg.Build()
}

func probeDaemon(c *client.Client) (*client.StatusInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Status(ctx)
}

func startDaemon(profileName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	volchatd := filepath.Join(filepath.Dir(executable), "volchatd")

	if _, err := os.Stat(volchatd); err != nil {
		volchatd = "volchatd"
	}

	cmd := exec.Command(volchatd, "--profile", profileName)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls the daemon with a real status request (not just a TCP
// connect).
func waitForDaemon(c *client.Client, timeout time.Duration) (*client.StatusInfo, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := probeDaemon(c)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(300 * time.Millisecond)
	}
	return nil, lastErr
}
