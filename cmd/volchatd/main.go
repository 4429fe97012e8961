package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/voluntr/volchat/internal/daemon"
	"github.com/voluntr/volchat/internal/profile"
	"go.uber.org/fx"
)

func main() {
	_ = godotenv.Load()

	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	listenFlag := flag.String("listen", "", "listen address (overrides config)")
	levelFlag := flag.String("log-level", "", "log level (overrides config)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			ProfileName: profileName,
			ListenAddr:  *listenFlag,
			LogLevel:    *levelFlag,
		}),
	)

	app.Run()
}
