package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/notioff/telesuper/internal/config"
	"github.com/notioff/telesuper/internal/daemon"
	"github.com/notioff/telesuper/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	cfg, err := config.Resolve(session.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: config: %v\n", err)
		os.Exit(1)
	}

	name := session.Resolve(*sessionFlag, cfg)
	if err := session.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Profile: name, Config: cfg}),
	)

	app.Run()
}
