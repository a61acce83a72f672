// Command secretsd runs the Secrets demo application: a small site where
// users register locally or sign in with an OAuth provider, and keep exactly
// one secret behind the login wall.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type config struct {
	Addr         string `env:"SECRETSD_ADDR" envDefault:":8080"`
	DBPath       string `env:"SECRETSD_DB" envDefault:"secretsd.db"`
	JWTSecretKey string `env:"SECRETS_JWT_SECRET_KEY"`
}

func main() {
	app := &cli.App{
		Name:  "secretsd",
		Usage: "Keep your secrets behind a login wall",
		Commands: []*cli.Command{
			serveCmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the Secrets site",
		Action: func(c *cli.Context) error {
			var cfg config
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			srv, err := newServer(cfg)
			if err != nil {
				return err
			}
			return srv.listen(c.Context)
		},
	}
}
