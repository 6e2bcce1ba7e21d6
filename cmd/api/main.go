package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"notekeeper/cmd/internal/config"
	"notekeeper/cmd/internal/domain/store"
	"notekeeper/cmd/internal/http/handler"
	"notekeeper/cmd/internal/http/middleware"
	"notekeeper/cmd/internal/http/server"
	cognitoclient "notekeeper/cmd/internal/infrastructure/aws/cognito"
	"notekeeper/cmd/internal/infrastructure/jwks"
	"notekeeper/cmd/internal/service"
	"notekeeper/cmd/internal/utils/uid"
	"notekeeper/cmd/internal/utils/validators"

	"github.com/labstack/gommon/log"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Loads env vars depending on environment, before the flags read them
	if err := config.LoadEnvironment(ctx); err != nil {
		log.Fatalf("unable to load environment: %v", err)
	}

	app := &cli.App{
		Name:  "notekeeper",
		Usage: "Serve personal notes to users of an external identity provider",
		Flags: config.Flags(),
		Action: func(cCtx *cli.Context) error {
			cfg := config.FromCLI(cCtx)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(ctx, cfg)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	lvl, _ := cfg.Level()
	log.SetLevel(lvl)

	uid.Init(cfg.NodeID)

	noteRepo, err := store.Open(ctx, &cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := noteRepo.Close(context.Background()); err != nil {
			log.Errorf("failed to close note store: %v", err)
		}
	}()

	verifier, closeVerifier, err := newVerifier(ctx, &cfg.Auth)
	if err != nil {
		return err
	}
	defer closeVerifier()

	noteService := service.NewNoteService(noteRepo, validators.New())

	srv := server.New(&server.HTTPServerConfig{
		ListenAddr:               cfg.ListenAddr,
		BodyLimit:                cfg.BodyLimit,
		CORSOrigins:              cfg.CORSOrigins,
		DrainDuration:            cfg.DrainDuration,
		GracefulShutdownDuration: cfg.ShutdownTimeout,
		ReadTimeout:              cfg.ReadTimeout,
		WriteTimeout:             cfg.WriteTimeout,
	},
		handler.NewNoteDefault(noteService),
		handler.NewHealthRoute(noteRepo),
		middleware.NewAuthMiddleware(&middleware.AuthMiddlewareConfig{Verifier: verifier}),
	)
	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	log.Info("Shutdown signal received")

	srv.Shutdown()
	return nil
}

// newVerifier builds the configured token verifier. The returned func
// releases whatever it holds in the background.
func newVerifier(ctx context.Context, cfg *config.AuthConfig) (middleware.TokenVerifier, func(), error) {
	switch cfg.Provider {
	case config.ProviderFirebase:
		url, jwtCfg := jwks.FirebaseConfig(cfg.FirebaseProjectID)
		v, err := jwks.New(ctx, url, jwtCfg)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil

	case config.ProviderCognito:
		url, jwtCfg := jwks.CognitoConfig(cfg.CognitoRegion, cfg.CognitoUserPoolID, cfg.CognitoClientID)
		v, err := jwks.New(ctx, url, jwtCfg)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil

	case config.ProviderCognitoRemote:
		v, err := cognitoclient.NewRemoteVerifier(ctx, cfg.CognitoRegion)
		if err != nil {
			return nil, nil, err
		}
		return v, func() {}, nil
	}
	return nil, nil, fmt.Errorf("invalid auth-provider: %s", cfg.Provider)
}
