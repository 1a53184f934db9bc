package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NordCoder/Warden/internal/auth"
	config "github.com/NordCoder/Warden/internal/config/wardenctl"
	"github.com/NordCoder/Warden/internal/domain/role"
	"github.com/NordCoder/Warden/internal/obs"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	"github.com/NordCoder/Warden/internal/services/identity-api/credentials"
	"github.com/NordCoder/Warden/internal/services/wardenctl"
)

func main() {
	configPath := flag.String("config", os.Getenv("WARDEN_CONFIG"), "path to YAML config")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), wardenctl.Usage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, flag.Args()); err != nil {
		if errors.Is(err, wardenctl.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprint(os.Stderr, wardenctl.Usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "wardenctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	store := credentials.NewStore(pg.NewUserRepo(db), auth.DefaultPasswordHasher(), role.NewHierarchy(), l)
	app := &wardenctl.App{
		Store:    store,
		Sessions: pg.NewRefreshLedger(db, pg.NewTransactor(db, l)),
		Out:      os.Stdout,
		Log:      l,
	}
	return app.Run(ctx, args)
}
