package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/praveshjainnn/BasketBuddy/internal/auth"
	"github.com/praveshjainnn/BasketBuddy/internal/config"
	"github.com/praveshjainnn/BasketBuddy/internal/db"
	"github.com/praveshjainnn/BasketBuddy/internal/store"
)

// cmdRecompute refreshes every discounted price for today. It is meant to be
// run once a day by cron or a systemd timer.
func cmdRecompute(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	database, err := db.OpenAndMigrate(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	s := store.New(database, store.WithLogger(slog.Default()))
	n, err := s.RecomputeDiscounts(ctx)
	if err != nil {
		return err
	}

	slog.Info("discounts recomputed", "items", n, "date", s.Today().String())
	return nil
}

// cmdToken mints a token for a seller using the secret stored in the
// database, so tokens stay valid across restarts.
func cmdToken(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	admin := fs.Bool("admin", false, "")
	ttl := fs.Duration("ttl", auth.TokenExpiry, "")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if fs.NArg() != 1 {
		return errors.New("usage: basketbuddy token [-admin] [-ttl duration] <seller>")
	}

	role := auth.RoleSeller
	if *admin {
		role = auth.RoleAdmin
	}

	database, err := db.OpenAndMigrate(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	secret, err := store.New(database).JWTSecret(ctx)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	token, err := auth.GenerateToken(secret, fs.Arg(0), role, *ttl)
	if err != nil {
		return err
	}

	slog.Debug("token issued", "seller", fs.Arg(0), "role", role, "expires", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Fprintln(out, token)
	return nil
}
