package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/account"
	"github.com/collegify/collegify/internal/college"
)

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	h, driver, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	var src io.Reader = college.DefaultSeed()
	if cfg.SeedFile != "" {
		f, err := os.Open(cfg.SeedFile)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	items, err := college.LoadSeed(src)
	if err != nil {
		return err
	}
	n, err := college.Seed(ctx, college.NewSQLStore(h, driver), items)
	if err != nil {
		return err
	}
	logger.Info("colleges seeded", zap.Int("inserted", n), zap.String("source", cfg.SeedFile))

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	u, created, err := account.NewService(h, driver, account.DefaultCost).
		EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		logger.Info("admin created", zap.Int64("id", u.ID), zap.String("email", u.Email))
	} else {
		logger.Info("admin already present", zap.String("email", cfg.AdminEmail))
	}
	return nil
}
