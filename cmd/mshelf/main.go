package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mshelf/internal/config"
	"github.com/xxxsen/mshelf/internal/db"
	"github.com/xxxsen/mshelf/internal/pkg/jwt"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mshelf",
		Short:        "mshelf personal content organizer",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCmd(), newTokenCmd())

	opts := &clientOptions{}
	for _, cmd := range []*cobra.Command{
		newNotesCmd(opts),
		newLinksCmd(opts),
		newTodosCmd(opts),
		newFilesCmd(opts, false),
		newFilesCmd(opts, true),
	} {
		opts.bind(cmd)
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}

func newRunCmd() *cobra.Command {
	var configPath string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mshelf server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer func() { _ = conn.Close() }()
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			if err := runServer(cmd.Context(), cfg, conn); err != nil {
				logutil.GetLogger(context.Background()).Error("server exited", zap.Error(err))
				return err
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	return runCmd
}

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		owner      string
		ttl        time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue a bearer token for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			if owner == "" {
				return fmt.Errorf("--owner is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWTTTLHours) * time.Hour
			}
			token, err := jwt.GenerateToken(owner, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	tokenCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	tokenCmd.Flags().StringVar(&owner, "owner", "", "owner id carried by the token")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to jwt_ttl_hours")
	return tokenCmd
}
