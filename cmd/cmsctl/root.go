package main

import (
	"context"
	"fmt"
	"os"

	"github.com/headless-cms-admin/internal/config"
	"github.com/headless-cms-admin/internal/kvstore"
	"github.com/headless-cms-admin/internal/repository"
	"github.com/headless-cms-admin/internal/service"
	"github.com/headless-cms-admin/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cmsctl",
	Short: "Offline administration for the headless CMS store",
	Long: `cmsctl works directly against the configured storage backend.

Stop the server before importing; a running server keeps its own copy
of the state in memory and would overwrite the import on its next save.

Examples:
  cmsctl export --out backup.json
  cmsctl import --in backup.json
  cmsctl reconcile
  cmsctl publish-due
  cmsctl field-types`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: $CMS_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// session is an opened store with its services
type session struct {
	services *service.Services
	store    kvstore.Store
	log      zerolog.Logger
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads configuration, opens the store and loads its state
func openSession(ctx context.Context) (*session, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("CMS_CONFIG_FILE")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log := logger.NewWithOptions(os.Stderr, logLevel, "pretty")

	store, err := kvstore.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	repos := repository.New(store, log)
	if err := repos.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}

	return &session{
		services: service.NewServices(repos, cfg, log),
		store:    store,
		log:      log,
	}, nil
}
