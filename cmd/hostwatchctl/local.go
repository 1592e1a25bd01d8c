package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"hostwatch/internal/audit"
	"hostwatch/internal/config"
	"hostwatch/internal/hostproc"
	"hostwatch/internal/utils"
)

// sampleWindow is how long one-shot commands measure CPU before reporting.
const sampleWindow = 500 * time.Millisecond

func loadConfig(cmd *cobra.Command) *config.Config {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

// localStack is a hostproc service bound to this machine, for one-shot commands.
type localStack struct {
	service *hostproc.Service
	audit   audit.Store
	logger  *utils.Logger
}

func newLocalStack(cmd *cobra.Command, verbose bool) (*localStack, error) {
	cfg := loadConfig(cmd)
	logger := utils.NewLogger("")
	logger.SetOutput(cmd.ErrOrStderr())
	if !verbose {
		logger.SetOutput(io.Discard)
	}
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	store, err := audit.Open(cfg.AuditDBPath, logger)
	if err != nil {
		return nil, err
	}
	source := hostproc.NewGopsutilSource()
	inspector := hostproc.NewInspector(source, logger)
	controller := hostproc.NewController(source, logger, hostproc.WithAudit(store))
	service := hostproc.NewService(inspector, controller, hostproc.NewPool(cfg.Workers))
	return &localStack{service: service, audit: store, logger: logger}, nil
}

func (s *localStack) Close() {
	s.service.Close()
	_ = s.audit.Close()
	s.logger.Close()
}
