package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trafficcount/config"
	"trafficcount/internal/eventbus"
	"trafficcount/internal/logging"
	"trafficcount/internal/repository"
	"trafficcount/internal/service"
	"trafficcount/internal/service/session"
)

// app 命令共享的依赖，在 PersistentPreRunE 中初始化
type app struct {
	cfgFile  string
	cfg      *config.Config
	logger   *zap.Logger
	services *service.Services
	closers  []func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "trafficctl",
		Short:         "Inspect and maintain traffic count data",
		Long:          `trafficctl records, generates, analyzes and exports the traffic counts served by the dashboard, using the same configuration and record store as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yaml)")

	rootCmd.AddCommand(
		newRecordCmd(a),
		newGenerateCmd(a),
		newSeedCmd(a),
		newListCmd(a),
		newAnalyzeCmd(a),
		newClearCmd(a),
		newExportCmd(a),
	)
	return rootCmd
}

func (a *app) init() error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadFile(a.cfgFile)
	} else {
		a.cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	// 命令行默认只输出告警以上日志
	level := a.cfg.Log.Level
	if level == config.DefaultLogLevel {
		level = "warn"
	}
	a.logger, err = logging.NewLogger(level, "console")
	if err != nil {
		return err
	}

	store, closeStore, err := repository.NewRecordStore(a.cfg.Store, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeStore)

	sessions := session.NewMemoryStore(a.cfg.Dashboard.AutoInterval, a.cfg.Session.TTL)
	bus := eventbus.NewEventBus(a.logger)
	a.services = service.NewServices(a.cfg, store, sessions, bus, a.logger)
	return nil
}

func (a *app) close() error {
	if a.services != nil {
		a.services.Dashboard.Wait()
	}
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
