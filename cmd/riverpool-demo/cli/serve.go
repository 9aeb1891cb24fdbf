package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/riverpool/riverpool/internal/config"
	appErrors "github.com/riverpool/riverpool/pkg/errors"
	"github.com/riverpool/riverpool/pkg/logging"
	"github.com/riverpool/riverpool/pkg/managers/grpc"
	"github.com/riverpool/riverpool/pkg/managers/sql"
	"github.com/riverpool/riverpool/pkg/managers/tcp"
	"github.com/riverpool/riverpool/pkg/pool"
)

var rounds int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the configured pool and run checkout/release rounds against it",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&rounds, "rounds", 20, "number of checkout/release rounds to run")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	log := logging.Get()
	errorHandler := logging.NewErrorHandler(log)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	switch cfg.Backend {
	case "sql":
		mgr := sql.New(sql.Config{
			Driver:   cfg.SQL.Driver,
			Host:     cfg.SQL.Host,
			Port:     cfg.SQL.Port,
			Database: cfg.SQL.Database,
			Username: cfg.SQL.Username,
			Password: cfg.SQL.Password,
			SSLMode:  cfg.SQL.SSLMode,
		})
		return runDemo(ctx, cfg, mgr, errorHandler)
	case "tcp":
		mgr := tcp.New(tcp.Config{
			Network:      cfg.TCP.Network,
			Address:      cfg.TCP.Address,
			ProbeTimeout: cfg.TCP.ProbeTimeout,
		})
		return runDemo(ctx, cfg, mgr, errorHandler)
	case "grpc":
		mgr := grpc.New(grpc.Config{
			Target:           cfg.GRPC.Target,
			KeepaliveTime:    cfg.GRPC.KeepaliveTime,
			KeepaliveTimeout: cfg.GRPC.KeepaliveTimeout,
			ReadyTimeout:     cfg.GRPC.ReadyTimeout,
		})
		return runDemo(ctx, cfg, mgr, errorHandler)
	default:
		return fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// runDemo builds a Pool around manager and runs --rounds rounds of
// cfg.Pool.Size concurrent checkout/release, logging stats after each round.
func runDemo[C pool.Connection](ctx context.Context, cfg *config.Config, manager pool.ConnectionManager[C], errorHandler pool.ErrorHandler) error {
	log := logging.Get()

	p, err := pool.New(ctx, cfg.Pool.ToPoolConfig(), manager, errorHandler)
	if err != nil {
		return fmt.Errorf("build pool: %w", err)
	}
	defer p.Close()

	log.Info().Str("backend", cfg.Backend).Str("stats", p.String()).Msg("pool initialized")

	for round := 0; round < rounds; round++ {
		var wg sync.WaitGroup
		concurrency := cfg.Pool.Size
		wg.Add(concurrency)
		for i := 0; i < concurrency; i++ {
			go func() {
				defer wg.Done()
				h, err := p.Get(ctx)
				if err != nil {
					if err == pool.ErrGetTimeout {
						err = appErrors.NewAppError("POOL_CHECKOUT_TIMEOUT",
							"no connection became available in time",
							fmt.Errorf("%w: %v", appErrors.ErrBackendUnreachable, err))
					}
					errorHandler.HandleError(fmt.Errorf("checkout: %w", err))
					return
				}
				defer h.Release()
				time.Sleep(time.Millisecond)
			}()
		}
		wg.Wait()
		log.Info().Int("round", round).Str("stats", p.String()).Msg("round complete")
	}

	return nil
}
