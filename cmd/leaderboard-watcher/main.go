package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hedgewtf/zodial-watcher/api"
	"github.com/hedgewtf/zodial-watcher/assets"
	"github.com/hedgewtf/zodial-watcher/cache"
	"github.com/hedgewtf/zodial-watcher/chain"
	"github.com/hedgewtf/zodial-watcher/common/config"
	cerrors "github.com/hedgewtf/zodial-watcher/common/errors"
	"github.com/hedgewtf/zodial-watcher/common/logging"
	"github.com/hedgewtf/zodial-watcher/env"
	"github.com/hedgewtf/zodial-watcher/leaderboard"
	"github.com/hedgewtf/zodial-watcher/types"
)

func main() {
	name := string(types.Watcher)
	// Initialize logger.
	logging.Initialize(name)
	defer logging.Finalize()

	logger := logging.NewLoggerTag(name)

	// Setup panic handler.
	cerrors.Initialize(logger)
	defer cerrors.Catch()

	logger.Info("%s service started.", name)
	logger.Info("Initializing.")

	backgroundCtx, stop := context.WithCancel(context.Background())
	go WaitExitSignal(stop, logger)
	group, ctx := errgroup.WithContext(backgroundCtx)

	rpcClient := chain.NewClient(
		logging.NewLoggerTag("chain"),
		config.GetString("RPC_URL", env.DefaultRPCURL),
	)
	srvCache := cache.NewServer(logging.NewLoggerTag("cache"))

	agg, err := leaderboard.NewAggregator(
		logging.NewLoggerTag("leaderboard"),
		rpcClient,
		srvCache,
		assets.Default(),
		config.GetString("PROGRAM_ID", env.DefaultProgramID),
		config.GetString("MARKET_ADDRESS", env.DefaultMarket),
	)
	if err != nil {
		logger.Error("aggregator fail:%s", err)
		os.Exit(-3)
	}

	lbServer := api.NewLBServer(
		ctx,
		logging.NewLoggerTag("api"),
		agg,
		config.GetInt("LEADERBOARD_PORT", 9487),
		config.GetInt("DEFAULT_PAGE_SIZE", leaderboard.DefaultPageSize),
	)
	group.Go(func() error {
		return lbServer.Run()
	})
	group.Go(func() error {
		<-ctx.Done()
		return lbServer.Shutdown()
	})

	if err := group.Wait(); err != nil {
		logger.Critical("service stopped: %s", err)
	}
}

func WaitExitSignal(ctxStop context.CancelFunc, logger logging.Logger) {
	var exitSignal = make(chan os.Signal, 1)
	signal.Notify(exitSignal, syscall.SIGTERM)
	signal.Notify(exitSignal, syscall.SIGINT)

	sig := <-exitSignal
	logger.Info("caught sig: %+v, Stopping...\n", sig)
	ctxStop()
}
