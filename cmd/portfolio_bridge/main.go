package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio_bridge/internal/app/service"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/infrastructure/configloader"
	"portfolio_bridge/internal/infrastructure/httpclient"
	clientprovider "portfolio_bridge/internal/infrastructure/network/client"
	networkdefinition "portfolio_bridge/internal/infrastructure/network/definition"
	"portfolio_bridge/internal/infrastructure/restapi"
	"portfolio_bridge/internal/infrastructure/walletloader"
	"portfolio_bridge/internal/pkg/debounce"
	"portfolio_bridge/internal/pkg/logger"
	"portfolio_bridge/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	initialRefreshTimeout = 30 * time.Second
	shutdownTimeout       = 5 * time.Second
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := configloader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	logger.Info("Configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	chains := networkdefinition.NewChainDefinitionProvider(logger.Named("ChainDefinitionProvider"), cfg.RPCURLFor)

	priceFeed := httpclient.NewCoinGeckoClient(httpclient.CoinGeckoOptions{
		BaseURL:               cfg.PriceFeed.BaseURL,
		APIKey:                cfg.PriceFeed.APIKey,
		VsCurrency:            cfg.PriceFeed.VsCurrency,
		Timeout:               cfg.PriceFeedTimeout(),
		MaxIDsPerRequest:      cfg.PriceFeed.MaxIDsPerRequest,
		MaxConcurrentRequests: cfg.PriceFeed.MaxConcurrentRequests,
		RequestsPerSecond:     cfg.PriceFeed.RequestsPerSecond,
	}, zapLogger)
	priceSource := service.NewCachedPriceSource(
		priceFeed,
		time.Duration(cfg.PriceFeed.CacheTTLSeconds)*time.Second,
		logger.Named("CachedPriceSource"),
	)

	router := httpclient.NewLiFiClient(httpclient.RouterOptions{
		BaseURL:           cfg.Bridge.BaseURL,
		APIKey:            cfg.Bridge.APIKey,
		Timeout:           cfg.BridgeTimeout(),
		RequestsPerSecond: cfg.Bridge.RequestsPerSecond,
	}, zapLogger)
	executor := httpclient.NewRelayClient(cfg.Bridge.ExecutionURL, cfg.Bridge.APIKey, cfg.BridgeTimeout(), zapLogger)
	if cfg.Bridge.ExecutionURL == "" {
		logger.Warn("Bridge execution endpoint not configured; executions will be rejected by the provider adapter")
	}

	quotes := service.NewBridgeQuoteService(chains, router, executor, service.BridgeQuoteOptions{
		Slippage:         cfg.Bridge.Slippage,
		Timeout:          cfg.BridgeTimeout(),
		ExecutedQuoteTTL: time.Duration(cfg.Bridge.ExecutedQuoteTTLMinutes) * time.Minute,
	}, logger.Named("BridgeQuoteService"), m)

	defaultFrom, err := entity.ParseChain(cfg.Bridge.DefaultFrom)
	if err != nil {
		logger.Fatal("Invalid bridge.defaultFrom", "error", err)
	}
	defaultTo, err := entity.ParseChain(cfg.Bridge.DefaultTo)
	if err != nil {
		logger.Fatal("Invalid bridge.defaultTo", "error", err)
	}
	orchestrator := service.NewBridgeOrchestrator(
		quotes,
		debounce.New(cfg.DebounceWindow()),
		defaultFrom, defaultTo,
		logger.Named("BridgeOrchestrator"),
		m,
	)
	defer orchestrator.Close()

	wallets := service.NewWalletRegistry(logger.Named("WalletRegistry"))
	engine := service.NewValuationEngine(cfg.AssetCatalog())
	portfolio := service.NewPortfolioService(engine, priceSource, wallets, logger.Named("PortfolioService"), m)
	wallets.OnChange(portfolio.ApplyWallets)
	defer portfolio.Close()

	holdings, err := cfg.InitialHoldings()
	if err != nil {
		logger.Fatal("Invalid holdings in configuration", "error", err)
	}
	if err := portfolio.SetHoldings(holdings); err != nil {
		logger.Fatal("Failed to apply configured holdings", "error", err)
	}

	balanceClients := clientprovider.NewEVMClientProvider(
		logger.Named("EVMClientProvider"),
		time.Duration(cfg.Performance.RPCCallTimeoutSeconds)*time.Second,
	)
	if closer, ok := balanceClients.(interface{ Close() }); ok {
		defer closer.Close()
	}
	holdingsLoader := service.NewHoldingsLoader(chains.EVM(), balanceClients, logger.Named("HoldingsLoader"))

	watchList, err := walletloader.NewWatchListLoader(cfg.WatchListPath, logger.Named("WatchListLoader")).Addresses()
	if err != nil {
		logger.Error("Failed to read watch list", "error", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), initialRefreshTimeout)
		defer cancel()
		if len(watchList) > 0 {
			seeded := append([]entity.Holding(nil), holdings...)
			for _, address := range watchList {
				onChain, failures, err := holdingsLoader.LoadWallet(ctx, address)
				if err != nil {
					logger.Warn("Skipping watched wallet", "wallet", address, "error", err)
					continue
				}
				for _, f := range failures {
					logger.Warn("Chain skipped for watched wallet", "wallet", f.WalletAddress, "chain", f.Chain, "message", f.Message)
				}
				seeded = append(seeded, onChain...)
			}
			if err := portfolio.SetHoldings(seeded); err != nil {
				logger.Error("Failed to apply watched wallet holdings", "error", err)
			}
		}
		if err := portfolio.RefreshPrices(ctx); err != nil {
			logger.Error("Initial price refresh failed", "error", err)
			return
		}
		logger.Info("Initial price refresh completed")
	}()

	if level, _ := logger.ParseLevel(cfg.Logging.Level); level > zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	ginRouter := restapi.SetupRouter(restapi.Handlers{
		Portfolio: restapi.NewPortfolioHandler(portfolio, holdingsLoader, logger.Named("PortfolioHandler")),
		Bridge:    restapi.NewBridgeHandler(orchestrator, quotes, chains, logger.Named("BridgeHandler")),
		Wallets:   restapi.NewWalletHandler(wallets),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, zapLogger.Named("http"))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      ginRouter,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting")
}
