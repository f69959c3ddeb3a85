package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"pump-sniper/internal/batch"
	"pump-sniper/internal/config"
	"pump-sniper/internal/decision"
	"pump-sniper/internal/discovery"
	"pump-sniper/internal/domain"
	"pump-sniper/internal/execution"
	"pump-sniper/internal/ingestion"
	"pump-sniper/internal/logging"
	"pump-sniper/internal/monitor"
	"pump-sniper/internal/observability"
	"pump-sniper/internal/orchestrator"
	"pump-sniper/internal/price"
	"pump-sniper/internal/publish"
	"pump-sniper/internal/solana"
	"pump-sniper/internal/storage"
	chstore "pump-sniper/internal/storage/clickhouse"
	"pump-sniper/internal/storage/memory"
	"pump-sniper/internal/storage/migrations"
	pgstore "pump-sniper/internal/storage/postgres"
)

const priceCacheKey = "pump-sniper:sol_usd"

func main() {
	// Parse flags
	envFile := flag.String("env-file", ".env", "Path to .env file")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides RPC_ENDPOINT)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (overrides WS_ENDPOINT)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides POSTGRES_DSN)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides CLICKHOUSE_DSN)")
	redisURL := flag.String("redis-url", "", "Redis URL for the shared price cache (overrides REDIS_URL)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory journals even when DSNs are configured")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	applyFlag(&cfg.RPCEndpoint, *rpcEndpoint)
	applyFlag(&cfg.WSEndpoint, *wsEndpoint)
	applyFlag(&cfg.PostgresDSN, *postgresDSN)
	applyFlag(&cfg.ClickHouseDSN, *clickhouseDSN)
	applyFlag(&cfg.RedisURL, *redisURL)
	if *useMemory {
		cfg.PostgresDSN, cfg.ClickHouseDSN = "", ""
	}

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("setup logging: %v", err)
	}
	log := logging.Component(logger, "sniper")

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.Infof("config: %s", cfg)

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		log.Infof("received signal %v, initiating graceful shutdown", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.Warnf("received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, logger)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("error: %v", err)
	}
	log.Info("shutdown complete")
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func serveMetrics(addr string, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	log.Infof("starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Errorf("metrics server error: %v", err)
	}
}

// run wires every stage and blocks until ctx is done or a stage fails.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	log := logging.Component(logger, "sniper")

	signer, err := execution.NewKeypairSigner(cfg.BuyerKeypair)
	if err != nil {
		return err
	}
	log.WithField("buyer", signer.PublicKey().String()).Info("loaded buyer keypair")

	// Journals
	journal, closeJournal, err := openJournal(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeJournal()

	// Price
	oracle, err := newOracle(cfg, logger)
	if err != nil {
		return err
	}

	// Solana clients
	rpcOpts := []solana.ClientOption{solana.WithLatencyObserver(observability.RecordRPCLatency)}
	if cfg.RPCRateLimit > 0 {
		rpcOpts = append(rpcOpts, solana.WithRateLimit(cfg.RPCRateLimit, int(cfg.RPCRateLimit)+1))
	}
	rpc := solana.NewHTTPClient(cfg.RPCURL(), rpcOpts...)

	// One connection for program logs, one for curve accounts.
	wsConfig := solana.DefaultWSConfig()
	wsConfig.Logger = logging.Component(logger, "ws")
	wsLogs, err := solana.NewWSClient(ctx, cfg.WSURL(), &wsConfig)
	if err != nil {
		return err
	}
	defer wsLogs.Close()

	wsCurves, err := solana.NewWSClient(ctx, cfg.WSURL(), &wsConfig)
	if err != nil {
		return err
	}
	defer wsCurves.Close()

	source := ingestion.NewWSCreationSource(wsLogs, rpc,
		ingestion.WithSourceLogger(logging.Component(logger, "ws-create")))
	feed := ingestion.NewWSCurveFeed(wsCurves, 0, logging.Component(logger, "ws-curve"))

	// Pipeline stages
	plans := make(chan domain.BuyPlan, 64)
	mon := monitor.New(monitor.Config{
		Window:      cfg.MonitoringWindow,
		InboxSize:   cfg.SessionInboxSize,
		AmountIn:    cfg.BuyLamports,
		SlippageBps: cfg.SlippageBps,
	}, feed, oracle, decision.NewEvaluator(cfg.MinMarketCapUSD, decision.WithSkipComplete()), plans,
		monitor.WithJournal(journal),
		monitor.WithLogger(logging.Component(logger, "monitor")))

	chain := execution.NewRPC(rpc)
	builderOpts := []execution.BuilderOption{execution.WithBuilderLogger(logging.Component(logger, "builder"))}
	if cfg.Simulate {
		builderOpts = append(builderOpts, execution.WithSimulator(chain))
	}
	builder := execution.NewBuilder(execution.Config{
		ComputeUnitLimit: cfg.ComputeUnitLimit,
		ComputeUnitPrice: cfg.ComputeUnitPrice,
		Simulate:         cfg.Simulate,
	}, signer, chain, chain, builderOpts...)

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	dispatcher := execution.NewDispatcher(builder, journal.Buys, publisher,
		execution.WithWorkers(cfg.BuildWorkers),
		execution.WithDispatcherLogger(logging.Component(logger, "dispatcher")))

	orch := orchestrator.New(orchestrator.Options{
		Source:       source,
		Detector:     discovery.NewDetector(journal.Tokens, logging.Component(logger, "detector")),
		Collector:    batch.NewCollector(cfg.CollectionWindow, batch.WithLogger(logging.Component(logger, "collector"))),
		Monitor:      mon,
		Plans:        plans,
		Dispatcher:   dispatcher,
		Refresher:    oracle,
		PriceRefresh: cfg.PriceRefresh,
		Logger:       logging.Component(logger, "orchestrator"),
	})

	result, err := orch.Run(ctx)
	if result != nil {
		log.WithFields(logrus.Fields{
			"batches": result.Batches,
			"plans":   result.Plans,
		}).Info("pipeline stopped")
	}
	return err
}

// openJournal returns Postgres/ClickHouse backed stores when configured,
// in-memory stores otherwise.
func openJournal(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*storage.Journal, func(), error) {
	journal := memory.NewJournal()
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { conn.Close() })
		journal.Observations = chstore.NewCurveObservationStore(conn)
		log.Info("curve observations journaled to ClickHouse")
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			closeAll()
			return nil, nil, err
		}
		journal = pgstore.NewJournal(pool, journal.Observations)
		log.Info("tokens, sessions and buys journaled to PostgreSQL")
	}

	if cfg.PostgresDSN == "" && cfg.ClickHouseDSN == "" {
		log.Warn("no journal DSNs configured, using in-memory journals")
	}
	return journal, closeAll, nil
}

// newOracle builds the cached CoinGecko oracle, sharing the cache through
// Redis when REDIS_URL is set.
func newOracle(cfg *config.Config, logger *logrus.Logger) (*price.CachedOracle, error) {
	var cache price.Cache = price.NewMemoryCache()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		cache = price.NewRedisCache(redis.NewClient(opts), priceCacheKey, cfg.PriceMaxAge)
	}

	upstream := price.NewCoinGecko(cfg.CoinGeckoURL,
		price.WithRetries(3, 500*time.Millisecond),
		price.WithRequestRate(30))
	return price.NewCachedOracle(upstream, cache, cfg.PriceMaxAge,
		price.WithLogger(logging.Component(logger, "price"))), nil
}

func newPublisher(cfg *config.Config, log *logrus.Entry) publish.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return publish.Noop{}
	}
	log.WithField("topic", cfg.KafkaTopic).Info("publishing built transactions to Kafka")
	return publish.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
}
