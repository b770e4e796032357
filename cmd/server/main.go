// Package main runs the trading-signals service: the scoring query API,
// the paper-trade ledger and the signal cache behind one HTTP listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-signals/internal/httpapi"
	"solana-signals/internal/ledger"
	"solana-signals/internal/marketdata"
	"solana-signals/internal/marketdata/stub"
	"solana-signals/internal/query"
	"solana-signals/internal/scoring"
	"solana-signals/internal/signalcache"
	"solana-signals/internal/solutil"
	"solana-signals/internal/storage"
	chstore "solana-signals/internal/storage/clickhouse"
	"solana-signals/internal/storage/memory"
	"solana-signals/internal/storage/migrations"
	pgstore "solana-signals/internal/storage/postgres"
)

// ledgerStores bundles the four stores the ledger runs on.
type ledgerStores struct {
	trades      storage.TradeStore
	portfolio   storage.PortfolioStore
	holdings    storage.HoldingStore
	settlements storage.SettlementStore
}

func main() {
	// .env values become defaults, real env vars win.
	_ = godotenv.Load()

	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	heliusEndpoint := flag.String("helius-endpoint", os.Getenv("HELIUS_RPC_ENDPOINT"), "Helius-style Solana RPC endpoint for holder data")
	redisAddr := flag.String("redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "Redis address for the signal cache")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the trade ledger")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the signal archive (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory cache and ledger storage instead of Redis/PostgreSQL")
	useStub := flag.Bool("use-stub", false, "Use the fixture data source instead of live providers")
	universeFlag := flag.String("universe", os.Getenv("TOKEN_UNIVERSE"), "Comma-separated token addresses to scan (default watchlist when empty)")
	cacheTTL := flag.Duration("cache-ttl", signalcache.DefaultTTL, "Logical signal cache TTL")
	wallet := flag.String("wallet", envOr("SESSION_WALLET", "paper-session"), "Session wallet identifier")
	startSOL := flag.Float64("start-sol", 10, "Starting SOL balance")
	startUSD := flag.Float64("start-usd", 1500, "Starting USD balance")
	dailyTarget := flag.Float64("daily-target", 0.5, "Daily PnL target in SOL")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level (trace, debug, info, warn, error)")

	flag.Parse()

	log := newLogger(*logLevel)

	if !*useStub && *heliusEndpoint == "" {
		log.Fatal().Msg("--helius-endpoint is required (use --use-stub for fixture data)")
	}
	if !*useMemory && *postgresDSN == "" {
		log.Fatal().Msg("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if !solutil.UsableWallet(*wallet) {
		log.Fatal().Str("wallet", *wallet).Msg("--wallet is a program derived address; use a keypair wallet or a session label")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, config{
		listenAddr:    *listenAddr,
		helius:        *heliusEndpoint,
		redisAddr:     *redisAddr,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		useStub:       *useStub,
		universe:      parseUniverse(*universeFlag),
		cacheTTL:      *cacheTTL,
		wallet:        *wallet,
		startSOL:      *startSOL,
		startUSD:      *startUSD,
		dailyTarget:   *dailyTarget,
	}); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}

type config struct {
	listenAddr    string
	helius        string
	redisAddr     string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	useStub       bool
	universe      []string
	cacheTTL      time.Duration
	wallet        string
	startSOL      float64
	startUSD      float64
	dailyTarget   float64
}

func run(ctx context.Context, log zerolog.Logger, cfg config) error {
	cacheStore, closeCache, err := newCacheStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	stores, closeStores, err := newLedgerStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	archiver, closeArchive, err := newArchiver(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeArchive()

	holders, market := newDataSources(cfg, log)

	cache := signalcache.NewCache(cacheStore, cfg.cacheTTL, log)
	universe := query.NewUniverse(cfg.universe)
	service := query.NewService(holders, market, scoring.NewEngine(), cache, universe, archiver, log)

	desk := ledger.New(stores.trades, stores.portfolio, stores.holdings, stores.settlements, cfg.wallet, log)
	if err := desk.InitPortfolio(ctx, cfg.startSOL, cfg.startUSD, cfg.dailyTarget); err != nil {
		return fmt.Errorf("init portfolio: %w", err)
	}

	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Addr = cfg.listenAddr
	server := httpapi.NewServer(serverCfg, httpapi.NewHandlers(service, desk, log), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newCacheStore picks the cache backend: Redis by default, memory when the
// deployment accepts per-instance caching.
func newCacheStore(ctx context.Context, cfg config, log zerolog.Logger) (signalcache.Store, func(), error) {
	if cfg.useMemory {
		log.Info().Msg("signal cache: in-memory (per-instance)")
		return signalcache.NewMemoryStore(signalcache.DefaultRetention), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis at %s: %w", cfg.redisAddr, err)
	}

	log.Info().Str("addr", cfg.redisAddr).Msg("signal cache: redis")
	return signalcache.NewRedisStore(client, signalcache.DefaultRetention), func() { client.Close() }, nil
}

// newLedgerStores builds the trade/portfolio/holding stores and runs
// migrations on the durable path.
func newLedgerStores(ctx context.Context, cfg config, log zerolog.Logger) (*ledgerStores, func(), error) {
	if cfg.useMemory {
		trades := memory.NewTradeStore()
		portfolio := memory.NewPortfolioStore()
		holdings := memory.NewHoldingStore()
		log.Info().Msg("ledger storage: in-memory")
		return &ledgerStores{
			trades:      trades,
			portfolio:   portfolio,
			holdings:    holdings,
			settlements: memory.NewSettlementStore(trades, portfolio, holdings),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	log.Info().Msg("ledger storage: postgres")
	return &ledgerStores{
		trades:      pgstore.NewTradeStore(pool),
		portfolio:   pgstore.NewPortfolioStore(pool),
		holdings:    pgstore.NewHoldingStore(pool),
		settlements: pgstore.NewSettlementStore(pool),
	}, pool.Close, nil
}

// newArchiver starts the ClickHouse signal archive when a DSN is configured.
// Archiving is a research supplement, so absence is not an error.
func newArchiver(ctx context.Context, cfg config, log zerolog.Logger) (*query.Archiver, func(), error) {
	if cfg.clickhouseDSN == "" {
		log.Info().Msg("signal archive: disabled")
		return nil, func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	archiver := query.NewArchiver(chstore.NewSignalArchiveStore(conn), log)
	archiver.Start()
	log.Info().Msg("signal archive: clickhouse")
	return archiver, func() {
		archiver.Stop()
		conn.Close()
	}, nil
}

// newDataSources builds the guarded upstream adapters, or the fixture source
// for offline development.
func newDataSources(cfg config, log zerolog.Logger) (marketdata.HolderSource, marketdata.MarketSource) {
	if cfg.useStub {
		log.Warn().Msg("data sources: fixtures, signals are not real")
		source := stub.NewSource()
		return source, source
	}

	holders := marketdata.NewGuardedHolderSource(
		marketdata.NewHeliusHolderSource(cfg.helius),
		marketdata.DefaultGuardConfig("helius"),
	)
	market := marketdata.NewGuardedMarketSource(
		marketdata.NewDexScreenerMarketSource(),
		marketdata.DefaultGuardConfig("dexscreener"),
	)
	return holders, market
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func parseUniverse(raw string) []string {
	if raw == "" {
		return query.DefaultSeed
	}
	var tokens []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return query.DefaultSeed
	}
	return tokens
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
