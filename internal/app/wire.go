package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curvelabs/bondengine/internal/auth"
	s3blob "github.com/curvelabs/bondengine/internal/blob/s3"
	"github.com/curvelabs/bondengine/internal/cache/redis"
	"github.com/curvelabs/bondengine/internal/config"
	"github.com/curvelabs/bondengine/internal/crypto"
	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/engine"
	"github.com/curvelabs/bondengine/internal/notify"
	"github.com/curvelabs/bondengine/internal/server"
	"github.com/curvelabs/bondengine/internal/server/handler"
	"github.com/curvelabs/bondengine/internal/server/ws"
	"github.com/curvelabs/bondengine/internal/service"
	"github.com/curvelabs/bondengine/internal/store/postgres"
	"github.com/curvelabs/bondengine/internal/transfer"
)

// Dependencies bundles everything the application loop needs. It is
// constructed by Wire and torn down by the returned cleanup function.
// Optional components are nil when their backing service is not configured.
type Dependencies struct {
	Engine      *engine.Engine
	Journal     *service.Journal
	Quotes      *service.QuoteService
	Snapshotter *service.Snapshotter
	Archiver    *service.Archiver
	Notifier    *notify.Notifier

	EventStore  domain.EventStore
	RateLimiter domain.RateLimiter

	Hub    *ws.Hub
	Server *server.Server
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that must
// be called on shutdown. In "ephemeral" mode the engine runs without
// postgres, redis, or S3; events are still delivered to notification sinks.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	full := strings.ToLower(cfg.Mode) == "full"

	// --- Reserve asset adapter ---
	xfer, err := buildTransfer(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: transfer: %w", err)
	}

	// --- Persistence and caches (full mode only) ---
	var (
		bondStore    domain.BondStore
		accountStore domain.AccountStore
		paramStore   domain.ParamStore
		eventStore   domain.EventStore
		quoteCache   domain.QuoteCache
		signalBus    domain.SignalBus
		lockManager  domain.LockManager
		probes       = map[string]handler.Pinger{}
	)

	if full {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		bondStore = postgres.NewBondStore(pool)
		accountStore = postgres.NewAccountStore(pool)
		paramStore = postgres.NewParamStore(pool)
		eventStore = postgres.NewEventStore(pool)
		probes["postgres"] = pgClient

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		quoteCache = redis.NewQuoteCache(redisClient)
		signalBus = redis.NewSignalBus(redisClient)
		lockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		probes["redis"] = redisClient
	}
	deps.EventStore = eventStore

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	kinds := make([]domain.EventKind, 0, len(cfg.Notify.Events))
	for _, e := range cfg.Notify.Events {
		kinds = append(kinds, domain.EventKind(strings.TrimSpace(e)))
	}
	deps.Notifier = notify.NewNotifier(senders, kinds, logger)

	// --- Event journal and sink chain ---
	journal, err := service.NewJournal(ctx, eventStore, signalBus, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: journal: %w", err)
	}
	deps.Journal = journal

	sink := service.MultiSink{journal, deps.Notifier}

	// --- Engine ---
	eng, err := engine.New(engine.Config{
		Treasury:              domain.Account(cfg.Engine.Treasury),
		NetworkFeeBasisPoints: cfg.Engine.NetworkFeeBps,
	}, xfer, auth.NewStatic(cfg.Engine.Admins), sink, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: engine: %w", err)
	}
	deps.Engine = eng

	// --- Snapshots (full mode) ---
	if full {
		deps.Snapshotter = service.NewSnapshotter(
			eng, bondStore, accountStore, paramStore, lockManager,
			cfg.Snapshot.Interval.Duration, logger,
		)
		if err := deps.Snapshotter.Rehydrate(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: rehydrate: %w", err)
		}
	}

	// --- Journal archival to S3 ---
	if full && cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = service.NewArchiver(
			eventStore, s3blob.NewWriter(s3Client), lockManager,
			cfg.Journal.SegmentSize, cfg.Journal.ArchiveInterval.Duration, logger,
		)
	}

	// --- Quotes ---
	deps.Quotes = service.NewQuoteService(eng, quoteCache, cfg.Quotes.CacheTTL.Duration, logger)

	// --- HTTP API ---
	if cfg.Server.Enabled {
		if signalBus != nil {
			deps.Hub = ws.NewHub(signalBus, service.EventChannel, logger)
		}

		handlers := server.Handlers{
			Health:   handler.NewHealthHandler(eng, probes, logger),
			Bonds:    handler.NewBondHandler(eng, logger),
			Trades:   handler.NewTradeHandler(eng, deps.Quotes, logger),
			Accounts: handler.NewAccountHandler(eng, logger),
			Admin:    handler.NewAdminHandler(eng, logger),
		}
		if eventStore != nil {
			handlers.Events = handler.NewEventsHandler(eventStore, logger)
		}

		deps.Server = server.NewServer(server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			APIKey:      cfg.Server.APIKey,
			RateLimit:   cfg.Server.RateLimit,
			RateWindow:  cfg.Server.RateWindow.Duration,
		}, handlers, deps.Hub, deps.RateLimiter, logger)
	}

	return deps, cleanup, nil
}

// buildTransfer selects the reserve asset adapter from configuration.
func buildTransfer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Transfer, error) {
	switch strings.ToLower(cfg.Transfer.Mode) {
	case "memory":
		return transfer.NewMemoryBank(), nil
	case "erc20":
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Transfer.PrivateKey,
			EncryptedKeyPath: cfg.Transfer.EncryptedKeyPath,
			KeyPassword:      cfg.Transfer.KeyPassword,
		})
		if err != nil {
			return nil, err
		}
		return transfer.NewERC20(ctx, transfer.ERC20Config{
			RPCURL:         cfg.Transfer.RPCURL,
			TokenAddress:   cfg.Transfer.TokenAddress,
			OperatorKeyHex: key,
			ChainID:        cfg.Transfer.ChainID,
			GasLimit:       cfg.Transfer.GasLimit,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown transfer mode %q", cfg.Transfer.Mode)
	}
}
