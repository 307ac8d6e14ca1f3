// Package app assembles the swap engine and its collaborators from config.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/broadcast"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/cache"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/catalog"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/config"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/deserialize"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/flags"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/jupiter"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/quote"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/rpc"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/solar"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swapengine"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txbuild"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/wallet"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// backend quotes and builds for one swap backend.
type backend interface {
	quote.Source
	txbuild.Builder
}

type App struct {
	Config  *config.Config
	Engine  *swapengine.Engine
	Catalog *catalog.Catalog
	// Flags and Events are nil when no Redis is configured.
	Flags  *flags.Store
	Events *cache.EventPublisher

	redis  *redis.Client
	logger *logrus.Logger
}

// NewLogger builds the process logger at level, falling back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// New wires one pipeline per configured chain. It does not load the token
// catalog; call Catalog.Refresh once the process is up.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}

	h := httpx.New(httpx.Config{
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	a := &App{Config: cfg, logger: logger}
	var searcher catalog.Searcher

	pipelines := make([]*swapengine.Pipeline, 0, len(cfg.Chains))
	for _, name := range cfg.ChainNames() {
		ch := cfg.Chains[name]
		agg, err := newAggregator(ch, h)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", name, err)
		}
		if jc, ok := agg.(*jupiter.Client); ok && searcher == nil {
			searcher = jc
		}
		pipelines = append(pipelines, a.newPipeline(models.Chain(name), ch, agg, h))
	}

	a.Catalog = catalog.New(catalog.Config{
		Providers: []catalog.ListProvider{
			catalog.NewJupiterProvider(cfg.TokenLists.Jupiter, h),
			catalog.NewSolarProvider(cfg.TokenLists.Solar, h),
			catalog.NewDeserializeProvider(cfg.TokenLists.Deserialize, h),
		},
		Searcher: searcher,
		Logger:   logger,
	})

	engineCfg := swapengine.Config{
		Pipelines:      pipelines,
		DefaultChain:   models.Chain(cfg.DefaultChain),
		MaxSlippageBps: cfg.MaxSlippageBps,
		Logger:         logger,
	}

	if cfg.RedisAddr != "" {
		if err := a.connectRedis(ctx); err != nil {
			return nil, err
		}
		engineCfg.Gate = a.Flags
		engineCfg.Sink = a.Events
	}

	engine, err := swapengine.NewEngine(engineCfg)
	if err != nil {
		_ = a.closeRedis()
		return nil, err
	}
	a.Engine = engine
	return a, nil
}

func newAggregator(ch *config.ChainConfig, h *httpx.Client) (backend, error) {
	switch ch.Aggregator {
	case config.AggregatorJupiter:
		return jupiter.NewClient(ch.AggregatorURL, h), nil
	case config.AggregatorDeserialize:
		return deserialize.NewClient(ch.AggregatorURL, h), nil
	}
	return nil, fmt.Errorf("unknown aggregator %q", ch.Aggregator)
}

func (a *App) newPipeline(chain models.Chain, ch *config.ChainConfig, agg backend, h *httpx.Client) *swapengine.Pipeline {
	cfg := a.Config
	node := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      ch.RPCURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       a.logger,
	})

	sources := map[models.Backend]quote.Source{models.BackendAggregator: agg}
	builders := map[models.Backend]txbuild.Builder{models.BackendAggregator: agg}
	if ch.DedicatedAmmURL != "" {
		amm := solar.NewClient(ch.DedicatedAmmURL, h)
		sources[models.BackendDedicatedAmm] = amm
		builders[models.BackendDedicatedAmm] = amm
	}

	signerCfg := wallet.SignerConfig{Logger: a.logger, Commitment: cfg.Commitment}
	if ch.RefreshBlockhash {
		signerCfg.Blockhash = node
	}

	var ws broadcast.SignatureWaiter
	if ch.WSURL != "" {
		ws = rpc.NewWSClient(ch.WSURL, a.logger)
	}

	a.logger.WithFields(logrus.Fields{
		"chain":      chain,
		"rpc":        ch.RPCURL,
		"aggregator": ch.Aggregator,
		"amm":        ch.DedicatedAmmURL != "",
		"ws":         ch.WSURL != "",
	}).Debug("chain pipeline configured")

	return &swapengine.Pipeline{
		Chain:           chain,
		DesignatedToken: ch.DesignatedToken,
		Quotes:          quote.NewClient(quote.Config{Chain: chain, TTL: cfg.QuoteTTL, Logger: a.logger}, sources),
		Builder:         txbuild.NewRequester(txbuild.Config{Logger: a.logger}, builders),
		Signer:          wallet.NewSigner(signerCfg),
		Broadcaster: broadcast.New(broadcast.Config{
			Node:              node,
			WS:                ws,
			Logger:            a.logger,
			RetryBackoff:      cfg.RetryBackoff,
			MaxSubmitAttempts: cfg.SubmitAttempts,
			Preflight:         !cfg.SkipPreflight,
			Commitment:        cfg.Commitment,
			ConfirmTimeout:    cfg.ConfirmTimeout,
		}),
		PriorityFee: ch.PriorityFee,
	}
}

func (a *App) connectRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect redis: %w", err)
	}

	store, err := flags.NewStore(client)
	if err != nil {
		_ = client.Close()
		return err
	}
	pub, err := cache.NewEventPublisher(client, a.logger)
	if err != nil {
		_ = client.Close()
		return err
	}
	a.redis = client
	a.Flags = store
	a.Events = pub
	return nil
}

// LoadCatalog refreshes the token catalog and logs provider warnings.
func (a *App) LoadCatalog(ctx context.Context) {
	for _, w := range a.Catalog.Refresh(ctx) {
		werr := w.AsError()
		a.logger.WithError(werr).WithFields(logrus.Fields{
			"provider": w.Provider,
			"kind":     werr.Kind,
		}).Warn("token list unavailable")
	}
}

// RefreshCatalogEvery reloads the catalog on a ticker until ctx ends.
func (a *App) RefreshCatalogEvery(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.LoadCatalog(ctx)
		}
	}
}

// LocalWallet returns the keypair from WALLET_PRIVATE_KEY, or nil when none
// is configured.
func (a *App) LocalWallet() (*wallet.Handle, error) {
	if a.Config.WalletPrivateKey == "" {
		return nil, nil
	}
	return wallet.NewLocalKeypair(a.Config.WalletPrivateKey)
}

// Close drains running attempts, then releases Redis.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.Engine != nil {
		err = a.Engine.Close(ctx)
	}
	if cerr := a.closeRedis(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *App) closeRedis() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
