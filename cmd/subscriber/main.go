// ============================================================================
// cmd/subscriber/main.go - follows swap attempt events published to Redis
// ============================================================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/app"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/cache"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("redis", "localhost:6379", "redis address")
	attempt := flag.String("attempt", "", "follow a single attempt id")
	flag.Parse()

	logger := app.NewLogger("info")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down subscriber")
		cancel()
	}()

	pub, err := cache.NewEventPublisher(redis.NewClient(&redis.Options{Addr: *addr}), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create subscriber")
	}
	defer pub.Close()

	if err := pub.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	channel := constants.PubSubChannelSwapEvents
	if *attempt != "" {
		channel = cache.AttemptChannel(*attempt)
	}

	err = pub.Subscribe(ctx, channel, func(ev models.SwapEvent) {
		entry := logger.WithFields(logrus.Fields{
			"attempt": ev.AttemptID,
			"chain":   ev.Chain,
			"backend": ev.Backend,
			"pair":    ev.TokenIn + "->" + ev.TokenOut,
		})
		if ev.Signature != "" {
			entry = entry.WithField("signature", ev.Signature)
		}
		if ev.Type == models.EventFailed {
			entry.WithField("kind", ev.ErrorKind).Warn(ev.Message)
			return
		}
		entry.Info(string(ev.Type))
	})
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("subscription ended")
	}
}
