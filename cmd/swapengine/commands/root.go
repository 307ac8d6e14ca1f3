package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/app"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/config"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	chain    string
	logLevel string
	appCtx   *app.App
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func Execute() error {
	root := &cobra.Command{
		Use:          "swapengine",
		Short:        "Quote and execute token swaps on Solana and Eclipse",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnv()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			a, err := app.New(cmd.Context(), cfg, app.NewLogger(cfg.LogLevel))
			if err != nil {
				return err
			}
			appCtx = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), appCtx.Config.ConfirmTimeout+10*time.Second)
			defer cancel()
			return appCtx.Close(ctx)
		},
	}

	root.PersistentFlags().StringVar(&chain, "chain", "", "chain to use (default from DEFAULT_CHAIN)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	root.AddCommand(chainsCmd(), tokensCmd(), routeCmd(), quoteCmd(), swapCmd())
	// Ctrl+C before submission cancels the swap; after it the attempt is
	// left to confirm.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func selectedChain() models.Chain {
	return models.Chain(strings.TrimSpace(chain))
}

// resolveMint accepts a mint address or a symbol. Symbols resolve through
// the well-known list first, then the loaded catalog.
func resolveMint(ctx context.Context, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if _, err := solana.PublicKeyFromBase58(arg); err == nil {
		return arg, nil
	}
	for mint, sym := range constants.TokenSymbols {
		if strings.EqualFold(sym, arg) {
			return mint, nil
		}
	}

	if appCtx.Catalog.Len() == 0 {
		appCtx.LoadCatalog(ctx)
	}
	for _, t := range appCtx.Catalog.FindByQuery(arg) {
		if strings.EqualFold(t.Symbol, arg) {
			return t.Address, nil
		}
	}
	return "", fmt.Errorf("unknown token %q", arg)
}

// label prints a mint as its symbol when one is known.
func label(mint string) string {
	if appCtx != nil {
		if t, ok := appCtx.Catalog.Lookup(mint); ok && t.Symbol != "" {
			return t.Symbol
		}
	}
	if sym, ok := constants.TokenSymbols[mint]; ok {
		return sym
	}
	return mint
}
