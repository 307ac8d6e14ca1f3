package commands

import (
	"fmt"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swapengine"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/spf13/cobra"
)

// swap signs with WALLET_PRIVATE_KEY and waits for confirmation.
func swapCmd() *cobra.Command {
	var (
		p           pairFlags
		priorityFee uint64
		yes         bool
	)
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote, sign, submit and confirm a swap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := appCtx.LocalWallet()
			if err != nil {
				return err
			}
			if h == nil {
				return fmt.Errorf("WALLET_PRIVATE_KEY is not set")
			}
			req, err := p.request(cmd)
			if err != nil {
				return err
			}
			if !yes {
				q, err := appCtx.Engine.Quote(cmd.Context(), req)
				if err != nil {
					return err
				}
				printQuote(q)
				fmt.Println("dry run: pass --yes to execute")
				return nil
			}

			events, unsubscribe := appCtx.Engine.Subscribe()
			defer unsubscribe()
			go func() {
				for ev := range events {
					printEvent(ev)
				}
			}()

			view, err := appCtx.Engine.ExecuteSwap(cmd.Context(), swapengine.SwapRequest{
				QuoteRequest:             req,
				PriorityFeeMicroLamports: priorityFee,
			}, h)
			if err != nil {
				if se, ok := swaperr.As(err); ok && se.Sent() {
					fmt.Printf("transaction may have landed, check %s before retrying\n", se.Signature)
				}
				return err
			}
			fmt.Printf("attempt %s %s\n", view.ID, view.Status)
			for _, sig := range view.Signatures {
				fmt.Printf("  %s\n", sig)
			}
			return nil
		},
	}
	p.register(cmd, true)
	cmd.Flags().Uint64Var(&priorityFee, "priority-fee", 0, "priority fee in micro-lamports (0 uses the chain default)")
	cmd.Flags().BoolVar(&yes, "yes", false, "execute without the dry-run quote")
	return cmd
}

func printEvent(ev models.SwapEvent) {
	line := fmt.Sprintf("[%s] %s", ev.Timestamp.Format("15:04:05"), ev.Type)
	if ev.Signature != "" {
		line += " " + ev.Signature
	}
	if ev.Message != "" {
		line += " " + ev.Message
	}
	fmt.Println(line)
}
