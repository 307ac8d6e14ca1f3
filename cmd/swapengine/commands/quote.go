package commands

import (
	"fmt"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swapengine"
	"github.com/spf13/cobra"
)

type pairFlags struct {
	in          string
	out         string
	amount      string
	slippageBps uint16
}

func (p *pairFlags) register(cmd *cobra.Command, withAmount bool) {
	cmd.Flags().StringVar(&p.in, "in", "", "input token symbol or mint")
	cmd.Flags().StringVar(&p.out, "out", "", "output token symbol or mint")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	if withAmount {
		cmd.Flags().StringVar(&p.amount, "amount", "", "amount: base units on aggregator routes, token units on the dedicated AMM")
		cmd.Flags().Uint16Var(&p.slippageBps, "slippage-bps", 50, "slippage in bps (e.g. 100 = 1%)")
		_ = cmd.MarkFlagRequired("amount")
	}
}

func (p *pairFlags) request(cmd *cobra.Command) (swapengine.QuoteRequest, error) {
	in, err := resolveMint(cmd.Context(), p.in)
	if err != nil {
		return swapengine.QuoteRequest{}, err
	}
	out, err := resolveMint(cmd.Context(), p.out)
	if err != nil {
		return swapengine.QuoteRequest{}, err
	}
	return swapengine.QuoteRequest{
		Chain:       selectedChain(),
		InputToken:  in,
		OutputToken: out,
		Amount:      p.amount,
		SlippageBps: p.slippageBps,
	}, nil
}

func routeCmd() *cobra.Command {
	var p pairFlags
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show which backend serves a pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := p.request(cmd)
			if err != nil {
				return err
			}
			backend, err := appCtx.Engine.Route(req.Chain, req.InputToken, req.OutputToken)
			if err != nil {
				return err
			}
			fmt.Printf("%s -> %s: %s\n", label(req.InputToken), label(req.OutputToken), backend)
			return nil
		},
	}
	p.register(cmd, false)
	return cmd
}

func quoteCmd() *cobra.Command {
	var p pairFlags
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch a swap quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := p.request(cmd)
			if err != nil {
				return err
			}
			q, err := appCtx.Engine.Quote(cmd.Context(), req)
			if err != nil {
				return err
			}
			printQuote(q)
			return nil
		},
	}
	p.register(cmd, true)
	return cmd
}

func printQuote(q models.Quote) {
	fmt.Printf("chain=%s backend=%s\n", q.Chain, q.Backend)
	fmt.Printf("in=%d %s out=%d %s min_out=%d\n",
		q.InputAmount, label(q.InputToken), q.OutputAmount, label(q.OutputToken), q.MinOutputAmount)
	fmt.Printf("slippage_bps=%d price_impact_bps=%d hops=%d expires_in=%s\n",
		q.SlippageBps, q.PriceImpactBps, len(q.RoutePlan), time.Until(q.ExpiresAt).Round(time.Second))
	for i, h := range q.RoutePlan {
		fmt.Printf("  %d. %s %s -> %s\n", i+1, h.Venue, label(h.InputMint), label(h.OutputMint))
	}
}
