package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"pump-sniper/internal/config"
	"pump-sniper/internal/decision"
	"pump-sniper/internal/price"
	"pump-sniper/internal/pumpfun"
	"pump-sniper/internal/solana"
)

func main() {
	// Parse flags
	envFile := flag.String("env-file", ".env", "Path to .env file")
	mint := flag.String("mint", "", "Token mint address (required)")
	amount := flag.Uint64("amount", 0, "Buy amount in lamports (default BUY_LAMPORTS)")
	slippage := flag.Uint64("slippage-bps", 0, "Slippage in basis points (default SLIPPAGE_BPS)")
	solPrice := flag.Float64("sol-price", 0, "SOL/USD price, 0 fetches from CoinGecko")
	flag.Parse()

	if *mint == "" {
		fmt.Fprintln(os.Stderr, "Error: --mint is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	if err := cfg.ValidateRPC(); err != nil {
		fatalf("Error: %v", err)
	}

	req := request{
		Mint:        *mint,
		AmountIn:    cfg.BuyLamports,
		SlippageBps: cfg.SlippageBps,
		Threshold:   cfg.MinMarketCapUSD,
	}
	if *amount > 0 {
		req.AmountIn = *amount
	}
	if *slippage > 0 {
		req.SlippageBps = *slippage
	}

	var oracle price.Oracle = price.Static(*solPrice)
	if *solPrice <= 0 {
		oracle = price.NewCoinGecko(cfg.CoinGeckoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rpc := solana.NewHTTPClient(cfg.RPCURL())
	if err := inspect(ctx, rpc, oracle, req, os.Stdout); err != nil {
		fatalf("Error: %v", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type request struct {
	Mint        string
	AmountIn    uint64
	SlippageBps uint64
	Threshold   float64
}

// errCurveNotFound is returned when the bonding curve account does not exist.
var errCurveNotFound = errors.New("bonding curve account not found")

// inspect fetches the bonding curve of req.Mint and prints its state,
// market cap evaluation and buy quote to w.
func inspect(ctx context.Context, rpc solana.RPCClient, oracle price.Oracle, req request, w io.Writer) error {
	curve, err := pumpfun.DeriveBondingCurve(req.Mint)
	if err != nil {
		return err
	}

	info, err := rpc.GetAccountInfo(ctx, curve)
	if err != nil {
		return fmt.Errorf("get account %s: %w", curve, err)
	}
	if info == nil {
		return fmt.Errorf("%w: %s", errCurveNotFound, curve)
	}
	data, err := info.DecodeData()
	if err != nil {
		return err
	}
	state, err := pumpfun.DecodeCurve(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Mint:                   %s\n", req.Mint)
	fmt.Fprintf(w, "Bonding curve:          %s\n", curve)
	fmt.Fprintf(w, "Virtual token reserves: %d\n", state.VirtualTokenReserves)
	fmt.Fprintf(w, "Virtual SOL reserves:   %d\n", state.VirtualSolReserves)
	fmt.Fprintf(w, "Real token reserves:    %d\n", state.RealTokenReserves)
	fmt.Fprintf(w, "Real SOL reserves:      %d\n", state.RealSolReserves)
	fmt.Fprintf(w, "Token total supply:     %d\n", state.TokenTotalSupply)
	fmt.Fprintf(w, "Complete:               %t\n", state.Complete)
	fmt.Fprintf(w, "Creator:                %s\n", state.Creator)

	solUSD, err := oracle.Price(ctx)
	if err != nil {
		fmt.Fprintf(w, "Market cap:             unavailable (%v)\n", err)
	} else {
		res := decision.NewEvaluator(req.Threshold, decision.WithSkipComplete()).Evaluate(*state, solUSD)
		fmt.Fprintf(w, "SOL/USD:                %.2f\n", solUSD)
		fmt.Fprintf(w, "Market cap (USD):       %.2f\n", res.MarketCapUSD)
		fmt.Fprintf(w, "Eligible:               %t (%s)\n", res.Eligible, res.Reason)
	}

	q, err := pumpfun.QuoteBuy(*state, req.AmountIn, req.SlippageBps)
	if err != nil {
		fmt.Fprintf(w, "Quote:                  unavailable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(w, "Quote for %d lamports: %d tokens, min %d at %d bps\n",
		q.AmountIn, q.TokensOut, q.MinTokensOut, q.SlippageBps)
	return nil
}
