// Package execution builds, signs and simulates pump.fun buy transactions.
package execution

import (
	"context"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/sirupsen/logrus"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/pumpfun"
	"pump-sniper/internal/solana"
)

// ErrBuildFailure wraps every error that prevents a signed transaction.
var ErrBuildFailure = errors.New("buy transaction build failed")

// AccountLookup reports whether the associated token account of owner for mint exists.
type AccountLookup interface {
	Exists(ctx context.Context, owner, mint string) (bool, error)
}

// Simulator dry-runs a signed transaction.
type Simulator interface {
	Simulate(ctx context.Context, tx []byte) (*domain.SimulationReport, error)
}

// Signer signs transaction messages. The private key never leaves it.
type Signer interface {
	PublicKey() solanago.PublicKey
	Sign(message []byte) (solanago.Signature, error)
}

// BlockhashSource provides a recent blockhash.
type BlockhashSource interface {
	LatestBlockhash(ctx context.Context) (solanago.Hash, error)
}

// Config controls optional instructions and simulation.
type Config struct {
	ComputeUnitLimit uint32 // 0 omits the instruction
	ComputeUnitPrice uint64 // micro-lamports, 0 omits the instruction
	Simulate         bool
}

// Result is a signed buy transaction.
type Result struct {
	Transaction       []byte // wire format
	Signature         solanago.Signature
	Buyer             solanago.PublicKey
	BuyerTokenAccount solanago.PublicKey
	CreatedATA        bool
	Blockhash         solanago.Hash
	Simulation        *domain.SimulationReport // nil when not simulated
}

// Builder turns buy plans into signed transactions. It is safe for concurrent use.
type Builder struct {
	cfg       Config
	signer    Signer
	lookup    AccountLookup
	blockhash BlockhashSource
	simulator Simulator
	log       *logrus.Entry
}

// BuilderOption configures Builder.
type BuilderOption func(*Builder)

// WithSimulator sets the simulator used when Config.Simulate is true.
func WithSimulator(s Simulator) BuilderOption {
	return func(b *Builder) {
		b.simulator = s
	}
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(log *logrus.Entry) BuilderOption {
	return func(b *Builder) {
		b.log = log
	}
}

// NewBuilder creates a builder.
func NewBuilder(cfg Config, signer Signer, lookup AccountLookup, blockhash BlockhashSource, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:       cfg,
		signer:    signer,
		lookup:    lookup,
		blockhash: blockhash,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithField("component", "builder")
	return b
}

func buildErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrBuildFailure, step, err)
}

// Build compiles, signs and optionally simulates the buy transaction of plan.
// A failed simulation is reported in the result and is not an error.
func (b *Builder) Build(ctx context.Context, plan domain.BuyPlan) (*Result, error) {
	if plan.MinTokensOut == 0 {
		return nil, buildErr("validate plan", errors.New("min tokens out is zero"))
	}
	if plan.AmountIn == 0 {
		return nil, buildErr("validate plan", errors.New("amount in is zero"))
	}
	mint, err := solanago.PublicKeyFromBase58(plan.Token.Mint)
	if err != nil {
		return nil, buildErr("parse mint", err)
	}

	buyer := b.signer.PublicKey()
	ata, _, err := solanago.FindAssociatedTokenAddress(buyer, mint)
	if err != nil {
		return nil, buildErr("derive buyer token account", err)
	}

	exists, err := b.lookup.Exists(ctx, buyer.String(), mint.String())
	if err != nil {
		return nil, buildErr("look up buyer token account", err)
	}

	associated := plan.Token.AssociatedBondingCurve
	if associated == "" {
		associated, err = solana.FindAssociatedTokenAddress(plan.Token.BondingCurve, plan.Token.Mint)
		if err != nil {
			return nil, buildErr("derive associated bonding curve", err)
		}
	}

	var instructions []solanago.Instruction
	if b.cfg.ComputeUnitLimit > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(b.cfg.ComputeUnitLimit).Build())
	}
	if b.cfg.ComputeUnitPrice > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(b.cfg.ComputeUnitPrice).Build())
	}
	if !exists {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(buyer, buyer, mint).Build())
	}

	buy, err := pumpfun.NewBuyInstruction(pumpfun.BuyAccounts{
		Mint:                   plan.Token.Mint,
		BondingCurve:           plan.Token.BondingCurve,
		AssociatedBondingCurve: associated,
		BuyerTokenAccount:      ata.String(),
		Buyer:                  buyer.String(),
	}, plan.MinTokensOut, plan.AmountIn)
	if err != nil {
		return nil, buildErr("buy instruction", err)
	}
	instructions = append(instructions, buy)

	blockhash, err := b.blockhash.LatestBlockhash(ctx)
	if err != nil {
		return nil, buildErr("latest blockhash", err)
	}

	tx, err := solanago.NewTransaction(instructions, blockhash, solanago.TransactionPayer(buyer))
	if err != nil {
		return nil, buildErr("compile transaction", err)
	}
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, buildErr("serialize message", err)
	}
	sig, err := b.signer.Sign(message)
	if err != nil {
		return nil, buildErr("sign", err)
	}
	tx.Signatures = []solanago.Signature{sig}

	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, buildErr("serialize transaction", err)
	}

	result := &Result{
		Transaction:       wire,
		Signature:         sig,
		Buyer:             buyer,
		BuyerTokenAccount: ata,
		CreatedATA:        !exists,
		Blockhash:         blockhash,
	}

	if b.cfg.Simulate && b.simulator != nil {
		report, err := b.simulator.Simulate(ctx, wire)
		if err != nil {
			report = &domain.SimulationReport{Err: err.Error()}
		}
		result.Simulation = report
	}

	b.log.WithFields(logrus.Fields{
		"session_id":  plan.SessionID,
		"mint":        plan.Token.Mint,
		"signature":   sig.String(),
		"created_ata": !exists,
		"bytes":       len(wire),
	}).Debug("buy transaction built")

	return result, nil
}
