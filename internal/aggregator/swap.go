package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
	"github.com/hxuan190/swap-engine/internal/services"
	"github.com/hxuan190/swap-engine/internal/services/builder"
	"github.com/hxuan190/swap-engine/internal/services/priority"
	"github.com/hxuan190/swap-engine/internal/services/router"
)

var (
	ErrSignerNotConfigured = errors.New("no signer configured for execution")
	ErrJournalDisabled     = errors.New("execution journal is disabled")
)

type TokenSource interface {
	Token(ctx context.Context, mint solana.PublicKey) (domain.Token, error)
	Lookup(symbolOrMint string) (solana.PublicKey, error)
}

type QuotePlanner interface {
	Plan(ctx context.Context, intent domain.TradeIntent) (*domain.SwapPlan, error)
}

type Executor interface {
	Execute(ctx context.Context, plan *domain.SwapPlan, signer builder.Signer, slippageBps uint16) (*domain.ExecutionResult, error)
}

type TxBuilder interface {
	BuildTransaction(ctx context.Context, signer builder.Signer, req builder.LegRequest, blockhash solana.Hash) (*solana.Transaction, error)
}

type Simulator interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*domain.SimulationResult, error)
}

type BlockhashSource interface {
	GetBlockhash(ctx context.Context) (solana.Hash, uint64, error)
}

type Journal interface {
	Save(rec *domain.ExecutionRecord) error
	Get(id string) (*domain.ExecutionRecord, error)
	List(outcome string) ([]*domain.ExecutionRecord, error)
}

// TradeRequest is an unparsed trade. Mints may be registry symbols. Amount is in base
// units unless UIAmount is set, in which case it is a display amount of the fixed side.
type TradeRequest struct {
	InputMint   string
	OutputMint  string
	Amount      string
	UIAmount    bool
	SwapMode    string
	SlippageBps *uint16
	// UserPublicKey is the fee payer used for simulation when no signer is configured.
	UserPublicKey string
}

// Quote is a priced plan with its slippage bound.
type Quote struct {
	Plan        *domain.SwapPlan
	InputToken  domain.Token
	OutputToken domain.Token
	SlippageBps uint16
	// Threshold is the minimum output for ExactIn and the maximum input for ExactOut.
	Threshold *big.Int
}

func (q *Quote) Severity() router.PriceImpactSeverity {
	return router.GetPriceImpactSeverity(q.Plan.PriceImpactBps)
}

type Simulation struct {
	Quote  *Quote
	Result *domain.SimulationResult
	// ComputeUnitLimit is the limit recommended from the simulated consumption; zero when
	// the simulation failed.
	ComputeUnitLimit uint32
	// Failure explains a failed simulation.
	Failure error
}

// core holds the swap operations behind narrow interfaces; Service wires it from the
// container.
type core struct {
	tokens      TokenSource
	planner     QuotePlanner
	engine      Executor
	txBuilder   TxBuilder
	simulator   Simulator
	blockhashes BlockhashSource
	journal     Journal
	signer      builder.Signer
	logger      *services.ServiceLogger

	defaultSlippageBps uint16
	maxSlippageBps     uint16
}

func (s *core) intent(ctx context.Context, req TradeRequest) (domain.TradeIntent, domain.Token, domain.Token, error) {
	var intent domain.TradeIntent
	var in, out domain.Token

	mode, err := domain.ParseSwapMode(req.SwapMode)
	if err != nil {
		return intent, in, out, err
	}
	inputMint, err := s.tokens.Lookup(req.InputMint)
	if err != nil {
		return intent, in, out, fmt.Errorf("inputMint: %w", err)
	}
	outputMint, err := s.tokens.Lookup(req.OutputMint)
	if err != nil {
		return intent, in, out, fmt.Errorf("outputMint: %w", err)
	}
	if inputMint.Equals(outputMint) {
		return intent, in, out, domain.ErrSameMint
	}

	slippage := s.defaultSlippageBps
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}
	if slippage > s.maxSlippageBps {
		return intent, in, out, fmt.Errorf("%w: %d bps exceeds maximum %d", domain.ErrInvalidSlippage, slippage, s.maxSlippageBps)
	}

	if in, err = s.tokens.Token(ctx, inputMint); err != nil {
		return intent, in, out, fmt.Errorf("inputMint: %w", err)
	}
	if out, err = s.tokens.Token(ctx, outputMint); err != nil {
		return intent, in, out, fmt.Errorf("outputMint: %w", err)
	}

	fixed := in
	if mode == domain.ExactOut {
		fixed = out
	}
	amount, err := parseAmount(strings.TrimSpace(req.Amount), req.UIAmount, fixed.Decimals)
	if err != nil {
		return intent, in, out, err
	}

	intent = domain.TradeIntent{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		Mode:        mode,
		SlippageBps: slippage,
	}
	return intent, in, out, intent.Validate()
}

func parseAmount(raw string, ui bool, decimals uint8) (*big.Int, error) {
	if ui {
		amount, err := common.ParseDisplayAmount(raw, decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
		}
		return amount, nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, raw)
	}
	return amount, nil
}

func (s *core) Quote(ctx context.Context, req TradeRequest) (*Quote, error) {
	start := time.Now()
	q, err := s.quote(ctx, req)

	status, route := "success", "none"
	if err != nil {
		status = "error"
	} else if q.Plan.IsRouted() {
		route = "routed"
	} else {
		route = "direct"
	}
	metrics.QuoteRequests.WithLabelValues(req.SwapMode, route, status).Inc()
	metrics.QuoteDuration.WithLabelValues(req.SwapMode).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.PriceImpact.WithLabelValues(string(q.Severity())).Observe(float64(q.Plan.PriceImpactBps))
	}
	return q, err
}

func (s *core) quote(ctx context.Context, req TradeRequest) (*Quote, error) {
	intent, in, out, err := s.intent(ctx, req)
	if err != nil {
		return nil, err
	}
	plan, err := s.planner.Plan(ctx, intent)
	if err != nil {
		return nil, err
	}

	var threshold *big.Int
	if intent.Mode == domain.ExactIn {
		threshold, err = common.MinAmountOut(plan.AmountOut, intent.SlippageBps)
	} else {
		threshold, err = common.MaxAmountIn(plan.AmountIn, intent.SlippageBps)
	}
	if err != nil {
		return nil, err
	}

	return &Quote{
		Plan:        plan,
		InputToken:  in,
		OutputToken: out,
		SlippageBps: intent.SlippageBps,
		Threshold:   threshold,
	}, nil
}

// Execute plans and executes req with the configured signer. The returned result is
// non-nil whenever execution started, and has been journaled.
func (s *core) Execute(ctx context.Context, req TradeRequest) (*Quote, *domain.ExecutionResult, error) {
	if s.signer == nil {
		return nil, nil, ErrSignerNotConfigured
	}
	q, err := s.Quote(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	// a disconnecting caller must not abandon a route between legs
	res, execErr := s.engine.Execute(context.WithoutCancel(ctx), q.Plan, s.signer, q.SlippageBps)
	if res != nil && s.journal != nil {
		if err := s.journal.Save(domain.NewExecutionRecord(res, execErr)); err != nil {
			s.logger.With("execution", res.ID).Error().Err(err).Msg("failed to journal execution")
		}
	}
	return q, res, execErr
}

// Simulate builds the first leg and runs it through simulateTransaction.
func (s *core) Simulate(ctx context.Context, req TradeRequest) (*Simulation, error) {
	signer := s.signer
	if req.UserPublicKey != "" {
		owner, err := solana.PublicKeyFromBase58(req.UserPublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: userPublicKey", builder.ErrInvalidSigner)
		}
		signer = unsignedSigner{key: owner}
	}
	if signer == nil {
		return nil, ErrSignerNotConfigured
	}

	q, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	legReq, err := builder.NewLegRequest(q.Plan.Legs[0], q.SlippageBps, true)
	if err != nil {
		return nil, err
	}
	blockhash, _, err := s.blockhashes.GetBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}
	tx, err := s.txBuilder.BuildTransaction(ctx, signer, legReq, blockhash)
	if err != nil {
		return nil, err
	}

	metrics.SimulationRequests.Inc()
	res, err := s.simulator.SimulateTransaction(ctx, tx)
	if err != nil {
		metrics.SimulationFailures.WithLabelValues("rpc").Inc()
		return nil, err
	}
	sim := &Simulation{Quote: q, Result: res, Failure: builder.ValidateSwapSimulation(res)}
	switch {
	case res.Success:
		if res.ComputeUnitsConsumed > 0 {
			metrics.ComputeUnits.Observe(float64(res.ComputeUnitsConsumed))
		}
		sim.ComputeUnitLimit = priority.UnitsWithBuffer(res.ComputeUnitsConsumed)
	case res.InsufficientFunds:
		metrics.SimulationFailures.WithLabelValues("insufficient_funds").Inc()
	case res.SlippageExceeded:
		metrics.SimulationFailures.WithLabelValues("slippage_exceeded").Inc()
	default:
		metrics.SimulationFailures.WithLabelValues("unknown").Inc()
	}
	return sim, nil
}

func (s *core) Execution(id string) (*domain.ExecutionRecord, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.Get(id)
}

func (s *core) Executions(outcome string) ([]*domain.ExecutionRecord, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.List(outcome)
}

func (s *core) Token(ctx context.Context, symbolOrMint string) (domain.Token, error) {
	mint, err := s.tokens.Lookup(symbolOrMint)
	if err != nil {
		return domain.Token{}, err
	}
	return s.tokens.Token(ctx, mint)
}

// unsignedSigner lets simulation build a transaction for a wallet whose key is not
// held here. Simulation runs with signature verification off.
type unsignedSigner struct {
	key solana.PublicKey
}

func (s unsignedSigner) PublicKey() solana.PublicKey {
	return s.key
}

func (s unsignedSigner) Sign([]byte) (solana.Signature, error) {
	return solana.Signature{}, nil
}
