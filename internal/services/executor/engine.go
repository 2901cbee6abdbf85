package executor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
	"github.com/hxuan190/swap-engine/internal/services/builder"
	"github.com/hxuan190/swap-engine/internal/services/confirm"
)

type Repricer interface {
	RepriceLeg(ctx context.Context, leg domain.QuotedLeg, amount *big.Int) (*domain.QuotedLeg, error)
}

type TxBuilder interface {
	BuildTransaction(ctx context.Context, signer builder.Signer, req builder.LegRequest, blockhash solana.Hash) (*solana.Transaction, error)
}

type Submitter interface {
	SubmitAndConfirm(ctx context.Context, build confirm.TxFactory) (*domain.Confirmation, error)
}

type Settlement interface {
	SettledAmount(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) (*big.Int, error)
}

// Engine executes priced plans leg by leg. Leg 2 of a routed plan is only built
// once leg 1 has reached Confirmed.
type Engine struct {
	repricer   Repricer
	builder    TxBuilder
	submitter  Submitter
	settlement Settlement
}

func NewEngine(repricer Repricer, txBuilder TxBuilder, submitter Submitter, settlement Settlement) *Engine {
	return &Engine{
		repricer:   repricer,
		builder:    txBuilder,
		submitter:  submitter,
		settlement: settlement,
	}
}

// Execute always returns a non-nil result. Errors from leg 1 are *domain.LegError;
// once leg 1 is confirmed, any leg 2 error is a *domain.PartialRouteError.
func (e *Engine) Execute(ctx context.Context, plan *domain.SwapPlan, signer builder.Signer, slippageBps uint16) (*domain.ExecutionResult, error) {
	res := &domain.ExecutionResult{
		ID:        uuid.NewString(),
		Plan:      plan,
		Outcome:   domain.OutcomeNone,
		StartedAt: time.Now(),
	}
	err := e.execute(ctx, res, signer, slippageBps)
	res.FinishedAt = time.Now()

	route := "direct"
	if plan != nil && plan.IsRouted() {
		route = "routed"
	}
	metrics.Executions.WithLabelValues(route, string(res.Outcome)).Inc()
	metrics.ExecutionDuration.WithLabelValues(route).Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())

	logEvent := log.Info()
	if err != nil {
		logEvent = log.Warn().Err(err)
	}
	logEvent.
		Str("id", res.ID).
		Str("route", route).
		Str("outcome", string(res.Outcome)).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
		Msg("[ExecutionEngine] execution finished")
	return res, err
}

func (e *Engine) execute(ctx context.Context, res *domain.ExecutionResult, signer builder.Signer, slippageBps uint16) error {
	plan := res.Plan
	if plan == nil {
		return domain.ErrMalformedPlan
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	if slippageBps >= common.MaxBps {
		return domain.ErrInvalidSlippage
	}
	if signer == nil || signer.PublicKey().IsZero() {
		return builder.ErrInvalidSigner
	}

	req1, err := builder.NewLegRequest(plan.Legs[0], slippageBps, true)
	if err != nil {
		return &domain.LegError{Leg: 1, Err: err}
	}
	leg1, err := e.runLeg(ctx, 1, req1, signer)
	res.Legs = append(res.Legs, *leg1)
	if err != nil {
		return &domain.LegError{Leg: 1, Err: err}
	}

	if !plan.IsRouted() {
		res.Legs[0].Settled = e.settled(ctx, leg1.Signature, signer.PublicKey(), plan.Legs[0].OutputMint)
		res.Outcome = domain.OutcomeCompleted
		return nil
	}

	req2, settled, err := e.prepareSecondLeg(ctx, plan, req1, leg1.Signature, signer.PublicKey(), slippageBps)
	res.Legs[0].Settled = settled
	if err != nil {
		res.Legs = append(res.Legs, domain.LegExecution{
			Index:  2,
			Leg:    plan.Legs[1],
			Status: domain.ConfirmationStatus{State: domain.StateFailed, Reason: err.Error()},
			Err:    err,
		})
		return e.partial(res, leg1.Signature, err)
	}

	leg2, err := e.runLeg(ctx, 2, req2, signer)
	res.Legs = append(res.Legs, *leg2)
	if err != nil {
		return e.partial(res, leg1.Signature, err)
	}
	res.Legs[1].Settled = e.settled(ctx, leg2.Signature, signer.PublicKey(), plan.Legs[1].OutputMint)
	res.Outcome = domain.OutcomeCompleted
	return nil
}

func (e *Engine) partial(res *domain.ExecutionResult, leg1 solana.Signature, cause error) error {
	res.Outcome = domain.OutcomePartial
	metrics.PartialRoutes.Inc()
	log.Error().
		Err(cause).
		Str("id", res.ID).
		Str("leg1", leg1.String()).
		Msg("[ExecutionEngine] route partially executed, follow-up required")
	return &domain.PartialRouteError{
		Leg1Signature: leg1,
		Cause:         &domain.LegError{Leg: 2, Err: cause},
	}
}

// prepareSecondLeg sizes leg 2 from what leg 1 actually delivered and re-prices it
// against a fresh pool read. The returned amount is leg 1's settled output, when known.
func (e *Engine) prepareSecondLeg(
	ctx context.Context,
	plan *domain.SwapPlan,
	req1 builder.LegRequest,
	leg1Sig solana.Signature,
	owner solana.PublicKey,
	slippageBps uint16,
) (builder.LegRequest, *big.Int, error) {
	quoted := plan.Legs[1]
	settled := e.settled(ctx, leg1Sig, owner, plan.Legs[0].OutputMint)

	switch quoted.Mode {
	case domain.ExactIn:
		amountIn := settled
		if amountIn == nil {
			// the swap guarantees at least the minimum
			amountIn = req1.Threshold
		}
		minOut, err := common.MinAmountOut(plan.AmountOut, slippageBps)
		if err != nil {
			return builder.LegRequest{}, settled, err
		}
		repriced, err := e.repricer.RepriceLeg(ctx, quoted, amountIn)
		if err != nil {
			return builder.LegRequest{}, settled, err
		}
		if repriced.AmountOut.Cmp(minOut) < 0 {
			return builder.LegRequest{}, settled, fmt.Errorf("%w: repriced output %s below minimum %s",
				domain.ErrSlippageExceeded, repriced.AmountOut, minOut)
		}
		return builder.LegRequest{Leg: *repriced, Amount: repriced.AmountIn, Threshold: minOut}, settled, nil

	case domain.ExactOut:
		available := settled
		if available == nil {
			// exact-output swaps deliver the requested amount or fail
			available = plan.Legs[0].AmountOut
		}
		repriced, err := e.repricer.RepriceLeg(ctx, quoted, quoted.AmountOut)
		if err != nil {
			return builder.LegRequest{}, settled, err
		}
		if repriced.AmountIn.Cmp(available) > 0 {
			return builder.LegRequest{}, settled, fmt.Errorf("%w: leg 2 needs %s, leg 1 delivered %s",
				domain.ErrSlippageExceeded, repriced.AmountIn, available)
		}
		return builder.LegRequest{Leg: *repriced, Amount: repriced.AmountOut, Threshold: available}, settled, nil

	default:
		return builder.LegRequest{}, settled, domain.ErrInvalidSwapMode
	}
}

func (e *Engine) runLeg(ctx context.Context, index int, req builder.LegRequest, signer builder.Signer) (*domain.LegExecution, error) {
	leg := &domain.LegExecution{
		Index:     index,
		Leg:       req.Leg,
		Threshold: req.Threshold,
	}

	conf, err := e.submitter.SubmitAndConfirm(ctx, func(ctx context.Context, blockhash solana.Hash) (*solana.Transaction, error) {
		return e.builder.BuildTransaction(ctx, signer, req, blockhash)
	})
	if conf != nil {
		leg.Signature = conf.Signature
		leg.Status = conf.Status
	}
	if err != nil {
		leg.Err = err
		return leg, err
	}

	log.Info().
		Int("leg", index).
		Str("signature", leg.Signature.String()).
		Str("pool", req.Leg.Pool.Address.String()).
		Msg("[ExecutionEngine] leg confirmed")
	return leg, nil
}

// settled returns nil when the amount cannot be read.
func (e *Engine) settled(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) *big.Int {
	if e.settlement == nil {
		return nil
	}
	amount, err := e.settlement.SettledAmount(ctx, sig, owner, mint)
	if err != nil {
		log.Warn().Err(err).Str("signature", sig.String()).Msg("[ExecutionEngine] settled amount unavailable")
		return nil
	}
	return amount
}
