package router

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/services/curve"
)

// PoolSource returns a fresh pool snapshot, or nil when the pair has no pool.
type PoolSource interface {
	ResolvePool(ctx context.Context, a, b solana.PublicKey) (*domain.Pool, error)
}

// Planner turns a trade intent into a priced plan: a direct pool when one exists,
// otherwise two legs through a single route token.
type Planner struct {
	pools      PoolSource
	routeToken solana.PublicKey
}

func NewPlanner(pools PoolSource, routeToken solana.PublicKey) *Planner {
	return &Planner{pools: pools, routeToken: routeToken}
}

func (p *Planner) RouteToken() solana.PublicKey {
	return p.routeToken
}

func (p *Planner) Plan(ctx context.Context, intent domain.TradeIntent) (*domain.SwapPlan, error) {
	return p.PlanWithRouteToken(ctx, intent, p.routeToken)
}

// PlanWithRouteToken never compares a direct quote with a routed one: if the direct
// pool exists it is used.
func (p *Planner) PlanWithRouteToken(ctx context.Context, intent domain.TradeIntent, routeToken solana.PublicKey) (*domain.SwapPlan, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	direct, err := p.pools.ResolvePool(ctx, intent.InputMint, intent.OutputMint)
	if err != nil {
		return nil, fmt.Errorf("resolve direct pool: %w", err)
	}
	if direct != nil {
		leg, err := PriceLeg(direct, intent.Mode, intent.InputMint, intent.OutputMint, intent.Amount)
		if err != nil {
			return nil, &domain.LegError{Leg: 1, Err: err}
		}
		plan := newPlan(intent, *leg)
		log.Debug().
			Str("pool", direct.Address.String()).
			Str("amountIn", plan.AmountIn.String()).
			Str("amountOut", plan.AmountOut.String()).
			Msg("[QuotePlanner] direct plan")
		return plan, nil
	}

	if routeToken.IsZero() || routeToken.Equals(intent.InputMint) || routeToken.Equals(intent.OutputMint) {
		return nil, fmt.Errorf("%w: no direct pool for %s/%s", domain.ErrNoRouteAvailable, intent.InputMint, intent.OutputMint)
	}

	first, err := p.pools.ResolvePool(ctx, intent.InputMint, routeToken)
	if err != nil {
		return nil, &domain.LegError{Leg: 1, Err: fmt.Errorf("resolve pool: %w", err)}
	}
	second, err := p.pools.ResolvePool(ctx, routeToken, intent.OutputMint)
	if err != nil {
		return nil, &domain.LegError{Leg: 2, Err: fmt.Errorf("resolve pool: %w", err)}
	}
	if first == nil || second == nil {
		return nil, fmt.Errorf("%w: via %s", domain.ErrNoRouteAvailable, routeToken)
	}

	var leg1, leg2 *domain.QuotedLeg
	switch intent.Mode {
	case domain.ExactIn:
		// forward from the fixed input
		if leg1, err = PriceLeg(first, domain.ExactIn, intent.InputMint, routeToken, intent.Amount); err != nil {
			return nil, &domain.LegError{Leg: 1, Err: err}
		}
		if leg2, err = PriceLeg(second, domain.ExactIn, routeToken, intent.OutputMint, leg1.AmountOut); err != nil {
			return nil, &domain.LegError{Leg: 2, Err: err}
		}
	case domain.ExactOut:
		// backward from the fixed output
		if leg2, err = PriceLeg(second, domain.ExactOut, routeToken, intent.OutputMint, intent.Amount); err != nil {
			return nil, &domain.LegError{Leg: 2, Err: err}
		}
		if leg1, err = PriceLeg(first, domain.ExactOut, intent.InputMint, routeToken, leg2.AmountIn); err != nil {
			return nil, &domain.LegError{Leg: 1, Err: err}
		}
	}

	plan := newPlan(intent, *leg1, *leg2)
	log.Debug().
		Str("route", routeToken.String()).
		Str("amountIn", plan.AmountIn.String()).
		Str("amountOut", plan.AmountOut.String()).
		Uint16("impactBps", plan.PriceImpactBps).
		Msg("[QuotePlanner] routed plan")
	return plan, nil
}

// RepriceLeg reads the leg's pool again and prices amount in the leg's mode.
func (p *Planner) RepriceLeg(ctx context.Context, leg domain.QuotedLeg, amount *big.Int) (*domain.QuotedLeg, error) {
	pool, err := p.pools.ResolvePool(ctx, leg.InputMint, leg.OutputMint)
	if err != nil {
		return nil, fmt.Errorf("resolve pool: %w", err)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNoPoolFound, leg.InputMint, leg.OutputMint)
	}
	return PriceLeg(pool, leg.Mode, leg.InputMint, leg.OutputMint, amount)
}

// PriceLeg evaluates the curve for one pool. amount is the input for ExactIn and the
// output for ExactOut.
func PriceLeg(pool *domain.Pool, mode domain.SwapMode, inputMint, outputMint solana.PublicKey, amount *big.Int) (*domain.QuotedLeg, error) {
	if !pool.SwapEnabled() {
		return nil, fmt.Errorf("%w: %s", domain.ErrPoolDisabled, pool.Address)
	}
	if !pool.OpenAt(time.Now()) {
		return nil, fmt.Errorf("%w: %s opens at %d", domain.ErrPoolDisabled, pool.Address, pool.OpenTime)
	}
	if !pool.Contains(outputMint) {
		return nil, domain.ErrMintNotInPool
	}
	aToB, err := pool.Direction(inputMint)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := pool.Reserves(inputMint)
	if err != nil {
		return nil, err
	}

	q, err := curve.Price(mode, reserveIn, reserveOut, pool.FeeRate, amount)
	if err != nil {
		return nil, err
	}

	return &domain.QuotedLeg{
		Pool:           pool,
		Mode:           mode,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		AmountIn:       q.AmountIn,
		AmountOut:      q.AmountOut,
		Fee:            q.Fee,
		AToB:           aToB,
		PriceImpactBps: CalculatePriceImpact(reserveIn, reserveOut, q.AmountIn, q.AmountOut, q.Fee),
	}, nil
}

func newPlan(intent domain.TradeIntent, legs ...domain.QuotedLeg) *domain.SwapPlan {
	impacts := make([]uint16, len(legs))
	for i, leg := range legs {
		impacts[i] = leg.PriceImpactBps
	}
	return &domain.SwapPlan{
		Intent:         intent,
		Legs:           legs,
		AmountIn:       legs[0].AmountIn,
		AmountOut:      legs[len(legs)-1].AmountOut,
		PriceImpactBps: CompoundPriceImpact(impacts...),
	}
}
