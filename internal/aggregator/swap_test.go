package aggregator

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/services/builder"
	"github.com/hxuan190/swap-engine/internal/services/router"
)

type fakeTokens struct {
	symbols map[string]solana.PublicKey
}

func (f *fakeTokens) Lookup(s string) (solana.PublicKey, error) {
	if m, ok := f.symbols[strings.ToUpper(s)]; ok {
		return m, nil
	}
	m, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, domain.ErrInvalidMint
	}
	return m, nil
}

func (f *fakeTokens) Token(_ context.Context, mint solana.PublicKey) (domain.Token, error) {
	return domain.Token{Mint: mint, Decimals: 6}, nil
}

type fakePlanner struct {
	pool    *domain.Pool
	intents []domain.TradeIntent
}

func (f *fakePlanner) Plan(_ context.Context, intent domain.TradeIntent) (*domain.SwapPlan, error) {
	f.intents = append(f.intents, intent)
	if f.pool == nil {
		return nil, domain.ErrNoRouteAvailable
	}
	leg, err := router.PriceLeg(f.pool, intent.Mode, intent.InputMint, intent.OutputMint, intent.Amount)
	if err != nil {
		return nil, &domain.LegError{Leg: 1, Err: err}
	}
	return &domain.SwapPlan{
		Intent:         intent,
		Legs:           []domain.QuotedLeg{*leg},
		AmountIn:       leg.AmountIn,
		AmountOut:      leg.AmountOut,
		PriceImpactBps: leg.PriceImpactBps,
	}, nil
}

type fakeExecutor struct {
	result *domain.ExecutionResult
	err    error
	signer builder.Signer
	ctxErr error
}

func (f *fakeExecutor) Execute(ctx context.Context, plan *domain.SwapPlan, signer builder.Signer, _ uint16) (*domain.ExecutionResult, error) {
	f.signer = signer
	f.ctxErr = ctx.Err()
	f.result.Plan = plan
	return f.result, f.err
}

type memJournal struct {
	records map[string]*domain.ExecutionRecord
}

func (m *memJournal) Save(rec *domain.ExecutionRecord) error {
	m.records[rec.ID] = rec
	return nil
}

func (m *memJournal) Get(id string) (*domain.ExecutionRecord, error) {
	if r, ok := m.records[id]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (m *memJournal) List(outcome string) ([]*domain.ExecutionRecord, error) {
	var out []*domain.ExecutionRecord
	for _, r := range m.records {
		if outcome == "" || r.Outcome == outcome {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTxBuilder struct {
	owner solana.PublicKey
	req   builder.LegRequest
}

func (f *fakeTxBuilder) BuildTransaction(_ context.Context, signer builder.Signer, req builder.LegRequest, _ solana.Hash) (*solana.Transaction, error) {
	f.owner = signer.PublicKey()
	f.req = req
	return &solana.Transaction{}, nil
}

type fakeSimulator struct {
	result *domain.SimulationResult
}

func (f *fakeSimulator) SimulateTransaction(context.Context, *solana.Transaction) (*domain.SimulationResult, error) {
	return f.result, nil
}

type fakeBlockhashes struct{}

func (fakeBlockhashes) GetBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{1}, 100, nil
}

type testEnv struct {
	core    *core
	usdc    solana.PublicKey
	other   solana.PublicKey
	planner *fakePlanner
	journal *memJournal
	builder *fakeTxBuilder
}

func newTestEnv() *testEnv {
	usdc := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	pool := &domain.Pool{
		Address:    solana.NewWallet().PublicKey(),
		TokenMintA: usdc,
		TokenMintB: other,
		DecimalsA:  6,
		DecimalsB:  6,
		ReserveA:   big.NewInt(1_000_000),
		ReserveB:   big.NewInt(2_000_000),
		FeeRate:    3000,
	}
	env := &testEnv{
		usdc:    usdc,
		other:   other,
		planner: &fakePlanner{pool: pool},
		journal: &memJournal{records: map[string]*domain.ExecutionRecord{}},
		builder: &fakeTxBuilder{},
	}
	env.core = &core{
		tokens:             &fakeTokens{symbols: map[string]solana.PublicKey{"USDC": usdc}},
		planner:            env.planner,
		txBuilder:          env.builder,
		simulator:          &fakeSimulator{result: &domain.SimulationResult{Success: true, ComputeUnitsConsumed: 42000}},
		blockhashes:        fakeBlockhashes{},
		journal:            env.journal,
		defaultSlippageBps: 50,
		maxSlippageBps:     5000,
	}
	return env
}

func slippage(v uint16) *uint16 {
	return &v
}

func TestQuoteWithDisplayAmount(t *testing.T) {
	env := newTestEnv()

	q, err := env.core.Quote(context.Background(), TradeRequest{
		InputMint:  "usdc",
		OutputMint: env.other.String(),
		Amount:     "0.001",
		UIAmount:   true,
		SwapMode:   "ExactIn",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), q.Plan.AmountIn.Int64())
	assert.Equal(t, int64(1992), q.Plan.AmountOut.Int64())
	assert.Equal(t, int64(1982), q.Threshold.Int64())
	assert.Equal(t, uint16(50), q.SlippageBps)
	assert.Equal(t, env.usdc, env.planner.intents[0].InputMint)
	assert.Equal(t, router.SeverityNone, q.Severity())
}

func TestQuoteExactOutThreshold(t *testing.T) {
	env := newTestEnv()

	q, err := env.core.Quote(context.Background(), TradeRequest{
		InputMint:   env.usdc.String(),
		OutputMint:  env.other.String(),
		Amount:      "1992",
		SwapMode:    "ExactOut",
		SlippageBps: slippage(0),
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), q.SlippageBps)
	assert.Equal(t, 0, q.Threshold.Cmp(q.Plan.AmountIn))
}

func TestQuoteRejectsBadRequests(t *testing.T) {
	env := newTestEnv()
	other := env.other.String()

	tests := []struct {
		name string
		req  TradeRequest
		want error
	}{
		{"bad mode", TradeRequest{InputMint: "USDC", OutputMint: other, Amount: "1", SwapMode: "exactin"}, domain.ErrInvalidSwapMode},
		{"bad mint", TradeRequest{InputMint: "nope!", OutputMint: other, Amount: "1", SwapMode: "ExactIn"}, domain.ErrInvalidMint},
		{"same mint", TradeRequest{InputMint: other, OutputMint: other, Amount: "1", SwapMode: "ExactIn"}, domain.ErrSameMint},
		{"slippage", TradeRequest{InputMint: "USDC", OutputMint: other, Amount: "1", SwapMode: "ExactIn", SlippageBps: slippage(5001)}, domain.ErrInvalidSlippage},
		{"zero amount", TradeRequest{InputMint: "USDC", OutputMint: other, Amount: "0", SwapMode: "ExactIn"}, domain.ErrInvalidAmount},
		{"too precise", TradeRequest{InputMint: "USDC", OutputMint: other, Amount: "0.0000001", UIAmount: true, SwapMode: "ExactIn"}, domain.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.core.Quote(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, env.planner.intents)
}

func TestExecuteRequiresSigner(t *testing.T) {
	env := newTestEnv()
	_, _, err := env.core.Execute(context.Background(), TradeRequest{})
	assert.ErrorIs(t, err, ErrSignerNotConfigured)
}

func TestExecuteJournalsPartialRoute(t *testing.T) {
	env := newTestEnv()
	partial := &domain.PartialRouteError{Cause: domain.ErrConfirmationTimeout}
	exec := &fakeExecutor{
		result: &domain.ExecutionResult{ID: "exec-1", Outcome: domain.OutcomePartial},
		err:    partial,
	}
	env.core.engine = exec
	env.core.signer = solana.NewWallet().PrivateKey

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// quoting does not look at the context in these fakes; execution must not inherit the cancellation
	_, res, err := env.core.Execute(ctx, TradeRequest{
		InputMint: "USDC", OutputMint: env.other.String(), Amount: "1000", SwapMode: "ExactIn",
	})
	assert.ErrorIs(t, err, domain.ErrPartialRouteExecuted)
	require.NotNil(t, res)
	assert.NoError(t, exec.ctxErr)
	assert.Equal(t, env.core.signer, exec.signer)

	rec, err := env.core.Execution("exec-1")
	require.NoError(t, err)
	assert.Equal(t, "partial", rec.Outcome)
	assert.Contains(t, rec.Error, "partially executed")

	recs, err := env.core.Executions("partial")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSimulateForUserWallet(t *testing.T) {
	env := newTestEnv()
	user := solana.NewWallet().PublicKey()

	sim, err := env.core.Simulate(context.Background(), TradeRequest{
		InputMint: "USDC", OutputMint: env.other.String(), Amount: "1000", SwapMode: "ExactIn",
		UserPublicKey: user.String(),
	})
	require.NoError(t, err)
	assert.True(t, sim.Result.Success)
	assert.NoError(t, sim.Failure)
	assert.Equal(t, uint32(46_200), sim.ComputeUnitLimit)
	assert.Equal(t, user, env.builder.owner)
	assert.Equal(t, int64(1982), env.builder.req.Threshold.Int64())
	assert.True(t, env.builder.req.First)
}

func TestSimulateReportsFailure(t *testing.T) {
	env := newTestEnv()
	env.core.simulator = &fakeSimulator{result: &domain.SimulationResult{
		Error:            "custom program error: 0x1772",
		Logs:             []string{"Program log: Error: ExceededSlippage"},
		SlippageExceeded: true,
	}}

	sim, err := env.core.Simulate(context.Background(), TradeRequest{
		InputMint: "USDC", OutputMint: env.other.String(), Amount: "1000", SwapMode: "ExactIn",
		UserPublicKey: solana.NewWallet().PublicKey().String(),
	})
	require.NoError(t, err)
	assert.False(t, sim.Result.Success)
	assert.ErrorIs(t, sim.Failure, domain.ErrSlippageExceeded)
	assert.Zero(t, sim.ComputeUnitLimit)
}

func TestSimulateWithoutAnySigner(t *testing.T) {
	env := newTestEnv()
	_, err := env.core.Simulate(context.Background(), TradeRequest{
		InputMint: "USDC", OutputMint: env.other.String(), Amount: "1000", SwapMode: "ExactIn",
	})
	assert.ErrorIs(t, err, ErrSignerNotConfigured)
}

func TestJournalDisabled(t *testing.T) {
	env := newTestEnv()
	env.core.journal = nil
	_, err := env.core.Execution("x")
	assert.ErrorIs(t, err, ErrJournalDisabled)
	_, err = env.core.Executions("")
	assert.ErrorIs(t, err, ErrJournalDisabled)
}

func TestToken(t *testing.T) {
	env := newTestEnv()
	tok, err := env.core.Token(context.Background(), "USDC")
	require.NoError(t, err)
	assert.Equal(t, env.usdc, tok.Mint)
	assert.Equal(t, uint8(6), tok.Decimals)
}
