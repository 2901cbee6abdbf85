package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/swap-engine/internal/adapters/persistence"
	"github.com/hxuan190/swap-engine/internal/aggregator"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/services/router"
)

type fakeAPI struct {
	quoteErr error
	execRes  *domain.ExecutionResult
	execErr  error
	simErr   error
	records  map[string]*domain.ExecutionRecord
	token    domain.Token
	tokenErr error

	lastTrade   aggregator.TradeRequest
	lastOutcome string
}

func (f *fakeAPI) Quote(_ context.Context, req aggregator.TradeRequest) (*aggregator.Quote, error) {
	f.lastTrade = req
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return testQuote(), nil
}

func (f *fakeAPI) Execute(_ context.Context, req aggregator.TradeRequest) (*aggregator.Quote, *domain.ExecutionResult, error) {
	f.lastTrade = req
	return testQuote(), f.execRes, f.execErr
}

func (f *fakeAPI) Simulate(_ context.Context, req aggregator.TradeRequest) (*aggregator.Simulation, error) {
	f.lastTrade = req
	if f.simErr != nil {
		return nil, f.simErr
	}
	return &aggregator.Simulation{
		Quote:            testQuote(),
		Result:           &domain.SimulationResult{Success: true, ComputeUnitsConsumed: 42_000},
		ComputeUnitLimit: 46_200,
	}, nil
}

func (f *fakeAPI) Execution(id string) (*domain.ExecutionRecord, error) {
	if rec, ok := f.records[id]; ok {
		return rec, nil
	}
	return nil, persistence.ErrRecordNotFound
}

func (f *fakeAPI) Executions(outcome string) ([]*domain.ExecutionRecord, error) {
	f.lastOutcome = outcome
	out := make([]*domain.ExecutionRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeAPI) Token(_ context.Context, _ string) (domain.Token, error) {
	return f.token, f.tokenErr
}

var (
	mintA = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintB = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	pool  = &domain.Pool{
		Address:    solana.MustPublicKeyFromBase58("7JuwJuNU88gurFnyWeiyGKbFmExMWcmRZntn9imEzdny"),
		TokenMintA: mintA,
		TokenMintB: mintB,
		DecimalsA:  6,
		DecimalsB:  6,
		ReserveA:   big.NewInt(1_000_000),
		ReserveB:   big.NewInt(2_000_000),
		FeeRate:    3000,
	}
)

func testQuote() *aggregator.Quote {
	leg, err := router.PriceLeg(pool, domain.ExactIn, mintA, mintB, big.NewInt(1000))
	if err != nil {
		panic(err)
	}
	return &aggregator.Quote{
		Plan: &domain.SwapPlan{
			Intent: domain.TradeIntent{
				InputMint:   mintA,
				OutputMint:  mintB,
				Amount:      big.NewInt(1000),
				Mode:        domain.ExactIn,
				SlippageBps: 50,
			},
			Legs:           []domain.QuotedLeg{*leg},
			AmountIn:       leg.AmountIn,
			AmountOut:      leg.AmountOut,
			PriceImpactBps: leg.PriceImpactBps,
		},
		InputToken:  domain.Token{Mint: mintA, Decimals: 6},
		OutputToken: domain.Token{Mint: mintB, Decimals: 6},
		SlippageBps: 50,
		Threshold:   big.NewInt(1982),
	}
}

func routedResult(outcome domain.ExecutionOutcome, leg2 domain.ConfirmationState) *domain.ExecutionResult {
	var sig1, sig2 solana.Signature
	sig1[0], sig2[0] = 1, 2
	return &domain.ExecutionResult{
		ID:      "exec-1",
		Plan:    testQuote().Plan,
		Outcome: outcome,
		Legs: []domain.LegExecution{
			{Index: 1, Signature: sig1, Status: domain.ConfirmationStatus{State: domain.StateConfirmed}},
			{Index: 2, Signature: sig2, Status: domain.ConfirmationStatus{State: leg2}},
		},
		StartedAt:  time.Unix(1_700_000_000, 0),
		FinishedAt: time.Unix(1_700_000_005, 0),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Leg     int             `json:"leg"`
}

func serve(t *testing.T, api SwapAPI, method, target string, body interface{}) (int, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := newRouter(nil, newHandlers(api))

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestGetQuote(t *testing.T) {
	api := &fakeAPI{}
	code, env := serve(t, api, http.MethodGet,
		"/api/v1/quote?inputMint=SOL&outputMint=USDC&amount=0.001&uiAmount=true&swapMode=ExactIn&slippageBps=0", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	var q QuoteResponse
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "1000", q.AmountIn)
	assert.Equal(t, "1992", q.AmountOut)
	assert.Equal(t, "0.001", q.UIAmountIn)
	assert.Equal(t, "0.001992", q.UIAmountOut)
	assert.Equal(t, "1982", q.OtherAmountThreshold)
	assert.Equal(t, uint16(30), q.FeeBps)
	assert.Equal(t, 1, q.HopCount)
	assert.Equal(t, []string{mintA.String(), mintB.String()}, q.RoutePath)
	require.Len(t, q.Routes, 1)
	assert.Equal(t, pool.Address.String(), q.Routes[0].PoolAddress)
	assert.Equal(t, "2", q.Routes[0].SpotPrice)

	assert.Equal(t, "SOL", api.lastTrade.InputMint)
	assert.True(t, api.lastTrade.UIAmount)
	require.NotNil(t, api.lastTrade.SlippageBps)
	assert.Equal(t, uint16(0), *api.lastTrade.SlippageBps)
}

func TestGetQuoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
		leg    int
	}{
		{"missing params", "/api/v1/quote?inputMint=SOL", nil, http.StatusBadRequest, 0},
		{"invalid mint", "/api/v1/quote?inputMint=x&outputMint=y&amount=1&swapMode=ExactIn",
			fmt.Errorf("%w: x", domain.ErrInvalidMint), http.StatusBadRequest, 0},
		{"no route", "/api/v1/quote?inputMint=x&outputMint=y&amount=1&swapMode=ExactIn",
			domain.ErrNoRouteAvailable, http.StatusNotFound, 0},
		{"second leg illiquid", "/api/v1/quote?inputMint=x&outputMint=y&amount=1&swapMode=ExactOut",
			&domain.LegError{Leg: 2, Err: domain.ErrInsufficientLiquidity}, http.StatusUnprocessableEntity, 2},
		{"rpc failure", "/api/v1/quote?inputMint=x&outputMint=y&amount=1&swapMode=ExactIn",
			fmt.Errorf("rpc down"), http.StatusInternalServerError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := serve(t, &fakeAPI{quoteErr: tt.err}, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.leg, env.Leg)
		})
	}
}

func TestExecuteSwap(t *testing.T) {
	api := &fakeAPI{execRes: routedResult(domain.OutcomeCompleted, domain.StateConfirmed)}
	code, env := serve(t, api, http.MethodPost, "/api/v1/swap", map[string]interface{}{
		"inputMint": mintA.String(), "outputMint": mintB.String(), "amount": "1000", "swapMode": "ExactIn",
	})
	require.Equal(t, http.StatusOK, code)

	var resp ExecutionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "exec-1", resp.ID)
	assert.Equal(t, "completed", resp.Outcome)
	assert.Len(t, resp.Signatures, 2)
	require.NotNil(t, resp.Quote)
	assert.Equal(t, "1992", resp.Quote.AmountOut)
	assert.Nil(t, api.lastTrade.SlippageBps)
}

func TestExecuteSwapPartialRoute(t *testing.T) {
	res := routedResult(domain.OutcomePartial, domain.StateTimedOut)
	api := &fakeAPI{
		execRes: res,
		execErr: &domain.PartialRouteError{
			Leg1Signature: res.Legs[0].Signature,
			Cause:         &domain.LegError{Leg: 2, Err: &domain.TimeoutError{Signature: res.Legs[1].Signature}},
		},
	}
	code, env := serve(t, api, http.MethodPost, "/api/v1/swap", map[string]interface{}{
		"inputMint": mintA.String(), "outputMint": mintB.String(), "amount": "1000", "swapMode": "ExactIn",
	})
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "PARTIAL_ROUTE_EXECUTED", env.Code)
	assert.Equal(t, 2, env.Leg)

	var resp ExecutionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, []string{res.Legs[0].Signature.String()}, resp.Signatures)
	assert.Equal(t, "partial", resp.Execution.Outcome)
}

func TestExecuteSwapFailureCarriesExecution(t *testing.T) {
	res := &domain.ExecutionResult{
		ID:      "exec-2",
		Outcome: domain.OutcomeNone,
		Legs: []domain.LegExecution{
			{Index: 1, Status: domain.ConfirmationStatus{State: domain.StateFailed}},
		},
	}
	api := &fakeAPI{
		execRes: res,
		execErr: &domain.LegError{Leg: 1, Err: &domain.SubmissionError{Attempts: 3, Err: fmt.Errorf("blockhash not found")}},
	}
	code, env := serve(t, api, http.MethodPost, "/api/v1/swap", map[string]interface{}{
		"inputMint": mintA.String(), "outputMint": mintB.String(), "amount": "1000", "swapMode": "ExactIn",
	})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, 1, env.Leg)

	var resp ExecutionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "exec-2", resp.ID)
	assert.Empty(t, resp.Signatures)
}

func TestExecuteSwapWithoutResult(t *testing.T) {
	api := &fakeAPI{execErr: aggregator.ErrSignerNotConfigured}
	code, env := serve(t, api, http.MethodPost, "/api/v1/swap", map[string]interface{}{
		"inputMint": mintA.String(), "outputMint": mintB.String(), "amount": "1000", "swapMode": "ExactIn",
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Empty(t, env.Data)
}

func TestSimulateSwap(t *testing.T) {
	api := &fakeAPI{}
	code, env := serve(t, api, http.MethodPost, "/api/v1/swap/simulate", map[string]interface{}{
		"inputMint": mintA.String(), "outputMint": mintB.String(), "amount": "1000", "swapMode": "ExactIn",
		"userPublicKey": mintB.String(),
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, mintB.String(), api.lastTrade.UserPublicKey)

	var resp SimulationResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.Simulation.Success)
	assert.Equal(t, uint64(42_000), resp.Simulation.ComputeUnitsConsumed)
	assert.Equal(t, uint32(46_200), resp.RecommendedComputeUnits)
	assert.Empty(t, resp.Failure)
}

func TestExecutions(t *testing.T) {
	api := &fakeAPI{records: map[string]*domain.ExecutionRecord{
		"exec-1": {ID: "exec-1", Outcome: "partial"},
	}}

	code, env := serve(t, api, http.MethodGet, "/api/v1/executions/exec-1", nil)
	require.Equal(t, http.StatusOK, code)
	var rec domain.ExecutionRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "partial", rec.Outcome)

	code, _ = serve(t, api, http.MethodGet, "/api/v1/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = serve(t, api, http.MethodGet, "/api/v1/executions?outcome=partial", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "partial", api.lastOutcome)
	var recs []domain.ExecutionRecord
	require.NoError(t, json.Unmarshal(env.Data, &recs))
	assert.Len(t, recs, 1)

	code, _ = serve(t, api, http.MethodGet, "/api/v1/executions?outcome=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetToken(t *testing.T) {
	api := &fakeAPI{token: domain.Token{Mint: mintB, Symbol: "USDC", Decimals: 6, Program: solana.TokenProgramID}}
	code, env := serve(t, api, http.MethodGet, "/api/v1/tokens/USDC", nil)
	require.Equal(t, http.StatusOK, code)

	var tok TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	assert.Equal(t, mintB.String(), tok.Mint)
	assert.Equal(t, uint8(6), tok.Decimals)
	assert.Equal(t, solana.TokenProgramID.String(), tok.Program)

	api.tokenErr = fmt.Errorf("%w: nope", domain.ErrInvalidMint)
	code, _ = serve(t, api, http.MethodGet, "/api/v1/tokens/nope", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
