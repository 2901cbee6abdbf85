package priority

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
)

type Urgency uint8

const (
	// UrgencyLow uses the p50 fee
	UrgencyLow Urgency = iota
	// UrgencyMedium uses the p75 fee
	UrgencyMedium
	// UrgencyHigh uses the p90 fee
	UrgencyHigh
	// UrgencyExtreme uses the p99 fee
	UrgencyExtreme
)

// DefaultFees are fallback fees when RPC fails (microLamports per CU)
var DefaultFees = map[Urgency]uint64{
	UrgencyLow:     1000,
	UrgencyMedium:  10000,
	UrgencyHigh:    100000,
	UrgencyExtreme: 1000000,
}

const minFeePerCU = 100

func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "p50":
		return UrgencyLow, nil
	case "", "medium", "p75":
		return UrgencyMedium, nil
	case "high", "p90":
		return UrgencyHigh, nil
	case "extreme", "p99":
		return UrgencyExtreme, nil
	default:
		return UrgencyMedium, fmt.Errorf("unknown priority urgency %q", s)
	}
}

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyMedium:
		return "medium"
	case UrgencyHigh:
		return "high"
	case UrgencyExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

type FeeClient interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error)
}

// FeeCalculator derives a compute unit price from recent prioritization fees.
type FeeCalculator struct {
	rpcClient FeeClient
}

func NewFeeCalculator(rpcClient FeeClient) *FeeCalculator {
	return &FeeCalculator{rpcClient: rpcClient}
}

type PriorityFeeResult struct {
	FeePerCU    uint64 // microLamports per compute unit
	Urgency     Urgency
	Percentile  int
	SampleCount int
}

// GetOptimalFee never fails: RPC errors and empty samples fall back to DefaultFees.
func (f *FeeCalculator) GetOptimalFee(ctx context.Context, urgency Urgency, accounts []solana.PublicKey) *PriorityFeeResult {
	percentile := getPercentileForUrgency(urgency)
	fallback := &PriorityFeeResult{
		FeePerCU:   DefaultFees[urgency],
		Urgency:    urgency,
		Percentile: percentile,
	}
	if f == nil || f.rpcClient == nil {
		return fallback
	}

	recentFees, err := f.rpcClient.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		log.Warn().Err(err).Msg("[FeeCalculator] falling back to default priority fee")
		return fallback
	}

	fees := make([]uint64, 0, len(recentFees))
	for _, fee := range recentFees {
		if fee.PrioritizationFee > 0 {
			fees = append(fees, fee.PrioritizationFee)
		}
	}
	if len(fees) == 0 {
		return fallback
	}

	return &PriorityFeeResult{
		FeePerCU:    feeAtPercentile(fees, percentile),
		Urgency:     urgency,
		Percentile:  percentile,
		SampleCount: len(fees),
	}
}

func feeAtPercentile(fees []uint64, percentile int) uint64 {
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	fee := calculatePercentile(fees, percentile)
	if fee < minFeePerCU {
		fee = minFeePerCU
	}
	return fee
}

func getPercentileForUrgency(urgency Urgency) int {
	switch urgency {
	case UrgencyLow:
		return 50
	case UrgencyMedium:
		return 75
	case UrgencyHigh:
		return 90
	case UrgencyExtreme:
		return 99
	default:
		return 75
	}
}

// calculatePercentile interpolates linearly between the two nearest ranks.
func calculatePercentile(sorted []uint64, percentile int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	if percentile <= 0 {
		return sorted[0]
	}
	if percentile >= 100 {
		return sorted[len(sorted)-1]
	}

	k := float64(percentile) / 100.0 * float64(len(sorted)-1)
	f := int(k)
	c := f + 1
	if c >= len(sorted) {
		c = len(sorted) - 1
	}

	d := k - float64(f)
	return uint64(float64(sorted[f])*(1-d) + float64(sorted[c])*d)
}

func (r *PriorityFeeResult) GetFeeForAmount(computeUnits uint32) uint64 {
	return r.FeePerCU * uint64(computeUnits)
}
