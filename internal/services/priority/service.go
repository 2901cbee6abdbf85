package priority

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

const (
	DefaultComputeUnits = 200000
	MaxComputeUnits     = 1400000
	computeUnitBuffer   = 1.1
	maxFeeAccounts      = 8
)

// Service produces the compute budget prefix of every swap transaction.
type Service struct {
	feeCalculator *FeeCalculator
	computeUnits  uint32
	urgency       Urgency
}

func NewService(feeCalculator *FeeCalculator, computeUnits uint32, urgency Urgency) *Service {
	if computeUnits == 0 {
		computeUnits = DefaultComputeUnits
	}
	if computeUnits > MaxComputeUnits {
		computeUnits = MaxComputeUnits
	}
	return &Service{feeCalculator: feeCalculator, computeUnits: computeUnits, urgency: urgency}
}

type PriorityConfig struct {
	ComputeUnits     uint32 `json:"computeUnits"`
	PriorityFee      uint64 `json:"priorityFee"` // microLamports per CU
	TotalFeeLamports uint64 `json:"totalFeeLamports"`
	Urgency          string `json:"urgency"`
}

// GetPriorityConfig prices the configured compute unit limit against fees recently
// paid for the given writable accounts.
func (s *Service) GetPriorityConfig(ctx context.Context, writable []solana.PublicKey) *PriorityConfig {
	if len(writable) > maxFeeAccounts {
		writable = writable[:maxFeeAccounts]
	}
	fee := s.feeCalculator.GetOptimalFee(ctx, s.urgency, writable)
	cfg := &PriorityConfig{
		ComputeUnits:     s.computeUnits,
		PriorityFee:      fee.FeePerCU,
		TotalFeeLamports: fee.GetFeeForAmount(s.computeUnits) / 1_000_000,
		Urgency:          s.urgency.String(),
	}
	log.Debug().
		Uint32("computeUnits", cfg.ComputeUnits).
		Uint64("microLamports", cfg.PriorityFee).
		Int("samples", fee.SampleCount).
		Msg("[PriorityService] priority config")
	return cfg
}

func (s *Service) BuildPriorityInstructions(config *PriorityConfig) []solana.Instruction {
	return []solana.Instruction{
		NewSetComputeUnitLimitInstruction(config.ComputeUnits),
		NewSetComputeUnitPriceInstruction(config.PriorityFee),
	}
}

// Instructions is GetPriorityConfig followed by BuildPriorityInstructions.
func (s *Service) Instructions(ctx context.Context, writable []solana.PublicKey) []solana.Instruction {
	return s.BuildPriorityInstructions(s.GetPriorityConfig(ctx, writable))
}

// UnitsWithBuffer turns a simulated consumption into a recommended limit.
func UnitsWithBuffer(consumed uint64) uint32 {
	if consumed == 0 {
		return DefaultComputeUnits
	}
	units := uint64(float64(consumed) * computeUnitBuffer)
	if units > MaxComputeUnits {
		return MaxComputeUnits
	}
	return uint32(units)
}
