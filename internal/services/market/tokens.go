package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
)

var ErrMintNotFound = errors.New("mint account not found")

const tokenCacheMaxSize = 10000

// TokenService resolves mint metadata. Decimals and the owning token program never
// change once a mint exists, so resolved entries are cached.
type TokenService struct {
	reader   AccountReader
	registry *Registry
	cache    *lru.Cache[solana.PublicKey, domain.Token]
	timeout  time.Duration
}

func NewTokenService(reader AccountReader, registry *Registry, timeout time.Duration) (*TokenService, error) {
	cache, err := lru.New[solana.PublicKey, domain.Token](tokenCacheMaxSize)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &TokenService{reader: reader, registry: registry, cache: cache, timeout: timeout}, nil
}

func (s *TokenService) Registry() *Registry {
	return s.registry
}

func (s *TokenService) Token(ctx context.Context, mint solana.PublicKey) (domain.Token, error) {
	if t, ok := s.registry.Get(mint); ok {
		return t, nil
	}
	if t, ok := s.cache.Get(mint); ok {
		return t, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.reader.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{mint}, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return domain.Token{}, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return domain.Token{}, fmt.Errorf("%s: %w", mint, ErrMintNotFound)
	}
	acc := res.Value[0]
	if !acc.Owner.Equals(common.TokenProgramID) && !acc.Owner.Equals(common.Token2022ID) {
		return domain.Token{}, fmt.Errorf("mint %s: %w", mint, ErrUnexpectedOwner)
	}

	var mintState token.Mint
	if err := bin.NewBinDecoder(acc.Data.GetBinary()).Decode(&mintState); err != nil {
		return domain.Token{}, fmt.Errorf("decode mint %s: %w", mint, err)
	}

	t := domain.Token{Mint: mint, Decimals: mintState.Decimals, Program: acc.Owner}
	s.cache.Add(mint, t)
	log.Debug().Str("mint", mint.String()).Uint8("decimals", t.Decimals).Msg("[TokenService] cached mint")
	return t, nil
}

// Lookup resolves a registry symbol or a base58 mint.
func (s *TokenService) Lookup(symbolOrMint string) (solana.PublicKey, error) {
	return s.registry.Lookup(symbolOrMint)
}
