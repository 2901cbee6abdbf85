package market

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
)

type registryEntry struct {
	Symbol   string `yaml:"symbol"`
	Mint     string `yaml:"mint"`
	Decimals uint8  `yaml:"decimals"`
	Program  string `yaml:"program,omitempty"`
}

type registryFile struct {
	Tokens []registryEntry `yaml:"tokens"`
}

// Registry is a static list of known tokens addressable by symbol or mint.
type Registry struct {
	mu       sync.RWMutex
	byMint   map[solana.PublicKey]domain.Token
	bySymbol map[string]domain.Token
}

func NewRegistry() *Registry {
	r := &Registry{
		byMint:   make(map[solana.PublicKey]domain.Token),
		bySymbol: make(map[string]domain.Token),
	}
	r.Add(domain.Token{
		Mint:     common.NativeMint,
		Symbol:   "SOL",
		Decimals: 9,
		Program:  common.TokenProgramID,
	})
	return r
}

// LoadRegistry reads a YAML token list. An empty path yields the built-in registry.
func LoadRegistry(path string) (*Registry, error) {
	r := NewRegistry()
	if path == "" {
		return r, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token list: %w", err)
	}
	if err := r.parse(raw); err != nil {
		return nil, fmt.Errorf("token list %s: %w", path, err)
	}
	return r, nil
}

func (r *Registry) parse(raw []byte) error {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return err
	}
	for i, e := range file.Tokens {
		mint, err := solana.PublicKeyFromBase58(e.Mint)
		if err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, e.Symbol, domain.ErrInvalidMint)
		}
		program := common.TokenProgramID
		if e.Program != "" {
			if program, err = solana.PublicKeyFromBase58(e.Program); err != nil {
				return fmt.Errorf("entry %d (%s): invalid program: %w", i, e.Symbol, err)
			}
		}
		r.Add(domain.Token{Mint: mint, Symbol: e.Symbol, Decimals: e.Decimals, Program: program})
	}
	return nil
}

func (r *Registry) Add(t domain.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMint[t.Mint] = t
	if t.Symbol != "" {
		r.bySymbol[strings.ToUpper(t.Symbol)] = t
	}
}

func (r *Registry) Get(mint solana.PublicKey) (domain.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byMint[mint]
	return t, ok
}

// Lookup resolves a symbol (case-insensitive) or a base58 mint address.
func (r *Registry) Lookup(symbolOrMint string) (solana.PublicKey, error) {
	s := strings.TrimSpace(symbolOrMint)
	r.mu.RLock()
	t, ok := r.bySymbol[strings.ToUpper(s)]
	r.mu.RUnlock()
	if ok {
		return t.Mint, nil
	}
	mint, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%q: %w", symbolOrMint, domain.ErrInvalidMint)
	}
	return mint, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMint)
}
