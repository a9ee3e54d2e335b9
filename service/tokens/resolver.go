package tokens

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/brojonat/solquiz/service/metrics"
	"github.com/brojonat/solquiz/service/solana"
)

// MetadataFetcher reads token metadata from the chain.
type MetadataFetcher interface {
	FetchTokenMetadata(ctx context.Context, mint string) (*solana.TokenMetadata, error)
}

// Resolver maps token addresses to metadata. It is constructed once per
// process and shared by every command. A single lock is held across the
// cache check and the network fallback, so concurrent lookups of the same
// mint hit the chain at most once.
type Resolver struct {
	mu      sync.Mutex
	tokens  map[string]Token
	dirty   bool
	store   Store
	fetcher MetadataFetcher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResolver creates a resolver seeded with the native token. store and
// fetcher may be nil, in which case nothing is persisted or fetched.
func NewResolver(store Store, fetcher MetadataFetcher, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	native := Native()
	return &Resolver{
		tokens:  map[string]Token{native.Address: native},
		store:   store,
		fetcher: fetcher,
		metrics: m,
		logger:  logger,
	}
}

// Load fills the cache from the store. Entries already in memory are
// overwritten by stored ones.
func (r *Resolver) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	loaded, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load token cache: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range loaded {
		if t.Address == "" {
			continue
		}
		r.tokens[t.Address] = t
	}
	r.logger.InfoContext(ctx, "loaded token cache", "tokens", len(loaded))
	if r.metrics != nil {
		r.metrics.SetTokenCacheSize(len(r.tokens))
	}
	return nil
}

// Resolve returns the metadata for address. It never fails: when neither the
// cache nor the chain knows the token, a placeholder is returned and cached.
func (r *Resolver) Resolve(ctx context.Context, address string) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tokens[address]; ok {
		r.record("cache")
		return t
	}

	r.logger.DebugContext(ctx, "looking up token on chain", "mint", address)

	t := Placeholder(address)
	source := "placeholder"
	if r.fetcher != nil {
		meta, err := r.fetcher.FetchTokenMetadata(ctx, address)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to fetch token metadata",
				"mint", address,
				"error", err,
			)
		} else {
			source = "chain"
			t.Decimals = meta.Decimals
			if meta.Name != "" {
				t.Name = meta.Name
			}
			if meta.Symbol != "" {
				t.Symbol = meta.Symbol
			}
		}
	}

	r.tokens[address] = t
	r.dirty = true
	r.record(source)
	if r.metrics != nil {
		r.metrics.SetTokenCacheSize(len(r.tokens))
	}
	return t
}

// Lookup returns a cached token without touching the network.
func (r *Resolver) Lookup(address string) (Token, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[address]
	return t, ok
}

// Tokens returns every cached token sorted by address.
func (r *Resolver) Tokens() []Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Len returns the number of cached tokens.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// Flush saves the cache to the store if anything was added since the last
// flush. It returns the number of tokens in the cache.
func (r *Resolver) Flush(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.tokens)
	if r.store == nil || !r.dirty {
		return n, nil
	}

	err := r.store.Save(ctx, r.snapshot())
	if r.metrics != nil {
		r.metrics.RecordTokenCacheFlush(err)
	}
	if err != nil {
		return n, fmt.Errorf("failed to save token cache: %w", err)
	}
	r.dirty = false
	r.logger.InfoContext(ctx, "saved token cache", "tokens", n)
	return n, nil
}

func (r *Resolver) snapshot() []Token {
	out := make([]Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (r *Resolver) record(source string) {
	if r.metrics != nil {
		r.metrics.RecordTokenResolution(source)
	}
}
