package tokens

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/brojonat/solquiz/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

type fakeFetcher struct {
	mu    sync.Mutex
	metas map[string]*solana.TokenMetadata
	calls map[string]int
}

func newFakeFetcher(metas ...*solana.TokenMetadata) *fakeFetcher {
	f := &fakeFetcher{metas: map[string]*solana.TokenMetadata{}, calls: map[string]int{}}
	for _, m := range metas {
		f.metas[m.Mint] = m
	}
	return f
}

func (f *fakeFetcher) FetchTokenMetadata(ctx context.Context, mint string) (*solana.TokenMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[mint]++
	m, ok := f.metas[mint]
	if !ok {
		return nil, errors.New("account not found")
	}
	return m, nil
}

type memoryStore struct {
	tokens  []Token
	saves   int
	saveErr error
}

func (s *memoryStore) Load(ctx context.Context) ([]Token, error) {
	return s.tokens, nil
}

func (s *memoryStore) Save(ctx context.Context, tokens []Token) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.tokens = tokens
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_NativeIsSeeded(t *testing.T) {
	fetcher := newFakeFetcher()
	r := NewResolver(nil, fetcher, nil, testLogger())

	tok := r.Resolve(context.Background(), NativeMint)
	assert.Equal(t, "SOL", tok.Symbol)
	assert.Equal(t, uint8(9), tok.Decimals)
	assert.Empty(t, fetcher.calls)
}

func TestResolve_FetchesOnceThenCaches(t *testing.T) {
	fetcher := newFakeFetcher(&solana.TokenMetadata{Mint: usdcMint, Name: "USD Coin", Symbol: "USDC", Decimals: 6})
	r := NewResolver(nil, fetcher, nil, testLogger())

	first := r.Resolve(context.Background(), usdcMint)
	second := r.Resolve(context.Background(), usdcMint)

	assert.Equal(t, first, second)
	assert.Equal(t, Token{Name: "USD Coin", Symbol: "USDC", Address: usdcMint, Decimals: 6}, first)
	assert.Equal(t, 1, fetcher.calls[usdcMint])
}

func TestResolve_PlaceholderOnFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	r := NewResolver(nil, fetcher, nil, testLogger())

	tok := r.Resolve(context.Background(), bonkMint)
	assert.Equal(t, Token{Name: "DezXAZ", Symbol: UnknownSymbol, Address: bonkMint}, tok)
	assert.True(t, tok.IsPlaceholder())

	r.Resolve(context.Background(), bonkMint)
	assert.Equal(t, 1, fetcher.calls[bonkMint], "placeholder should be cached")
}

func TestResolve_PartialMetadataKeepsPlaceholderFields(t *testing.T) {
	fetcher := newFakeFetcher(&solana.TokenMetadata{Mint: bonkMint, Decimals: 5})
	r := NewResolver(nil, fetcher, nil, testLogger())

	tok := r.Resolve(context.Background(), bonkMint)
	assert.Equal(t, uint8(5), tok.Decimals)
	assert.Equal(t, "DezXAZ", tok.Name)
	assert.Equal(t, UnknownSymbol, tok.Symbol)
}

func TestResolve_ConcurrentLookupsFetchOnce(t *testing.T) {
	fetcher := newFakeFetcher(&solana.TokenMetadata{Mint: usdcMint, Symbol: "USDC", Decimals: 6})
	r := NewResolver(nil, fetcher, nil, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Resolve(context.Background(), usdcMint)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fetcher.calls[usdcMint])
}

func TestLookup_DoesNotFetch(t *testing.T) {
	fetcher := newFakeFetcher(&solana.TokenMetadata{Mint: usdcMint, Symbol: "USDC"})
	r := NewResolver(nil, fetcher, nil, testLogger())

	_, ok := r.Lookup(usdcMint)
	assert.False(t, ok)
	assert.Empty(t, fetcher.calls)
}

func TestLoadAndFlush(t *testing.T) {
	store := &memoryStore{tokens: []Token{{Name: "USD Coin", Symbol: "USDC", Address: usdcMint, Decimals: 6}}}
	fetcher := newFakeFetcher()
	r := NewResolver(store, fetcher, nil, testLogger())

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, 2, r.Len())

	tok := r.Resolve(context.Background(), usdcMint)
	assert.Equal(t, "USDC", tok.Symbol)
	assert.Empty(t, fetcher.calls)

	n, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, store.saves, "nothing new, nothing saved")

	r.Resolve(context.Background(), bonkMint)
	_, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	require.Len(t, store.tokens, 3)
	assert.Equal(t, bonkMint, store.tokens[0].Address, "sorted by address")

	_, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}

func TestFlush_ErrorKeepsDirty(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	r := NewResolver(store, nil, nil, testLogger())
	r.Resolve(context.Background(), bonkMint)

	_, err := r.Flush(context.Background())
	require.Error(t, err)

	store.saveErr = nil
	_, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token-cache.json")
	store := NewFileStore(path)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)

	want := []Token{
		{Name: "USD Coin", Symbol: "USDC", Address: usdcMint, Decimals: 6},
		{Name: "Bonk", Symbol: "BONK", Address: bonkMint, Decimals: 5, LogoURI: "https://example.com/bonk.png"},
	}
	require.NoError(t, store.Save(context.Background(), want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"logo_uri": "https://example.com/bonk.png"`)

	loaded, err = store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, bonkMint, loaded[0].Address)
	assert.Equal(t, usdcMint, loaded[1].Address)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token-cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
}

func TestPlaceholder_ShortAddress(t *testing.T) {
	assert.Equal(t, "abc", Placeholder("abc").Name)
}
