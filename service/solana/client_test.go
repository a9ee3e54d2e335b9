package solana

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// mockRPCClient returns canned account data keyed by address.
type mockRPCClient struct {
	accounts map[string][]byte
	err      error
	calls    []string
}

func (m *mockRPCClient) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	m.calls = append(m.calls, account.String())
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.accounts[account.String()]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
	}, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, nil, logger)
}

func encodeMint(t *testing.T, decimals uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(token.Mint{
		Supply:        1_000_000,
		Decimals:      decimals,
		IsInitialized: true,
	}))
	return buf.Bytes()
}

func encodeMetadata(name, symbol, uri string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(4)
	buf.Write(make([]byte, 64))
	for _, s := range []string{name, symbol, uri} {
		binary.Write(&buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func metadataAddress(t *testing.T, mint string) string {
	t.Helper()
	addr, _, err := solana.FindTokenMetadataAddress(solana.MustPublicKeyFromBase58(mint))
	require.NoError(t, err)
	return addr.String()
}

func TestFetchTokenMetadata_Success(t *testing.T) {
	mock := &mockRPCClient{accounts: map[string][]byte{
		testMint:                     encodeMint(t, 6),
		metadataAddress(t, testMint): encodeMetadata("USD Coin\x00\x00\x00\x00", "USDC\x00\x00", "https://example.com/usdc.json\x00"),
	}}

	meta, err := newTestClient(mock).FetchTokenMetadata(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, testMint, meta.Mint)
	assert.Equal(t, uint8(6), meta.Decimals)
	assert.Equal(t, "USD Coin", meta.Name)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, "https://example.com/usdc.json", meta.URI)
	assert.Len(t, mock.calls, 2)
}

func TestFetchTokenMetadata_MissingMetaplexAccount(t *testing.T) {
	mock := &mockRPCClient{accounts: map[string][]byte{
		testMint: encodeMint(t, 9),
	}}

	meta, err := newTestClient(mock).FetchTokenMetadata(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), meta.Decimals)
	assert.Empty(t, meta.Name)
	assert.Empty(t, meta.Symbol)
}

func TestFetchTokenMetadata_MissingMintAccount(t *testing.T) {
	mock := &mockRPCClient{accounts: map[string][]byte{
		metadataAddress(t, testMint): encodeMetadata("Bonk", "BONK", ""),
	}}

	meta, err := newTestClient(mock).FetchTokenMetadata(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), meta.Decimals)
	assert.Equal(t, "BONK", meta.Symbol)
}

func TestFetchTokenMetadata_BothLookupsFail(t *testing.T) {
	mock := &mockRPCClient{err: errors.New("connection refused")}

	meta, err := newTestClient(mock).FetchTokenMetadata(context.Background(), testMint)
	require.Error(t, err)
	assert.Nil(t, meta)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetchTokenMetadata_InvalidAddress(t *testing.T) {
	mock := &mockRPCClient{}

	_, err := newTestClient(mock).FetchTokenMetadata(context.Background(), "not-a-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mint address")
	assert.Empty(t, mock.calls)
}

func TestParseMetadata_Truncated(t *testing.T) {
	data := encodeMetadata("Name", "SYM", "uri")

	_, _, _, err := ParseMetadata(data[:70])
	require.Error(t, err)

	_, _, _, err = ParseMetadata(nil)
	require.Error(t, err)
}
