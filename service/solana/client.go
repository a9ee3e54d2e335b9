package solana

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/solquiz/service/metrics"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is the subset of Solana RPC this package needs. It exists so tests
// can run without a node.
type RPCClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// TokenMetadata is what the chain knows about a mint.
type TokenMetadata struct {
	Mint     string
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

// Client reads mint and Metaplex metadata accounts.
type Client struct {
	rpc     RPCClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new Solana metadata client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		rpc:     rpcClient,
		logger:  logger,
		metrics: m,
	}
}

// FetchTokenMetadata reads the decimals from the mint account and the name and
// symbol from the mint's Metaplex metadata account. Either lookup may fail on
// its own; the failure is logged and the corresponding fields stay empty. An
// error is returned only for an invalid mint address or when both lookups fail.
func (c *Client) FetchTokenMetadata(ctx context.Context, mintAddress string) (*TokenMetadata, error) {
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address %q: %w", mintAddress, err)
	}

	meta := &TokenMetadata{Mint: mintAddress}

	decimals, decErr := c.fetchDecimals(ctx, mint)
	if decErr != nil {
		c.logger.WarnContext(ctx, "failed to read mint account",
			"mint", mintAddress,
			"error", decErr,
		)
	} else {
		meta.Decimals = decimals
	}

	name, symbol, uri, metaErr := c.fetchMetaplex(ctx, mint)
	if metaErr != nil {
		c.logger.WarnContext(ctx, "failed to read token metadata account",
			"mint", mintAddress,
			"error", metaErr,
		)
	} else {
		meta.Name, meta.Symbol, meta.URI = name, symbol, uri
	}

	if decErr != nil && metaErr != nil {
		return nil, fmt.Errorf("failed to fetch token metadata for %s: %w", mintAddress, errors.Join(decErr, metaErr))
	}
	return meta, nil
}

func (c *Client) fetchDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	data, err := c.accountData(ctx, mint)
	if err != nil {
		return 0, err
	}
	var m token.Mint
	if err := bin.NewBinDecoder(data).Decode(&m); err != nil {
		return 0, fmt.Errorf("failed to decode mint: %w", err)
	}
	return m.Decimals, nil
}

func (c *Client) fetchMetaplex(ctx context.Context, mint solana.PublicKey) (name, symbol, uri string, err error) {
	addr, _, err := solana.FindTokenMetadataAddress(mint)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to derive metadata address: %w", err)
	}
	data, err := c.accountData(ctx, addr)
	if err != nil {
		return "", "", "", err
	}
	return ParseMetadata(data)
}

func (c *Client) accountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfo(ctx, account)
	if c.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordRPCCall("GetAccountInfo", status, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", account, err)
	}
	data := out.GetBinary()
	if len(data) == 0 {
		return nil, fmt.Errorf("account %s: %w", account, rpc.ErrNotFound)
	}
	return data, nil
}

// ParseMetadata decodes the leading fields of a Metaplex metadata account:
// key (u8), update authority and mint (32 bytes each), then name, symbol and
// uri as borsh strings. Fixed-width padding NULs are trimmed.
func ParseMetadata(data []byte) (name, symbol, uri string, err error) {
	dec := bin.NewBorshDecoder(data)
	if _, err = dec.ReadUint8(); err != nil {
		return "", "", "", fmt.Errorf("failed to read key: %w", err)
	}
	if err = dec.SkipBytes(64); err != nil {
		return "", "", "", fmt.Errorf("failed to skip authorities: %w", err)
	}
	if name, err = readBorshString(dec); err != nil {
		return "", "", "", fmt.Errorf("failed to read name: %w", err)
	}
	if symbol, err = readBorshString(dec); err != nil {
		return "", "", "", fmt.Errorf("failed to read symbol: %w", err)
	}
	if uri, err = readBorshString(dec); err != nil {
		return "", "", "", fmt.Errorf("failed to read uri: %w", err)
	}
	return name, symbol, uri, nil
}

func readBorshString(dec *bin.Decoder) (string, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", err
	}
	if int(n) > dec.Remaining() {
		return "", io.ErrUnexpectedEOF
	}
	b, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}
