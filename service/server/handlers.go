package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/brojonat/solquiz/service/quiz"
	"github.com/brojonat/solquiz/service/tokens"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"
)

const (
	maxAddressLength = 100 // Solana addresses are 44 chars, give buffer
	defaultDays      = 7

	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// handleQuiz returns a handler that builds the per-token P&L report.
// GET /api/v1/accounts/{account}/quiz?days={days}&format={json|markdown}
func handleQuiz(reporter Reporter, renderer *quiz.Renderer, maxDays int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := r.PathValue("account")
		if err := validateAccount(account); err != nil {
			logger.Debug("invalid account", "account", account, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		days, err := parseDays(r.URL.Query().Get("days"), maxDays)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		report, err := reporter.Quiz(r.Context(), account, days)
		if err != nil {
			writeReportError(w, logger, account, err)
			return
		}

		logger.Debug("quiz report built", "account", account, "days", days, "positions", len(report.Positions))

		if wantsMarkdown(r) {
			writeMarkdown(w, renderer.Quiz(report))
			return
		}
		writeJSON(w, report, http.StatusOK)
	})
}

// handleActions returns a handler that builds the action log.
// GET /api/v1/accounts/{account}/actions?days={days}&limit={limit}&format={json|markdown}
func handleActions(reporter Reporter, renderer *quiz.Renderer, maxDays int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := r.PathValue("account")
		if err := validateAccount(account); err != nil {
			logger.Debug("invalid account", "account", account, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		query := r.URL.Query()
		days, err := parseDays(query.Get("days"), maxDays)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Zero lets the service apply its configured cap.
		limit := 0
		if limitStr := query.Get("limit"); limitStr != "" {
			limit, err = strconv.Atoi(limitStr)
			if err != nil {
				writeError(w, "invalid limit parameter: must be an integer", http.StatusBadRequest)
				return
			}
			if limit < 1 {
				writeError(w, "limit must be at least 1", http.StatusBadRequest)
				return
			}
		}

		report, err := reporter.Actions(r.Context(), account, days, limit)
		if err != nil {
			writeReportError(w, logger, account, err)
			return
		}

		logger.Debug("actions report built", "account", account, "days", days, "count", len(report.Actions))

		if wantsMarkdown(r) {
			writeMarkdown(w, renderer.Actions(report))
			return
		}
		writeJSON(w, report, http.StatusOK)
	})
}

// handleAccountQR returns a handler that serves a PNG QR code linking to the
// account's explorer page.
// GET /api/v1/accounts/{account}/qr?size={pixels}
func handleAccountQR(renderer *quiz.Renderer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := r.PathValue("account")
		if err := validateAccount(account); err != nil {
			logger.Debug("invalid account", "account", account, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		size := defaultQRSize
		if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
			n, err := strconv.Atoi(sizeStr)
			if err != nil || n < minQRSize || n > maxQRSize {
				writeError(w, fmt.Sprintf("size must be an integer between %d and %d", minQRSize, maxQRSize), http.StatusBadRequest)
				return
			}
			size = n
		}

		png, err := qrcode.Encode(renderer.AddressURL(account), qrcode.Medium, size)
		if err != nil {
			logger.Error("failed to encode QR code", "account", account, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	})
}

// handleGetToken returns a handler that resolves one mint.
// GET /api/v1/tokens/{mint}
func handleGetToken(resolver TokenResolver, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateAccount(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		token := resolver.Resolve(r.Context(), mint)
		if _, err := resolver.Flush(r.Context()); err != nil {
			logger.Error("failed to flush token cache", "error", err)
		}

		writeJSON(w, tokenToResponse(token), http.StatusOK)
	})
}

// handleListTokens returns a handler that lists every cached token.
// GET /api/v1/tokens
func handleListTokens(resolver TokenResolver, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cached := resolver.Tokens()
		resp := make([]tokenResponse, len(cached))
		for i, t := range cached {
			resp[i] = tokenToResponse(t)
		}

		logger.Debug("tokens listed", "count", len(resp))

		writeJSON(w, map[string]interface{}{
			"tokens": resp,
			"count":  len(resp),
		}, http.StatusOK)
	})
}

// tokenResponse is the JSON response format for a token.
type tokenResponse struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	LogoURI     string `json:"logo_uri,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

func tokenToResponse(t tokens.Token) tokenResponse {
	return tokenResponse{
		Address:     t.Address,
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    t.Decimals,
		LogoURI:     t.LogoURI,
		Placeholder: t.IsPlaceholder(),
	}
}

// writeReportError maps a reporting failure to a status code. Explorer
// failures are upstream problems and map to 502.
func writeReportError(w http.ResponseWriter, logger *slog.Logger, account string, err error) {
	var fetchErr *quiz.FetchError
	if errors.As(err, &fetchErr) {
		logger.Error("failed to fetch transfers", "account", account, "error", err)
		writeError(w, "failed to fetch transfers from explorer", http.StatusBadGateway)
		return
	}
	logger.Error("failed to build report", "account", account, "error", err)
	writeError(w, "internal server error", http.StatusInternalServerError)
}

func wantsMarkdown(r *http.Request) bool {
	return r.URL.Query().Get("format") == "markdown"
}

// writeMarkdown writes a MarkdownV2 response.
func writeMarkdown(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// parseDays parses the days query parameter, defaulting to a week.
func parseDays(s string, maxDays int) (int, error) {
	if s == "" {
		if defaultDays > maxDays {
			return maxDays, nil
		}
		return defaultDays, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil {
		return 0, errorf("invalid days parameter: must be an integer")
	}
	if days < 1 || days > maxDays {
		return 0, errorf("days must be between 1 and %d", maxDays)
	}
	return days, nil
}

// validateAddress validates an address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must contain only valid base58 characters")
	}

	return nil
}

// validateAccount checks the address format and that it decodes to a
// 32-byte public key.
func validateAccount(address string) error {
	if err := validateAddress(address); err != nil {
		return err
	}
	if _, err := solanago.PublicKeyFromBase58(address); err != nil {
		return errorf("invalid address: %v", err)
	}
	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
