package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/brojonat/solquiz/service/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuizReport() *quiz.QuizReport {
	return &quiz.QuizReport{
		Account:      "So11111111111111111111111111111111111111112",
		Days:         7,
		Transactions: 3,
		Positions: []quiz.Position{
			{Address: "mintA", Symbol: "AAA", Decimals: 6, NativeDelta: -2_000_000_000, TokenDelta: 500},
			{Address: "mintB", Symbol: "BBB", Decimals: 9, NativeDelta: 1_000_000_000, TokenDelta: -10},
		},
	}
}

func TestCompileFilters_Invalid(t *testing.T) {
	_, err := compileFilters([]string{".positions[] |"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters []string
		want    []any
	}{
		{
			name:    "no filters returns report",
			filters: nil,
			want:    nil,
		},
		{
			name:    "select losing positions",
			filters: []string{`.positions[] | select(.native_delta < 0) | .symbol`},
			want:    []any{"AAA"},
		},
		{
			name:    "chained filters",
			filters: []string{`.positions[]`, `.address`},
			want:    []any{"mintA", "mintB"},
		},
		{
			name:    "aggregate",
			filters: []string{`[.positions[].native_delta] | add`},
			want:    []any{float64(-1_000_000_000)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := compileFilters(tt.filters)
			require.NoError(t, err)

			values, err := applyFilters(sampleQuizReport(), code)
			require.NoError(t, err)

			if tt.want == nil {
				require.Len(t, values, 1)
				m, ok := values[0].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "So11111111111111111111111111111111111111112", m["account"])
				return
			}
			assert.Equal(t, tt.want, values)
		})
	}
}

func TestApplyFilters_RuntimeError(t *testing.T) {
	code, err := compileFilters([]string{`.account | tonumber`})
	require.NoError(t, err)

	_, err = applyFilters(sampleQuizReport(), code)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jq filter failed")
}

func TestWriteFiltered_OneDocumentPerResult(t *testing.T) {
	code, err := compileFilters([]string{`.positions[] | {address, token_delta}`})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeFiltered(&buf, sampleQuizReport(), code))

	dec := json.NewDecoder(&buf)
	var got []map[string]any
	for dec.More() {
		var v map[string]any
		require.NoError(t, dec.Decode(&v))
		got = append(got, v)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "mintB", got[1]["address"])
	assert.Equal(t, float64(-10), got[1]["token_delta"])
}

func TestQuizCommand_Validation(t *testing.T) {
	_, err := runApp(t, "quiz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account address is required")

	_, err = runApp(t, "quiz", "--days", "0", "So11111111111111111111111111111111111111112")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "days must be at least 1")

	_, err = runApp(t, "quiz", "--jq", ".[", "So11111111111111111111111111111111111111112")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestActionsCommand_Validation(t *testing.T) {
	_, err := runApp(t, "actions", "--limit", "-1", "So11111111111111111111111111111111111111112")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must not be negative")
}

func TestTokenLookup_InvalidMint(t *testing.T) {
	_, err := runApp(t, "tokens", "lookup", "not-a-mint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mint address")
}
