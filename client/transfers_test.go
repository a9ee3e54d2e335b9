package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTransactions(prefix string, n int) []Transaction {
	txs := make([]Transaction, n)
	for i := range txs {
		txs[i] = Transaction{
			TransactionHash: fmt.Sprintf("%s-%d", prefix, i),
			Data: []Instruction{{
				Action:    ActionTransfer,
				Status:    StatusSuccessful,
				Source:    "src",
				Token:     "mint",
				Amount:    int64(i + 1),
				Timestamp: 1700000000,
			}},
		}
	}
	return txs
}

func TestAccountTransfers_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v0/accounts/wallet123/transfers", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("utcFrom"))
		assert.Equal(t, "200", r.URL.Query().Get("utcTo"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(transfersResponse{
			Message: "ok",
			Results: makeTransactions("a", 3),
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	txs, err := c.AccountTransfers(context.Background(), "wallet123", 100, 200, 1000)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "a-0", txs[0].TransactionHash)
	assert.Equal(t, int64(1), txs[0].Data[0].Amount)
}

func TestAccountTransfers_PaginatesUntilShortPage(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var results []Transaction
		switch r.URL.Query().Get("page") {
		case "1":
			results = makeTransactions("p1", PageSize)
		case "2":
			results = makeTransactions("p2", 10)
		default:
			t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
		}
		json.NewEncoder(w).Encode(transfersResponse{Results: results})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	txs, err := c.AccountTransfers(context.Background(), "wallet123", 0, 1, 1000)
	require.NoError(t, err)
	assert.Len(t, txs, PageSize+10)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "p2-9", txs[len(txs)-1].TransactionHash)
}

func TestAccountTransfers_StopsAtLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(transfersResponse{Results: makeTransactions(r.URL.Query().Get("page"), PageSize)})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	txs, err := c.AccountTransfers(context.Background(), "wallet123", 0, 1, 150)
	require.NoError(t, err)
	assert.Len(t, txs, 150)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAccountTransfers_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "rate limited"})
	}))
	defer server.Close()

	var observed []string
	c := NewClient(server.URL, nil, nil).WithPageObserver(func(status string, _ time.Duration) {
		observed = append(observed, status)
	})
	txs, err := c.AccountTransfers(context.Background(), "wallet123", 0, 1, 100)
	require.Error(t, err)
	assert.Nil(t, txs)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate limited", apiErr.Message)
	assert.Equal(t, []string{"error"}, observed)
}

func TestAccountTransfers_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	_, err := c.AccountTransfers(context.Background(), "wallet123", 0, 1, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestInstruction_DecodesExplorerPayload(t *testing.T) {
	payload := `{
		"transactionHash": "5xyz",
		"data": [
			{"action": "transferChecked", "status": "Successful", "source": "A", "sourceAssociation": "Aata",
			 "destination": "B", "destination_association": null, "token": "mint", "amount": 42, "timestamp": 1700000000},
			{"action": "createAccount", "status": "Successful", "source": "A", "token": "", "amount": 0, "timestamp": 1700000000}
		]
	}`

	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(payload), &tx))
	require.Len(t, tx.Data, 2)

	first := tx.Data[0]
	assert.Equal(t, ActionTransferChecked, first.Action)
	assert.True(t, first.Action.IsTransfer())
	require.NotNil(t, first.SourceAssociation)
	assert.Equal(t, "Aata", *first.SourceAssociation)
	require.NotNil(t, first.Destination)
	assert.Equal(t, "B", *first.Destination)
	assert.Nil(t, first.DestinationAssociation)
	assert.Equal(t, int64(42), first.Amount)

	second := tx.Data[1]
	assert.Equal(t, ActionUnknown, second.Action)
	assert.False(t, second.Action.IsTransfer())
	assert.Nil(t, second.Destination)
	assert.True(t, tx.Successful())
}

func TestTransaction_Successful(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     bool
	}{
		{"all successful", []string{"Successful", "Successful"}, true},
		{"one failed", []string{"Successful", "Failed"}, false},
		{"no instructions", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := Transaction{TransactionHash: "h"}
			for _, s := range tt.statuses {
				tx.Data = append(tx.Data, Instruction{Status: s})
			}
			assert.Equal(t, tt.want, tx.Successful())
		})
	}
}
