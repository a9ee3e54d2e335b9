package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PageSize is the number of transactions requested per page. A page shorter
// than this ends pagination.
const PageSize = 100

// StatusSuccessful is the instruction status the explorer reports for
// transfers that executed.
const StatusSuccessful = "Successful"

// Action is the kind of a transfer instruction.
type Action string

const (
	ActionTransfer        Action = "transfer"
	ActionTransferChecked Action = "transferChecked"
	ActionUnknown         Action = "unknown"
)

// UnmarshalJSON maps any action the explorer reports that is not a transfer
// onto ActionUnknown.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode action: %w", err)
	}
	switch Action(s) {
	case ActionTransfer, ActionTransferChecked:
		*a = Action(s)
	default:
		*a = ActionUnknown
	}
	return nil
}

// IsTransfer reports whether the action moves a balance.
func (a Action) IsTransfer() bool {
	return a == ActionTransfer || a == ActionTransferChecked
}

// Instruction is one transfer event inside a transaction.
// An empty Token means the instruction carries no token and should be skipped.
type Instruction struct {
	Action                 Action  `json:"action"`
	Status                 string  `json:"status"`
	Source                 string  `json:"source"`
	SourceAssociation      *string `json:"sourceAssociation,omitempty"`
	Destination            *string `json:"destination,omitempty"`
	DestinationAssociation *string `json:"destination_association,omitempty"`
	Token                  string  `json:"token"`
	Amount                 int64   `json:"amount"`
	Timestamp              int64   `json:"timestamp"`
}

// Transaction is a transaction hash plus its ordered instructions.
type Transaction struct {
	TransactionHash string        `json:"transactionHash"`
	Data            []Instruction `json:"data"`
}

// Successful reports whether every instruction has the successful status.
func (t Transaction) Successful() bool {
	for _, ins := range t.Data {
		if ins.Status != StatusSuccessful {
			return false
		}
	}
	return true
}

type transfersResponse struct {
	Message string        `json:"message"`
	Results []Transaction `json:"results"`
}

// APIError is returned when the explorer answers with a non-200 status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("explorer request failed with status %d: %s", e.StatusCode, e.Message)
}

// PageObserver is notified after every page fetched. It is used for metrics.
type PageObserver func(status string, duration time.Duration)

// Client is the HTTP client for the explorer transfers API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	observer   PageObserver
}

// NewClient creates a new explorer client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// WithPageObserver registers a callback invoked after every page request.
func (c *Client) WithPageObserver(fn PageObserver) *Client {
	c.observer = fn
	return c
}

// AccountTransfers pages through the transfers of account between from and to
// (unix seconds), newest first. Pages are fetched one at a time until limit
// transactions are collected or a short page is returned. Any failed page
// aborts the whole fetch.
func (c *Client) AccountTransfers(ctx context.Context, account string, from, to int64, limit int) ([]Transaction, error) {
	var transactions []Transaction
	for page := 1; len(transactions) < limit; page++ {
		results, err := c.fetchPage(ctx, account, from, to, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		transactions = append(transactions, results...)

		c.logger.DebugContext(ctx, "fetched transfers page",
			"account", account,
			"page", page,
			"results", len(results),
		)

		if len(results) < PageSize {
			break
		}
	}

	if len(transactions) > limit {
		transactions = transactions[:limit]
	}
	return transactions, nil
}

func (c *Client) fetchPage(ctx context.Context, account string, from, to int64, page int) (results []Transaction, err error) {
	start := time.Now()
	defer func() {
		if c.observer == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		c.observer(status, time.Since(start))
	}()

	q := url.Values{}
	q.Set("utcFrom", strconv.FormatInt(from, 10))
	q.Set("utcTo", strconv.FormatInt(to, 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(PageSize))
	u := fmt.Sprintf("%s/v0/accounts/%s/transfers?%s", c.baseURL, url.PathEscape(account), q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var response transfersResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return response.Results, nil
}

// parseErrorResponse turns a non-200 explorer response into an *APIError.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	msg := string(body)
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			msg = errResp.Error
		case errResp.Message != "":
			msg = errResp.Message
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
