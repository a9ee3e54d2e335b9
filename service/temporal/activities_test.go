package temporal

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/brojonat/solquiz/service/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReporter is a testify mock of ReporterInterface.
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Quiz(ctx context.Context, account string, days int) (*quiz.QuizReport, error) {
	args := m.Called(ctx, account, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quiz.QuizReport), args.Error(1)
}

func (m *MockReporter) Actions(ctx context.Context, account string, days, limit int) (*quiz.ActionsReport, error) {
	args := m.Called(ctx, account, days, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quiz.ActionsReport), args.Error(1)
}

// MockSender is a testify mock of ChatSender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

func newTestActivities(reporter *MockReporter, sender *MockSender) *Activities {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewActivities(reporter, quiz.NewRenderer("https://solana.fm", time.UTC), sender, nil, logger)
}

func TestBuildDigest_Quiz(t *testing.T) {
	reporter := new(MockReporter)
	reporter.On("Quiz", mock.Anything, testAccount, 7).Return(&quiz.QuizReport{
		Account: testAccount,
		Days:    7,
		Positions: []quiz.Position{
			{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6, NativeDelta: -1_000_000_000, TokenDelta: 150_000_000},
		},
	}, nil)

	a := newTestActivities(reporter, new(MockSender))
	result, err := a.BuildDigest(context.Background(), DigestInput{Account: testAccount, Days: 7})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Contains(t, result.Text, `\-1 SOL vs 150 USDC`)
	reporter.AssertExpectations(t)
}

func TestBuildDigest_Actions(t *testing.T) {
	reporter := new(MockReporter)
	reporter.On("Actions", mock.Anything, testAccount, 3, 10).Return(&quiz.ActionsReport{
		Account: testAccount,
		Days:    3,
	}, nil)

	a := newTestActivities(reporter, new(MockSender))
	result, err := a.BuildDigest(context.Background(), DigestInput{Account: testAccount, Days: 3, Command: CommandActions, Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Rows)
	assert.Contains(t, result.Text, "No activity for DYw8jC")
}

func TestBuildDigest_Errors(t *testing.T) {
	t.Run("reporter failure", func(t *testing.T) {
		reporter := new(MockReporter)
		reporter.On("Quiz", mock.Anything, testAccount, 7).
			Return(nil, &quiz.FetchError{Account: testAccount, Err: errors.New("502")})

		a := newTestActivities(reporter, new(MockSender))
		_, err := a.BuildDigest(context.Background(), DigestInput{Account: testAccount, Days: 7})

		require.Error(t, err)
		var fetchErr *quiz.FetchError
		assert.True(t, errors.As(err, &fetchErr))
	})

	t.Run("unknown command", func(t *testing.T) {
		a := newTestActivities(new(MockReporter), new(MockSender))
		_, err := a.BuildDigest(context.Background(), DigestInput{Account: testAccount, Days: 7, Command: "portfolio"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid digest command")
	})
}

func TestSendDigest(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendMarkdown", mock.Anything, int64(42), "hello").Return(nil).Once()
	sender.On("SendMarkdown", mock.Anything, int64(7), "hello").Return(errors.New("blocked")).Once()

	a := newTestActivities(new(MockReporter), sender)

	require.NoError(t, a.SendDigest(context.Background(), SendDigestInput{ChatID: 42, Text: "hello"}))

	err := a.SendDigest(context.Background(), SendDigestInput{ChatID: 7, Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	sender.AssertExpectations(t)
}

func TestScheduleID(t *testing.T) {
	tests := []struct {
		account string
		chatID  int64
	}{
		{testAccount, 42},
		{testAccount, -1001234567890},
	}

	for _, tt := range tests {
		id := scheduleID(tt.account, tt.chatID)
		account, chatID, ok := parseScheduleID(id)
		require.True(t, ok, id)
		assert.Equal(t, tt.account, account)
		assert.Equal(t, tt.chatID, chatID)
	}

	for _, id := range []string{"poll-wallet-x", "digest-", "digest-42", "digest-abc-" + testAccount, "digest-42-"} {
		_, _, ok := parseScheduleID(id)
		assert.False(t, ok, id)
	}
}

func TestMockScheduler(t *testing.T) {
	ctx := context.Background()
	m := NewMockScheduler()

	input := DigestInput{Account: testAccount, Days: 7, ChatID: 42}
	require.NoError(t, m.UpsertDigestSchedule(ctx, input, 24*time.Hour))
	require.NoError(t, m.UpsertDigestSchedule(ctx, input, 12*time.Hour))
	assert.Equal(t, 1, m.ScheduleCount())

	_, every, ok := m.GetSchedule(testAccount, 42)
	require.True(t, ok)
	assert.Equal(t, 12*time.Hour, every)

	list, err := m.ListDigestSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, scheduleID(testAccount, 42), list[0].ID)

	require.NoError(t, m.DeleteDigestSchedule(ctx, testAccount, 42))
	assert.False(t, m.ScheduleExists(testAccount, 42))
	assert.Error(t, m.DeleteDigestSchedule(ctx, testAccount, 42))

	m.SetCreateError(errors.New("temporal down"))
	assert.Error(t, m.UpsertDigestSchedule(ctx, input, time.Hour))
	m.Reset()
	assert.NoError(t, m.UpsertDigestSchedule(ctx, input, time.Hour))
}
