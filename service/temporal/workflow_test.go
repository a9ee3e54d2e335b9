package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

const testAccount = "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK"

func TestDigestWorkflow(t *testing.T) {
	tests := []struct {
		name          string
		input         DigestInput
		buildResult   *BuildDigestResult
		buildErr      error
		sendErr       error
		expectedError bool
		expectedSends int
		validate      func(*testing.T, *DigestResult)
	}{
		{
			name:          "builds and sends quiz digest",
			input:         DigestInput{Account: testAccount, Days: 7, ChatID: 42},
			buildResult:   &BuildDigestResult{Text: "report", Rows: 3},
			expectedSends: 1,
			validate: func(t *testing.T, r *DigestResult) {
				assert.Equal(t, testAccount, r.Account)
				assert.Equal(t, CommandQuiz, r.Command)
				assert.Equal(t, 3, r.Rows)
				assert.True(t, r.Sent)
				assert.Nil(t, r.Error)
			},
		},
		{
			name:          "empty digest is sent by default",
			input:         DigestInput{Account: testAccount, Days: 7, ChatID: 42, Command: CommandActions},
			buildResult:   &BuildDigestResult{Text: "No activity", Rows: 0},
			expectedSends: 1,
			validate: func(t *testing.T, r *DigestResult) {
				assert.Equal(t, CommandActions, r.Command)
				assert.True(t, r.Sent)
			},
		},
		{
			name:          "empty digest skipped",
			input:         DigestInput{Account: testAccount, Days: 7, ChatID: 42, SkipEmpty: true},
			buildResult:   &BuildDigestResult{Text: "No trades", Rows: 0},
			expectedSends: 0,
			validate: func(t *testing.T, r *DigestResult) {
				assert.False(t, r.Sent)
			},
		},
		{
			name:          "build failure is not retried",
			input:         DigestInput{Account: testAccount, Days: 7, ChatID: 42},
			buildErr:      errors.New("explorer unavailable"),
			expectedError: true,
			expectedSends: 0,
		},
		{
			name:          "send failure fails the run",
			input:         DigestInput{Account: testAccount, Days: 7, ChatID: 42},
			buildResult:   &BuildDigestResult{Text: "report", Rows: 1},
			sendErr:       errors.New("chat not found"),
			expectedError: true,
			expectedSends: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestWorkflowEnvironment()

			activities := &Activities{}
			env.RegisterActivity(activities.BuildDigest)
			env.RegisterActivity(activities.SendDigest)

			buildCalls := 0
			env.OnActivity(activities.BuildDigest, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { buildCalls++ }).
				Return(tt.buildResult, tt.buildErr)

			sendCalls := 0
			env.OnActivity(activities.SendDigest, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { sendCalls++ }).
				Return(tt.sendErr)

			env.ExecuteWorkflow(DigestWorkflow, tt.input)

			require.True(t, env.IsWorkflowCompleted())
			assert.Equal(t, 1, buildCalls)
			assert.Equal(t, tt.expectedSends, sendCalls)

			if tt.expectedError {
				assert.Error(t, env.GetWorkflowError())
				return
			}

			require.NoError(t, env.GetWorkflowError())
			var result DigestResult
			require.NoError(t, env.GetWorkflowResult(&result))
			tt.validate(t, &result)
		})
	}
}

func TestDigestWorkflow_PassesChatAndText(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.BuildDigest)
	env.RegisterActivity(activities.SendDigest)

	env.OnActivity(activities.BuildDigest, mock.Anything, mock.Anything).
		Return(&BuildDigestResult{Text: "rendered", Rows: 1}, nil)

	var got SendDigestInput
	env.OnActivity(activities.SendDigest, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(SendDigestInput) }).
		Return(nil)

	env.ExecuteWorkflow(DigestWorkflow, DigestInput{Account: testAccount, Days: 1, ChatID: -100123})

	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, int64(-100123), got.ChatID)
	assert.Equal(t, "rendered", got.Text)
}
