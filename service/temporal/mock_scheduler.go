package temporal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockScheduler is a mock implementation of Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]mockSchedule
	createErr error
	deleteErr error
}

type mockSchedule struct {
	input DigestInput
	every time.Duration
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]mockSchedule),
	}
}

// UpsertDigestSchedule creates or updates a schedule.
func (m *MockScheduler) UpsertDigestSchedule(ctx context.Context, input DigestInput, every time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}

	m.schedules[scheduleID(input.Account, input.ChatID)] = mockSchedule{input: input, every: every}
	return nil
}

// DeleteDigestSchedule records that a schedule was deleted.
func (m *MockScheduler) DeleteDigestSchedule(ctx context.Context, account string, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}

	id := scheduleID(account, chatID)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}

	delete(m.schedules, id)
	return nil
}

// ListDigestSchedules returns the recorded schedules ordered by ID.
func (m *MockScheduler) ListDigestSchedules(ctx context.Context) ([]DigestSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]DigestSchedule, 0, len(m.schedules))
	for id, s := range m.schedules {
		out = append(out, DigestSchedule{
			ID:      id,
			Account: s.input.Account,
			ChatID:  s.input.ChatID,
			Every:   s.every,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetCreateError makes UpsertDigestSchedule return an error.
func (m *MockScheduler) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// SetDeleteError makes DeleteDigestSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// ScheduleExists checks if a schedule exists for a chat and account.
func (m *MockScheduler) ScheduleExists(account string, chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.schedules[scheduleID(account, chatID)]
	return exists
}

// GetSchedule returns the input and interval of a schedule.
func (m *MockScheduler) GetSchedule(account string, chatID int64) (DigestInput, time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.schedules[scheduleID(account, chatID)]
	return s.input, s.every, exists
}

// ScheduleCount returns the number of schedules.
func (m *MockScheduler) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}

// Reset clears all schedules and errors.
func (m *MockScheduler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = make(map[string]mockSchedule)
	m.createErr = nil
	m.deleteErr = nil
}
