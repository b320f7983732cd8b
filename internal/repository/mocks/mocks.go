// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

type StatsRepository struct {
	mock.Mock
}

func (m *StatsRepository) IncrementCounter(ctx context.Context, day string, field string, amount int64) error {
	args := m.Called(ctx, day, field, amount)
	return args.Error(0)
}

func (m *StatsRepository) IncrementHourly(ctx context.Context, day string, hour int, field string, amount int64) error {
	args := m.Called(ctx, day, hour, field, amount)
	return args.Error(0)
}

func (m *StatsRepository) RecordPeakRooms(ctx context.Context, day string, active int) error {
	args := m.Called(ctx, day, active)
	return args.Error(0)
}

func (m *StatsRepository) AddConnection(ctx context.Context, day string, connID string) error {
	args := m.Called(ctx, day, connID)
	return args.Error(0)
}

func (m *StatsRepository) FindRange(ctx context.Context, from, to string) ([]domain.DailyStat, error) {
	args := m.Called(ctx, from, to)
	if stats, ok := args.Get(0).([]domain.DailyStat); ok {
		return stats, args.Error(1)
	}
	return nil, args.Error(1)
}

type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, session *domain.TransferSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.TransferSession, error) {
	args := m.Called(ctx, sessionID)
	if session, ok := args.Get(0).(*domain.TransferSession); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) UpdateStatus(ctx context.Context, sessionID string, status domain.TransferStatus) error {
	args := m.Called(ctx, sessionID, status)
	return args.Error(0)
}

func (m *SessionRepository) Finish(ctx context.Context, sessionID string, status domain.TransferStatus, endedAt time.Time, durationMs int64, reason string) error {
	args := m.Called(ctx, sessionID, status, endedAt, durationMs, reason)
	return args.Error(0)
}

func (m *SessionRepository) IncrementSignal(ctx context.Context, sessionID string, kind domain.SignalKind) error {
	args := m.Called(ctx, sessionID, kind)
	return args.Error(0)
}

type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Insert(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *EventRepository) CountSince(ctx context.Context, from time.Time) (int64, error) {
	args := m.Called(ctx, from)
	return args.Get(0).(int64), args.Error(1)
}

type ErrorLogRepository struct {
	mock.Mock
}

func (m *ErrorLogRepository) Insert(ctx context.Context, entry *domain.ErrorLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ErrorLogRepository) CountByKind(ctx context.Context, from time.Time) ([]domain.ErrorCount, error) {
	args := m.Called(ctx, from)
	if counts, ok := args.Get(0).([]domain.ErrorCount); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}
