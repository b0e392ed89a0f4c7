// Package checkin transitions a registration to CHECKED_IN exactly once.
// Two layers cooperate: a short-lived named lock keeps twenty kiosks
// scanning the same badge from doing redundant work, and a conditional
// storage update guarantees at-most-once even if the lock layer is
// unavailable or buggy.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-registration/internal/domain"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

type DBLayer interface {
	GetRegistrationByNumber(ctx context.Context, number string) (*models.Registration, error)
	MarkCheckedIn(ctx context.Context, number string, at time.Time) (bool, error)
	GetVisitorByID(ctx context.Context, id string) (*models.Visitor, error)
	GetExhibitionByID(ctx context.Context, id string) (*models.Exhibition, error)
}

type EventPublisher interface {
	PublishCheckedIn(reg models.Registration) error
}

type Result struct {
	RegistrationNumber string                   `json:"registration_number"`
	CheckInTime        time.Time                `json:"check_in_time"`
	Visitor            models.VisitorSummary    `json:"visitor"`
	Exhibition         models.ExhibitionSummary `json:"exhibition"`
}

type Service struct {
	DB      DBLayer
	Lock    Locker
	Kafka   EventPublisher
	Logger  *logger.Logger
	LockTTL time.Duration
	Now     func() time.Time
}

func NewService(db DBLayer, lock Locker, kafka EventPublisher, lockTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		DB:      db,
		Lock:    lock,
		Kafka:   kafka,
		Logger:  log,
		LockTTL: lockTTL,
		Now:     time.Now,
	}
}

// CheckIn attempts the REGISTERED -> CHECKED_IN transition for a scanned
// registration number. Lock contention is rejected immediately as transient;
// the attempt never queues or blocks behind another kiosk.
func (s *Service) CheckIn(ctx context.Context, number string) (*Result, error) {
	if number == "" {
		return nil, domain.Validationf("registration number is required")
	}

	token, acquired, err := s.Lock.Acquire(ctx, number, s.LockTTL)
	if err != nil {
		// Lock-service unavailability does not sacrifice correctness: the
		// conditional update below still guarantees at-most-once.
		if s.Logger != nil {
			s.Logger.Warn("CHECKIN", fmt.Sprintf("lock service unavailable for %s, proceeding unlocked: %v", number, err))
		}
	} else if !acquired {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockContention, number)
	}
	if token != "" {
		defer func() {
			// Release must run on every exit path; a fresh context so a
			// cancelled request still cleans up.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.Lock.Release(releaseCtx, number, token); err != nil && s.Logger != nil {
				s.Logger.Warn("CHECKIN", fmt.Sprintf("lock release for %s: %v", number, err))
			}
		}()
	}

	reg, err := s.DB.GetRegistrationByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if reg.Status == models.StatusCancelled {
		return nil, fmt.Errorf("%w: %s", domain.ErrCancelled, number)
	}
	if reg.CheckInTime != nil {
		return nil, &domain.AlreadyCheckedInError{At: *reg.CheckInTime}
	}

	now := s.Now()
	updated, err := s.DB.MarkCheckedIn(ctx, number, now)
	if err != nil {
		return nil, fmt.Errorf("check-in update for %s: %w", number, err)
	}
	if !updated {
		// Another request won the race between our read and the update.
		// Re-read and report the winning timestamp as a normal rejection.
		current, err := s.DB.GetRegistrationByNumber(ctx, number)
		if err == nil && current.CheckInTime != nil {
			return nil, &domain.AlreadyCheckedInError{At: *current.CheckInTime}
		}
		if err == nil && current.Status == models.StatusCancelled {
			return nil, fmt.Errorf("%w: %s", domain.ErrCancelled, number)
		}
		return nil, errors.New("check-in conflict: registration not updatable")
	}

	reg.Status = models.StatusCheckedIn
	reg.CheckInTime = &now

	if s.Kafka != nil {
		if err := s.Kafka.PublishCheckedIn(*reg); err != nil && s.Logger != nil {
			s.Logger.LogKafka("PUBLISH", "checkin-events", fmt.Sprintf("failed for %s: %v", number, err))
		}
	}
	if s.Logger != nil {
		s.Logger.LogCheckin(number, fmt.Sprintf("checked in at %s", now.Format(time.RFC3339)))
	}

	result := &Result{
		RegistrationNumber: number,
		CheckInTime:        now,
	}
	if vis, err := s.DB.GetVisitorByID(ctx, reg.VisitorID); err == nil {
		result.Visitor = vis.Summary()
	}
	if ex, err := s.DB.GetExhibitionByID(ctx, reg.ExhibitionID); err == nil {
		result.Exhibition = ex.Summary()
	}
	return result, nil
}
