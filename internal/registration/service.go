package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-registration/internal/database"
	"ms-registration/internal/domain"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/visitor"
)

type DBLayer interface {
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistrationByID(ctx context.Context, id string) (*models.Registration, error)
	GetRegistrationByNumber(ctx context.Context, number string) (*models.Registration, error)
	GetRegistrationByVisitorAndExhibition(ctx context.Context, visitorID, exhibitionID string) (*models.Registration, error)
	BumpVisitorRegistration(ctx context.Context, visitorID string) error
	SetBadgeFile(ctx context.Context, registrationID, fileName string) error
	GetVisitorByID(ctx context.Context, id string) (*models.Visitor, error)
	GetExhibitionByID(ctx context.Context, id string) (*models.Exhibition, error)
	GetPricingTier(ctx context.Context, id string) (*models.PricingTier, error)
}

type VisitorResolver interface {
	Resolve(ctx context.Context, in visitor.Input) (*models.Visitor, error)
}

type SequenceSource interface {
	NextRegistrationNumber(ctx context.Context, day time.Time) (string, error)
}

// BadgeGenerator is the compositor seam. Generate returns the artifact file
// name, or an error the service degrades on; it must never block the
// registration outcome.
type BadgeGenerator interface {
	Generate(ctx context.Context, reg *models.Registration, vis *models.Visitor, ex *models.Exhibition) (string, error)
	Latest(registrationID string) (string, bool)
}

type EventPublisher interface {
	PublishRegistrationCreated(reg models.Registration) error
	PublishBadgeGenerated(registrationNumber, fileName string) error
}

type Request struct {
	ExhibitionID string        `json:"exhibition_id"`
	Category     string        `json:"category"`
	TierID       string        `json:"tier_id,omitempty"`
	Days         []int         `json:"days,omitempty"`
	Visitor      visitor.Input `json:"visitor"`
}

type Response struct {
	RegistrationNumber string                   `json:"registration_number"`
	Status             string                   `json:"status"`
	AmountDue          float64                  `json:"amount_due"`
	Visitor            models.VisitorSummary    `json:"visitor"`
	Exhibition         models.ExhibitionSummary `json:"exhibition"`
	QRData             string                   `json:"qr_data"`
	BadgeURL           *string                  `json:"badge_url"`
}

type Service struct {
	DB        DBLayer
	Visitors  VisitorResolver
	Sequences SequenceSource
	Badges    BadgeGenerator
	Kafka     EventPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewService(db DBLayer, visitors VisitorResolver, sequences SequenceSource, badges BadgeGenerator, kafka EventPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:        db,
		Visitors:  visitors,
		Sequences: sequences,
		Badges:    badges,
		Kafka:     kafka,
		Logger:    log,
		Now:       time.Now,
	}
}

// Create registers a visitor for an exhibition. The duplicate pre-check is a
// fast path only; the unique (visitor, exhibition) index is what actually
// holds under concurrency, and its violation is translated into the same
// conflict error so callers see uniform behavior regardless of which layer
// caught the race.
func (s *Service) Create(ctx context.Context, req Request) (*Response, error) {
	now := s.Now()

	if req.ExhibitionID == "" {
		return nil, domain.Validationf("exhibition_id is required")
	}

	ex, err := s.DB.GetExhibitionByID(ctx, req.ExhibitionID)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(ex, now); err != nil {
		return nil, err
	}

	amount, err := s.priceSelection(ctx, ex, req, now)
	if err != nil {
		return nil, err
	}

	vis, err := s.Visitors.Resolve(ctx, req.Visitor)
	if err != nil {
		return nil, err
	}

	if existing, err := s.DB.GetRegistrationByVisitorAndExhibition(ctx, vis.ID, ex.ID); err == nil {
		return nil, fmt.Errorf("%w (registration %s)", domain.ErrAlreadyRegistered, existing.RegistrationNumber)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// No safe fallback exists for "how do I get a unique number" without
	// the store, so allocation failure aborts the whole attempt.
	number, err := s.Sequences.NextRegistrationNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		ID:                 uuid.NewString(),
		RegistrationNumber: number,
		VisitorID:          vis.ID,
		ExhibitionID:       ex.ID,
		Category:           req.Category,
		TierID:             req.TierID,
		DaysSelected:       req.Days,
		AmountDue:          amount,
		Status:             models.StatusRegistered,
		QRPayload:          number,
		CreatedAt:          now,
	}

	if err := s.DB.CreateRegistration(ctx, reg); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w", domain.ErrAlreadyRegistered)
		}
		return nil, fmt.Errorf("registration insert: %w", err)
	}

	if err := s.DB.BumpVisitorRegistration(ctx, vis.ID); err != nil && s.Logger != nil {
		s.Logger.Warn("REGISTRATION", fmt.Sprintf("counter bump failed for visitor %s: %v", vis.ID, err))
	}

	resp := &Response{
		RegistrationNumber: number,
		Status:             reg.Status,
		AmountDue:          amount,
		Visitor:            vis.Summary(),
		Exhibition:         ex.Summary(),
		QRData:             number,
	}

	// Badge failure degrades to the plain QR payload, never to a failed
	// registration.
	if s.Badges != nil {
		fileName, badgeErr := s.Badges.Generate(ctx, reg, vis, ex)
		if badgeErr != nil || fileName == "" {
			if s.Logger != nil {
				s.Logger.Warn("BADGE", fmt.Sprintf("generation failed for %s, serving plain QR: %v", number, badgeErr))
			}
		} else {
			if err := s.DB.SetBadgeFile(ctx, reg.ID, fileName); err != nil && s.Logger != nil {
				s.Logger.Warn("BADGE", fmt.Sprintf("recording badge file for %s: %v", number, err))
			}
			url := badgeURL(reg.ID)
			resp.BadgeURL = &url
			if s.Kafka != nil {
				if err := s.Kafka.PublishBadgeGenerated(number, fileName); err != nil && s.Logger != nil {
					s.Logger.LogKafka("PUBLISH", "badge-events", fmt.Sprintf("failed for %s: %v", number, err))
				}
			}
		}
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishRegistrationCreated(*reg); err != nil && s.Logger != nil {
			s.Logger.LogKafka("PUBLISH", "registration-events", fmt.Sprintf("failed for %s: %v", number, err))
		}
	}

	if s.Logger != nil {
		s.Logger.LogRegistration("CREATE", number, fmt.Sprintf("visitor %s, exhibition %s", vis.ID, ex.ID))
	}
	return resp, nil
}

// Badge returns the current badge file for a registration, regenerating it
// from durable records when no file exists. Artifacts are always derivable;
// they are never the sole source of truth. When composition fails the plain
// QR payload is returned instead.
func (s *Service) Badge(ctx context.Context, registrationID string) (string, string, error) {
	reg, err := s.DB.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return "", "", err
	}

	if s.Badges != nil {
		if path, ok := s.Badges.Latest(reg.ID); ok {
			return path, reg.QRPayload, nil
		}

		vis, err := s.DB.GetVisitorByID(ctx, reg.VisitorID)
		if err != nil {
			return "", reg.QRPayload, nil
		}
		ex, err := s.DB.GetExhibitionByID(ctx, reg.ExhibitionID)
		if err != nil {
			return "", reg.QRPayload, nil
		}

		fileName, genErr := s.Badges.Generate(ctx, reg, vis, ex)
		if genErr == nil && fileName != "" {
			if err := s.DB.SetBadgeFile(ctx, reg.ID, fileName); err != nil && s.Logger != nil {
				s.Logger.Warn("BADGE", fmt.Sprintf("recording regenerated badge for %s: %v", reg.RegistrationNumber, err))
			}
			if s.Kafka != nil {
				if err := s.Kafka.PublishBadgeGenerated(reg.RegistrationNumber, fileName); err != nil && s.Logger != nil {
					s.Logger.LogKafka("PUBLISH", "badge-events", fmt.Sprintf("failed for %s: %v", reg.RegistrationNumber, err))
				}
			}
			if path, ok := s.Badges.Latest(reg.ID); ok {
				return path, reg.QRPayload, nil
			}
		}
		if s.Logger != nil {
			s.Logger.Warn("BADGE", fmt.Sprintf("lazy regeneration failed for %s, serving plain QR: %v", reg.RegistrationNumber, genErr))
		}
	}

	return "", reg.QRPayload, nil
}

func (s *Service) priceSelection(ctx context.Context, ex *models.Exhibition, req Request, now time.Time) (float64, error) {
	if !ex.Paid {
		return 0, nil
	}
	if req.TierID == "" {
		return 0, fmt.Errorf("%w: tier_id is required for a paid exhibition", domain.ErrInvalidPricing)
	}
	tier, err := s.DB.GetPricingTier(ctx, req.TierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: unknown tier %s", domain.ErrInvalidPricing, req.TierID)
		}
		return 0, err
	}
	if err := validateTier(tier, ex.ID, now); err != nil {
		return 0, err
	}
	return computeAmount(tier, req.Days)
}

// validateWindow enforces now within [registration start, registration end].
// The end boundary is inclusive: registering exactly at the end succeeds.
func validateWindow(ex *models.Exhibition, now time.Time) error {
	if ex.Status != models.ExhibitionPublished {
		return fmt.Errorf("%w: exhibition %s is %s", domain.ErrRegistrationClosed, ex.ID, ex.Status)
	}
	if !ex.RegistrationStartDate.IsZero() && now.Before(ex.RegistrationStartDate) {
		return fmt.Errorf("%w: registration opens %s", domain.ErrRegistrationClosed, ex.RegistrationStartDate.Format(time.RFC3339))
	}
	if !ex.RegistrationEndDate.IsZero() && now.After(ex.RegistrationEndDate) {
		return fmt.Errorf("%w: registration ended %s", domain.ErrRegistrationClosed, ex.RegistrationEndDate.Format(time.RFC3339))
	}
	return nil
}

func badgeURL(registrationID string) string {
	return fmt.Sprintf("/registrations/%s/badge", registrationID)
}
