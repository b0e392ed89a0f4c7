package registration

import (
	"fmt"
	"time"

	"ms-registration/internal/domain"
	"ms-registration/internal/models"
)

// validateTier checks that the selected tier belongs to the exhibition, is
// active and is inside its own date window.
func validateTier(tier *models.PricingTier, exhibitionID string, now time.Time) error {
	if tier.ExhibitionID != exhibitionID {
		return fmt.Errorf("%w: tier %s does not belong to exhibition %s", domain.ErrInvalidPricing, tier.ID, exhibitionID)
	}
	if !tier.Active {
		return fmt.Errorf("%w: tier %s is not active", domain.ErrInvalidPricing, tier.ID)
	}
	if !tier.StartDate.IsZero() && now.Before(tier.StartDate) {
		return fmt.Errorf("%w: tier %s not yet open", domain.ErrInvalidPricing, tier.ID)
	}
	if !tier.EndDate.IsZero() && now.After(tier.EndDate) {
		return fmt.Errorf("%w: tier %s expired", domain.ErrInvalidPricing, tier.ID)
	}
	return nil
}

// computeAmount prices the selection. No day selection means the flat tier
// price. The AllSessionsDay sentinel overrides itemized day pricing and
// requires the tier to publish an all-sessions price; falling back to a sum
// of all days would charge an amount the organizer never published, so a
// missing price is rejected instead.
func computeAmount(tier *models.PricingTier, days []int) (float64, error) {
	if len(days) == 0 {
		return tier.Price, nil
	}

	for _, day := range days {
		if day == models.AllSessionsDay {
			if tier.AllSessionsPrice == nil {
				return 0, fmt.Errorf("%w: tier %s has no all-sessions price", domain.ErrInvalidPricing, tier.ID)
			}
			return *tier.AllSessionsPrice, nil
		}
	}

	var total float64
	for _, day := range days {
		price, ok := tier.DayPrices[day]
		if !ok {
			return 0, fmt.Errorf("%w: tier %s has no price for day %d", domain.ErrInvalidPricing, tier.ID, day)
		}
		total += price
	}
	return total, nil
}
