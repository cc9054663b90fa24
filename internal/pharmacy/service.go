// ABOUTME: Search layer over the pharmacy catalog
// ABOUTME: Matches callers to records by normalized phone number

package pharmacy

import (
	"context"
	"log/slog"
)

// Service provides phone-number search over a Catalog.
type Service struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewService creates a search service over the given catalog source.
func NewService(catalog Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog: catalog,
		logger:  logger.With("component", "pharmacy"),
	}
}

// All returns every record in the catalog.
func (s *Service) All(ctx context.Context) ([]Pharmacy, error) {
	return s.catalog.Pharmacies(ctx)
}

// SearchByPhone finds the pharmacy whose phone number matches the given one
// after normalization. Returns ErrNotFound when no record matches, or the
// catalog's error (typically wrapping ErrUnavailable) when it cannot answer.
func (s *Service) SearchByPhone(ctx context.Context, phone string) (*Pharmacy, error) {
	normalized, ok := NormalizePhone(phone)
	if !ok {
		return nil, ErrNotFound
	}

	pharmacies, err := s.catalog.Pharmacies(ctx)
	if err != nil {
		return nil, err
	}

	for i := range pharmacies {
		candidate, ok := NormalizePhone(pharmacies[i].Phone)
		if !ok {
			continue
		}
		if candidate == normalized {
			s.logger.Debug("pharmacy matched", "pharmacy_id", pharmacies[i].ID, "name", pharmacies[i].Name)
			return &pharmacies[i], nil
		}
	}

	s.logger.Debug("no pharmacy match", "phone", normalized)
	return nil, ErrNotFound
}
