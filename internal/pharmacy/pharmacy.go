// ABOUTME: Data types and errors for the pharmacy catalog
// ABOUTME: Defines Pharmacy, Prescription and the Catalog interface

package pharmacy

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no pharmacy matches a search.
var ErrNotFound = errors.New("pharmacy not found")

// ErrUnavailable is returned when the catalog source cannot be reached.
// It is deliberately distinct from ErrNotFound: callers must not treat a
// catalog outage as "no record".
var ErrUnavailable = errors.New("catalog unavailable")

// Prescription represents a prescription record for a pharmacy.
type Prescription struct {
	Drug  string `json:"drug"`
	Count int    `json:"count"`
}

// Pharmacy represents a pharmacy company with its details and prescriptions.
// Records are read-only once fetched from the catalog.
type Pharmacy struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email,omitempty"`
	City          string         `json:"city"`
	State         string         `json:"state"`
	Prescriptions []Prescription `json:"prescriptions"`
}

// Catalog is a source of pharmacy records.
type Catalog interface {
	Pharmacies(ctx context.Context) ([]Pharmacy, error)
}
