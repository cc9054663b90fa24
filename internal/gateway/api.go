// ABOUTME: HTTP API handlers for health and catalog inspection
// ABOUTME: GET /health, GET /pharmacies, GET /pharmacies/search

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2389/pharma-gateway/internal/pharmacy"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Timestamp      string `json:"timestamp"`
	ActiveSessions int    `json:"active_sessions"`
	Connections    int    `json:"connections"`
}

// PharmaciesResponse is the JSON response for GET /pharmacies.
type PharmaciesResponse struct {
	Pharmacies []pharmacy.Pharmacy `json:"pharmacies"`
	Count      int                 `json:"count"`
}

// handleHealth reports liveness and session counts.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:         "healthy",
		Version:        Version,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ActiveSessions: g.memory.ActiveSessions(),
		Connections:    g.registry.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleListPharmacies handles GET /pharmacies.
func (g *Gateway) handleListPharmacies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	pharmacies, err := g.service.All(r.Context())
	if err != nil {
		g.logger.Error("listing pharmacies failed", "error", err)
		g.sendJSONError(w, http.StatusServiceUnavailable, "pharmacy catalog unavailable")
		return
	}
	if pharmacies == nil {
		pharmacies = []pharmacy.Pharmacy{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PharmaciesResponse{
		Pharmacies: pharmacies,
		Count:      len(pharmacies),
	})
}

// handleSearchPharmacy handles GET /pharmacies/search?phone=NUMBER.
func (g *Gateway) handleSearchPharmacy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		g.sendJSONError(w, http.StatusBadRequest, "phone query parameter is required")
		return
	}
	if _, ok := pharmacy.NormalizePhone(phone); !ok {
		g.sendJSONError(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	record, err := g.service.SearchByPhone(r.Context(), phone)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(record)
	case errors.Is(err, pharmacy.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "no pharmacy matches that phone number")
	default:
		g.logger.Error("pharmacy search failed", "error", err)
		g.sendJSONError(w, http.StatusServiceUnavailable, "pharmacy catalog unavailable")
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
