// Package api exposes the progression and adherence operations over HTTP.
// GET endpoints are public; mutating POST endpoints require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/emberlane/wildbond/internal/mastery"
	"github.com/emberlane/wildbond/internal/progression"
	"github.com/emberlane/wildbond/internal/rebellion"
	"github.com/emberlane/wildbond/internal/store"
)

// Server serves the engine over HTTP.
type Server struct {
	DB       *store.DB
	Ledger   *progression.Ledger
	Resolver *rebellion.Resolver
	Mastery  *mastery.Service
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public read endpoints.
	mux.HandleFunc("GET /api/v1/characters/{id}/progression", s.handleProgression)
	mux.HandleFunc("GET /api/v1/characters/{id}/experience-log", s.handleExperienceLog)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)

	// Mutating endpoints (bearer token).
	mux.HandleFunc("POST /api/v1/characters/{id}/experience", s.adminOnly(s.handleAwardExperience))
	mux.HandleFunc("POST /api/v1/characters/{id}/equip", s.adminOnly(s.handleEquip))
	mux.HandleFunc("POST /api/v1/characters/{id}/ability-rank", s.adminOnly(s.handleAbilityRank))
	mux.HandleFunc("POST /api/v1/characters/{id}/allocate", s.adminOnly(s.handleAllocate))
	mux.HandleFunc("POST /api/v1/characters/{id}/spells/{sid}/rankup", s.adminOnly(s.handleSpellRankUp))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// adminOnly guards mutating endpoints with a bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "mutating endpoints disabled", http.StatusForbidden)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var missing progression.MissingDataError
	var integrity progression.IntegrityError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, progression.ErrInBattle),
		errors.Is(err, mastery.ErrAlreadyMaxed),
		errors.Is(err, mastery.ErrMasteryTooLow),
		errors.Is(err, mastery.ErrInsufficientPoints):
		status = http.StatusConflict
	case errors.As(err, &missing), errors.As(err, &integrity):
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func characterID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		http.Error(w, "invalid character id", http.StatusBadRequest)
		return
	}

	c, err := store.GetCharacter(r.Context(), s.DB.Conn(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"id":             c.ID,
		"name":           c.Name,
		"level":          c.Level,
		"experience":     c.Experience,
		"stat_points":    c.StatPoints,
		"skill_points":   c.SkillPoints,
		"ability_points": c.AbilityPoints,
		"tier":           c.Tier,
		"title":          c.Title,
		"adherence":      c.Adherence,
	}

	pending, err := store.GetPendingAllocation(r.Context(), s.DB.Conn(), id)
	if err == nil {
		resp["pending_stat_points"] = pending.PendingStatPoints
		resp["pending_levels"] = pending.PendingLevels
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExperienceLog(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		http.Error(w, "invalid character id", http.StatusBadRequest)
		return
	}

	entries, err := store.ListExperienceLog(r.Context(), s.DB.Conn(), id, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := store.RecentEvents(r.Context(), s.DB.Conn(), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evts)
}

func queryLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	return limit
}

func (s *Server) handleAwardExperience(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		http.Error(w, "invalid character id", http.StatusBadRequest)
		return
	}

	var body struct {
		Amount      int     `json:"amount"`
		Multiplier  float64 `json:"multiplier"`
		Source      string  `json:"source"`
		Description string  `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.Ledger.AwardExperience(r.Context(), progression.AwardInput{
		CharacterID: id,
		Amount:      body.Amount,
		Multiplier:  body.Multiplier,
		Source:      body.Source,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEquip(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		http.Error(w, "invalid character id", http.StatusBadRequest)
		return
	}

	var body struct {
		ItemID int64 `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resolution, err := s.Resolver.EquipWithAdherence(r.Context(), id, body.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

func (s *Server) handleAbilityRank(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		http.Error(w, "invalid character id", http.StatusBadRequest)
		return
	}

	var body struct {
		AbilityID int64 `json:"ability_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resolution, err := s.Resolver.RankAbilityWithAdherence(r.Context(), id, body.AbilityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		http.Error(w, "invalid character id", http.StatusBadRequest)
		return
	}

	var vector store.StatVector
	if err := json.NewDecoder(r.Body).Decode(&vector); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resolution, err := s.Resolver.AllocateStatsWithAdherence(r.Context(), id, vector)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

func (s *Server) handleSpellRankUp(w http.ResponseWriter, r *http.Request) {
	id, err := characterID(r)
	if err != nil {
		http.Error(w, "invalid character id", http.StatusBadRequest)
		return
	}
	spellID, err := strconv.ParseInt(r.PathValue("sid"), 10, 64)
	if err != nil {
		http.Error(w, "invalid spell id", http.StatusBadRequest)
		return
	}

	result, err := s.Mastery.RankUp(r.Context(), id, spellID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
