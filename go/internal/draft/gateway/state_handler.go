package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/campdraft/go/internal/draft/engine"
	"github.com/mcdev12/campdraft/go/internal/models"
)

// StateProvider is the read side the gateway needs. *engine.Engine
// satisfies it in-process; ClientStateProvider does over RPC.
type StateProvider interface {
	GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
	ListDrafts(ctx context.Context, status models.DraftStatus) ([]models.Draft, error)
}

// DraftStateResponse is the reconnect snapshot for a client.
type DraftStateResponse struct {
	DraftID           string              `json:"draft_id"`
	Name              string              `json:"name"`
	Status            models.DraftStatus  `json:"status"`
	CurrentPickNumber int                 `json:"current_pick_number"`
	CurrentRound      int                 `json:"current_round"`
	CurrentPicker     *uuid.UUID          `json:"current_picker,omitempty"`
	TurnDeadline      *time.Time          `json:"turn_deadline,omitempty"`
	TimeRemainingMs   int64               `json:"time_remaining_ms"`
	TimePerPickSec    int                 `json:"time_per_pick_sec"`
	TotalPicks        int                 `json:"total_picks"`
	CompletedPicks    int                 `json:"completed_picks"`
	RemainingShifts   int                 `json:"remaining_shifts"`
	RecentPicks       []models.PickRecord `json:"recent_picks"`
	ServerTime        time.Time           `json:"server_time"`
}

// DraftSummary represents a summary of a running draft
type DraftSummary struct {
	DraftID      string             `json:"draft_id"`
	Name         string             `json:"name"`
	Status       models.DraftStatus `json:"status"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	CurrentRound int                `json:"current_round"`
	CurrentPick  int                `json:"current_pick"`
	Participants int                `json:"participants"`
	TotalRounds  int                `json:"total_rounds"`
}

// StateHandler handles HTTP requests for draft state
type StateHandler struct {
	stateProvider StateProvider
	clock         clockwork.Clock
	recentPicks   int
}

const defaultRecentPicks = 10

// NewStateHandler creates a new state handler. clock may be nil.
func NewStateHandler(provider StateProvider, clock clockwork.Clock) *StateHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StateHandler{
		stateProvider: provider,
		clock:         clock,
		recentPicks:   defaultRecentPicks,
	}
}

// BuildState derives the client snapshot from a draft at now.
func BuildState(d *models.Draft, now time.Time, recent int) *DraftStateResponse {
	state := &DraftStateResponse{
		DraftID:           d.ID.String(),
		Name:              d.Name,
		Status:            d.Status,
		CurrentPickNumber: d.CurrentPickNumber,
		CurrentRound:      d.CurrentRound,
		CurrentPicker:     d.CurrentPicker,
		TurnDeadline:      d.TurnDeadline,
		TimePerPickSec:    d.Settings.TimePerPickSec,
		TotalPicks:        d.TotalPicks(),
		CompletedPicks:    len(d.PickLog),
		RemainingShifts:   len(d.ShiftPool) - claimed(d.PickLog),
		RecentPicks:       []models.PickRecord{},
		ServerTime:        now,
	}

	if d.Status == models.DraftStatusActive && d.TurnDeadline != nil {
		if remaining := d.TurnDeadline.Sub(now); remaining > 0 {
			state.TimeRemainingMs = remaining.Milliseconds()
		}
	}

	if n := len(d.PickLog); n > 0 {
		from := max(n-recent, 0)
		state.RecentPicks = append(state.RecentPicks, d.PickLog[from:]...)
	}
	return state
}

func claimed(log []models.PickRecord) int {
	n := 0
	for _, p := range log {
		if !p.Skipped() {
			n++
		}
	}
	return n
}

// HandleGetDraftState handles GET /api/drafts/{id}/state
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	draftID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid draft ID format", http.StatusBadRequest)
		return
	}

	draft, err := h.stateProvider.GetDraft(r.Context(), draftID)
	if err != nil {
		if errors.Is(err, engine.ErrDraftNotFound) {
			http.Error(w, "Draft not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to get draft state")
		http.Error(w, "Failed to get draft state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, BuildState(draft, h.clock.Now(), h.recentPicks))
}

// HandleGetActiveDrafts handles GET /api/drafts/active. Paused drafts are
// included.
func (h *StateHandler) HandleGetActiveDrafts(w http.ResponseWriter, r *http.Request) {
	var running []models.Draft
	for _, status := range []models.DraftStatus{models.DraftStatusActive, models.DraftStatusPaused} {
		drafts, err := h.stateProvider.ListDrafts(r.Context(), status)
		if err != nil {
			log.Error().Err(err).Msg("failed to get active drafts")
			http.Error(w, "Failed to get active drafts", http.StatusInternalServerError)
			return
		}
		running = append(running, drafts...)
	}
	sort.SliceStable(running, func(i, j int) bool {
		return running[i].CreatedAt.Before(running[j].CreatedAt)
	})

	summaries := make([]DraftSummary, 0, len(running))
	for _, d := range running {
		summaries = append(summaries, DraftSummary{
			DraftID:      d.ID.String(),
			Name:         d.Name,
			Status:       d.Status,
			StartedAt:    d.StartedAt,
			CurrentRound: d.CurrentRound,
			CurrentPick:  d.CurrentPickNumber,
			Participants: len(d.Participants),
			TotalRounds:  d.Settings.RoundsPerParticipant,
		})
	}
	writeJSON(w, summaries)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/drafts/active", h.HandleGetActiveDrafts)
	mux.HandleFunc("GET /api/drafts/{id}/state", h.HandleGetDraftState)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
