package engine

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/campdraft/go/internal/draft/catalog"
	"github.com/mcdev12/campdraft/go/internal/models"
)

// credited reports whether the draft's picks count toward scoring. Caller
// holds s.mu.
func (e *Engine) credited(s *session) bool {
	return s.draft.Status != models.DraftStatusCancelled || e.scoring.CreditCancelled
}

// picksOf returns the shifts claimed by participant, in pick order.
func picksOf(log []models.PickRecord, cat *catalog.Catalog, participant uuid.UUID) []models.DraftableShift {
	out := []models.DraftableShift{}
	for _, r := range log {
		if r.ParticipantID != participant || r.ShiftID == nil {
			continue
		}
		if sh, ok := cat.Get(*r.ShiftID); ok {
			out = append(out, sh)
		}
	}
	return out
}

func pointsOf(shifts []models.DraftableShift) int {
	total := 0
	for _, sh := range shifts {
		total += sh.PointValue
	}
	return total
}

// tally derives standings from the log, ordered by points, then shift count,
// then roster position.
func tally(participants []uuid.UUID, log []models.PickRecord, cat *catalog.Catalog) []models.Standing {
	byID := make(map[uuid.UUID]*models.Standing, len(participants))
	out := make([]models.Standing, len(participants))
	for i, p := range participants {
		out[i] = models.Standing{ParticipantID: p}
		byID[p] = &out[i]
	}

	for _, r := range log {
		st, ok := byID[r.ParticipantID]
		if !ok {
			continue
		}
		if r.ShiftID == nil {
			st.Skips++
			continue
		}
		if sh, ok := cat.Get(*r.ShiftID); ok {
			st.Points += sh.PointValue
			st.ShiftCount++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].ShiftCount > out[j].ShiftCount
	})
	return out
}

// standings applies the scoring policy. Caller holds s.mu.
func (e *Engine) standings(s *session) []models.Standing {
	if !e.credited(s) {
		out := make([]models.Standing, len(s.draft.Participants))
		for i, p := range s.draft.Participants {
			out[i] = models.Standing{ParticipantID: p}
		}
		return out
	}
	return tally(s.draft.Participants, s.log, s.catalog)
}
