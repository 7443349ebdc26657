package server

import (
	"errors"
	"net/http"
	"slices"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// VoteRequest is the request body for POST /api/activities/{activityID}/vote.
type VoteRequest struct {
	SelectedOptions []string `json:"selectedOptions"`
}

// VoteResponse returns the tally as it stands after the vote.
type VoteResponse struct {
	Tallies []quickvotes.OptionTally `json:"tallies"`
	Total   int                      `json:"total"`
}

func handleVote(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := requestActivity(w, r, store)
		if !ok {
			return
		}
		if activity.Type != quickvotes.TypeVote {
			writeError(w, http.StatusBadRequest, "not a vote")
			return
		}
		if activity.State != quickvotes.StateStarted {
			writeError(w, http.StatusConflict, "activity is not live")
			return
		}

		var req VoteRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.SelectedOptions) == 0 {
			writeError(w, http.StatusBadRequest, "select at least one option")
			return
		}

		var content quickvotes.VoteContent
		err := activityContent(r, store, activity, &content)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusConflict, "vote has no options configured")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if !content.IsMultipleChoice && len(req.SelectedOptions) > 1 {
			writeError(w, http.StatusBadRequest, "only one option may be selected")
			return
		}
		// The selection is a set; a repeated option is stored once.
		selected := make([]string, 0, len(req.SelectedOptions))
		for _, opt := range req.SelectedOptions {
			if !slices.Contains(content.Options, opt) {
				writeError(w, http.StatusBadRequest, "unknown option")
				return
			}
			if !slices.Contains(selected, opt) {
				selected = append(selected, opt)
			}
		}

		user := sessionUser(r)

		// Re-voting overwrites the previous selection while the vote is
		// still live.
		_, err = store.UpsertParticipation(r.Context(), activity.ID, user.UserID,
			quickvotes.Responses{SelectedOptions: selected}, 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		name := user.Email
		if profile, err := store.ProfileByID(r.Context(), user.UserID); err == nil {
			name = profile.Name()
		}
		broker.Publish(r.Context(), activity.ID, Event{Type: "vote_cast", User: name})

		tallies, total, err := voteTally(r, store, activity, content)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, VoteResponse{Tallies: tallies, Total: total})
	}
}

// voteTally recomputes the tally from all stored participations.
func voteTally(r *http.Request, store Store, activity quickvotes.Activity, content quickvotes.VoteContent) ([]quickvotes.OptionTally, int, error) {
	participants, err := store.ListParticipants(r.Context(), activity.ID)
	if err != nil {
		return nil, 0, err
	}
	selections := make([][]string, 0, len(participants))
	for _, p := range participants {
		if len(p.Responses.SelectedOptions) > 0 {
			selections = append(selections, p.Responses.SelectedOptions)
		}
	}
	tallies, total := quickvotes.TallyVotes(content.Options, selections)
	return tallies, total, nil
}
