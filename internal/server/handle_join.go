package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// JoinLookupResponse is the public activity view returned for an access
// code or link lookup.
type JoinLookupResponse struct {
	ActivitySummary
	ParticipantCount int `json:"participantCount"`
}

func handleJoinLookup(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
		if code == "" {
			writeError(w, http.StatusBadRequest, "access code is required")
			return
		}

		summary, err := store.ActivityByAccessCode(r.Context(), code)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no activity with that code")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if summary.State != quickvotes.StateEnded && summary.Expired(time.Now()) {
			if _, err := store.MarkExpired(r.Context(), summary.ID); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			summary.State = quickvotes.StateEnded
		}

		count, err := store.CountParticipants(r.Context(), summary.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, JoinLookupResponse{ActivitySummary: summary, ParticipantCount: count})
	}
}

// JoinRequest carries the access code; the body is optional for public
// activities.
type JoinRequest struct {
	AccessCode string `json:"accessCode"`
}

// JoinResponse is returned by POST /api/activities/{activityID}/join.
type JoinResponse struct {
	Joined  bool `json:"joined"`
	Created bool `json:"created"`
}

func handleJoinActivity(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := requestActivity(w, r, store)
		if !ok {
			return
		}
		if activity.State == quickvotes.StateEnded {
			writeError(w, http.StatusConflict, "activity has ended")
			return
		}

		var req JoinRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user := sessionUser(r)

		// Private activities admit only the owner and callers presenting
		// the access code. No participation row is written on a mismatch.
		if !activity.IsPublic && activity.OwnerID != user.UserID &&
			!strings.EqualFold(strings.TrimSpace(req.AccessCode), activity.AccessCode) {
			writeError(w, http.StatusForbidden, "access code does not match")
			return
		}
		created, err := store.JoinActivity(r.Context(), activity.ID, user.UserID, quickvotes.Responses{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if created {
			name := user.Email
			if profile, err := store.ProfileByID(r.Context(), user.UserID); err == nil {
				name = profile.Name()
			}
			broker.Publish(r.Context(), activity.ID, Event{Type: "participant_joined", User: name})
		}

		writeJSON(w, http.StatusOK, JoinResponse{Joined: true, Created: created})
	}
}
