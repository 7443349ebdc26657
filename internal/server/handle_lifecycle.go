package server

import (
	"errors"
	"net/http"

	"github.com/quickvotes/backend/internal/quickvotes"
)

func handleStart(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		count, err := store.CountParticipants(r.Context(), activity.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if count == 0 {
			writeError(w, http.StatusConflict, "cannot start without participants")
			return
		}

		err = store.TransitionState(r.Context(), activity.ID, quickvotes.StatePending, quickvotes.StateStarted)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "activity is not pending")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(r.Context(), activity.ID, Event{Type: "activity_started"})

		activity.State = quickvotes.StateStarted
		writeJSON(w, http.StatusOK, ActivityResponse{Activity: activity})
	}
}

func handleFinish(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		if activity.State == quickvotes.StateEnded {
			writeError(w, http.StatusConflict, "activity has already ended")
			return
		}

		// Finishing works from pending too: the owner can cancel an
		// activity that never started.
		err := store.TransitionState(r.Context(), activity.ID, activity.State, quickvotes.StateEnded)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "activity has already ended")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(r.Context(), activity.ID, Event{Type: "activity_ended"})

		activity.State = quickvotes.StateEnded
		writeJSON(w, http.StatusOK, ActivityResponse{Activity: activity})
	}
}
