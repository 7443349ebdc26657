package server

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// WheelSpinResponse reports a spin. For repeated prizes-mode spins the
// stored result is returned without new spin parameters.
type WheelSpinResponse struct {
	Result      string                  `json:"result,omitempty"`
	Winner      *quickvotes.WheelWinner `json:"winner,omitempty"`
	Spin        *quickvotes.SpinOutcome `json:"spin,omitempty"`
	AlreadySpun bool                    `json:"alreadySpun,omitempty"`
}

func handleWheelSpin(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := requestActivity(w, r, store)
		if !ok {
			return
		}
		if activity.Type != quickvotes.TypeWheel {
			writeError(w, http.StatusBadRequest, "not a wheel")
			return
		}

		var content quickvotes.WheelContent
		err := activityContent(r, store, activity, &content)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusConflict, "wheel is not configured")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		switch content.WheelType {
		case quickvotes.WheelParticipants:
			spinParticipantsWheel(w, r, store, broker, activity)
		default:
			spinPrizesWheel(w, r, store, broker, activity, content)
		}
	}
}

// spinPrizesWheel gives each participant one spin for a prize. A second
// spin returns the stored prize unchanged.
func spinPrizesWheel(w http.ResponseWriter, r *http.Request, store Store, broker *Broker, activity quickvotes.Activity, content quickvotes.WheelContent) {
	if activity.State != quickvotes.StateStarted {
		writeError(w, http.StatusConflict, "activity is not live")
		return
	}
	if len(content.Segments) == 0 {
		writeError(w, http.StatusConflict, "wheel has no segments")
		return
	}

	user := sessionUser(r)

	prior, err := store.ParticipationFor(r.Context(), activity.ID, user.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err == nil && prior.Responses.Result != "" {
		writeJSON(w, http.StatusOK, WheelSpinResponse{
			Result:      prior.Responses.Result,
			AlreadySpun: true,
		})
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	outcome := quickvotes.Spin(len(content.Segments), rng)
	result := content.Segments[outcome.WinningIndex].Name

	_, err = store.UpsertParticipation(r.Context(), activity.ID, user.UserID,
		quickvotes.Responses{Result: result}, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	name := user.Email
	if profile, err := store.ProfileByID(r.Context(), user.UserID); err == nil {
		name = profile.Name()
	}
	broker.Publish(r.Context(), activity.ID, Event{Type: "wheel_spun", User: name, Option: result, Spin: &outcome})

	writeJSON(w, http.StatusOK, WheelSpinResponse{Result: result, Spin: &outcome})
}

// spinParticipantsWheel lets the owner spin over the current
// participants; the winner is written to settings under a version check.
func spinParticipantsWheel(w http.ResponseWriter, r *http.Request, store Store, broker *Broker, activity quickvotes.Activity) {
	if activity.OwnerID != sessionUser(r).UserID {
		writeError(w, http.StatusForbidden, "only the owner can spin this wheel")
		return
	}
	if activity.Settings.Winner != nil {
		writeError(w, http.StatusConflict, "a winner has already been chosen")
		return
	}

	participants, err := store.ListParticipants(r.Context(), activity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(participants) == 0 {
		writeError(w, http.StatusConflict, "no participants to spin for")
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	outcome := quickvotes.Spin(len(participants), rng)
	picked := participants[outcome.WinningIndex]
	winner := quickvotes.WheelWinner{ID: picked.UserID, Name: picked.Name()}

	settings := activity.Settings
	settings.Winner = &winner
	err = store.UpdateSettings(r.Context(), activity.ID, settings, activity.Version)
	if errors.Is(err, ErrVersionConflict) {
		writeError(w, http.StatusConflict, "activity was modified, reload and retry")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	broker.Publish(r.Context(), activity.ID, Event{Type: "wheel_spun", Winner: &winner, Spin: &outcome})

	writeJSON(w, http.StatusOK, WheelSpinResponse{Winner: &winner, Spin: &outcome})
}

func handleClearWheelWinner(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}
		if activity.Type != quickvotes.TypeWheel {
			writeError(w, http.StatusBadRequest, "not a wheel")
			return
		}

		settings := activity.Settings
		settings.Winner = nil
		err := store.UpdateSettings(r.Context(), activity.ID, settings, activity.Version)
		if errors.Is(err, ErrVersionConflict) {
			writeError(w, http.StatusConflict, "activity was modified, reload and retry")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(r.Context(), activity.ID, Event{Type: "winner_cleared"})

		writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
	}
}
