package server

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/quickvotes/backend/internal/quickvotes"
)

func handleRaffleEnter(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := requestActivity(w, r, store)
		if !ok {
			return
		}
		if activity.Type != quickvotes.TypeRaffle {
			writeError(w, http.StatusBadRequest, "not a raffle")
			return
		}
		if activity.State != quickvotes.StateStarted {
			writeError(w, http.StatusConflict, "activity is not live")
			return
		}

		user := sessionUser(r)
		entry := quickvotes.Responses{Participated: true}

		// Entering twice is a no-op, not an error.
		created, err := store.JoinActivity(r.Context(), activity.ID, user.UserID, entry)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !created {
			prior, err := store.ParticipationFor(r.Context(), activity.ID, user.UserID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !prior.Responses.Participated {
				// Row exists from a plain join; flip the entry marker.
				if _, err := store.UpsertParticipation(r.Context(), activity.ID, user.UserID, entry, 0); err != nil {
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				created = true
			}
		}

		if created {
			name := user.Email
			if profile, err := store.ProfileByID(r.Context(), user.UserID); err == nil {
				name = profile.Name()
			}
			broker.Publish(r.Context(), activity.ID, Event{Type: "participant_joined", User: name})
		}

		writeJSON(w, http.StatusOK, map[string]bool{"entered": true})
	}
}

// RaffleDrawResponse is the full replacement winner list produced by a draw.
type RaffleDrawResponse struct {
	Winners []quickvotes.RaffleWinner `json:"winners"`
}

func handleRaffleDraw(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}
		if activity.Type != quickvotes.TypeRaffle {
			writeError(w, http.StatusBadRequest, "not a raffle")
			return
		}

		var content quickvotes.RaffleContent
		err := activityContent(r, store, activity, &content)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusConflict, "raffle has no prizes configured")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		entrants, err := raffleEntrants(r, store, activity, content)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if len(entrants) == 0 {
			writeError(w, http.StatusConflict, "no entrants to draw from")
			return
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		winners := quickvotes.DrawRaffle(content.Prizes, entrants, rng)

		settings := activity.Settings
		settings.Winners = winners
		err = store.UpdateSettings(r.Context(), activity.ID, settings, activity.Version)
		if errors.Is(err, ErrVersionConflict) {
			writeError(w, http.StatusConflict, "activity was modified, reload and retry")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(r.Context(), activity.ID, Event{Type: "winners_drawn", Winners: winners})

		writeJSON(w, http.StatusOK, RaffleDrawResponse{Winners: winners})
	}
}

// raffleEntrants assembles the draw pool: participants who entered the
// raffle, falling back to the manual participant list from the content
// when nobody entered live.
func raffleEntrants(r *http.Request, store Store, activity quickvotes.Activity, content quickvotes.RaffleContent) ([]quickvotes.Entrant, error) {
	participants, err := store.ListParticipants(r.Context(), activity.ID)
	if err != nil {
		return nil, err
	}

	var entrants []quickvotes.Entrant
	for _, p := range participants {
		if !p.Responses.Participated {
			continue
		}
		entrants = append(entrants, quickvotes.Entrant{
			UserID: p.UserID,
			Name:   p.Name(),
			Avatar: p.AvatarURL,
		})
	}
	if len(entrants) > 0 {
		return entrants, nil
	}

	for _, name := range content.Participants {
		entrants = append(entrants, quickvotes.Entrant{Name: name})
	}
	return entrants, nil
}
