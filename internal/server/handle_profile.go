package server

import (
	"errors"
	"net/http"
	"strings"
)

// ProfileRequest is the request body for PUT /api/profile.
type ProfileRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func handleUpdateProfile(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProfileRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" {
			writeError(w, http.StatusBadRequest, "username is required")
			return
		}

		profile, err := store.UpdateProfile(r.Context(), sessionUser(r).UserID, ProfileUpdate{
			Username:    req.Username,
			DisplayName: strings.TrimSpace(req.DisplayName),
			AvatarURL:   strings.TrimSpace(req.AvatarURL),
		})
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "username already in use")
			return
		}
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, profile)
	}
}

func handleListParticipations(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participations, err := store.ListUserParticipations(r.Context(), sessionUser(r).UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, participations)
	}
}
