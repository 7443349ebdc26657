package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickvotes/backend/internal/quickvotes"
)

const (
	accessCodeLength   = 6
	accessCodeAttempts = 5
)

// ActivityRequest is the request body for creating and updating activities.
type ActivityRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ActivityType string     `json:"activityType"`
	IsPublic     bool       `json:"isPublic"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

// ActivityResponse is an activity plus its participant count.
type ActivityResponse struct {
	quickvotes.Activity
	ParticipantCount int `json:"participantCount"`
}

// loadActivity fetches an activity and applies the expiry rule: a
// not-yet-ended activity whose expiry timestamp has passed is marked
// ended before being returned. The correction runs at most once per
// activity since ended is terminal.
func loadActivity(ctx context.Context, store Store, id string) (quickvotes.Activity, error) {
	a, err := store.ActivityByID(ctx, id)
	if err != nil {
		return quickvotes.Activity{}, err
	}
	if a.State != quickvotes.StateEnded && a.Expired(time.Now()) {
		if _, err := store.MarkExpired(ctx, a.ID); err != nil {
			return quickvotes.Activity{}, err
		}
		a.State = quickvotes.StateEnded
	}
	return a, nil
}

// requestActivity loads the activity named in the URL, writing the error
// response itself when the load fails.
func requestActivity(w http.ResponseWriter, r *http.Request, store Store) (quickvotes.Activity, bool) {
	activity, err := loadActivity(r.Context(), store, chi.URLParam(r, "activityID"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "activity not found")
		return quickvotes.Activity{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return quickvotes.Activity{}, false
	}
	return activity, true
}

// ownedActivity is requestActivity plus an ownership check.
func ownedActivity(w http.ResponseWriter, r *http.Request, store Store) (quickvotes.Activity, bool) {
	activity, ok := requestActivity(w, r, store)
	if !ok {
		return quickvotes.Activity{}, false
	}
	if activity.OwnerID != sessionUser(r).UserID {
		writeError(w, http.StatusForbidden, "only the owner can do this")
		return quickvotes.Activity{}, false
	}
	return activity, true
}

func handleCreateActivity(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ActivityRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		activityType := quickvotes.ActivityType(req.ActivityType)
		if !activityType.Valid() {
			writeError(w, http.StatusBadRequest, "unknown activity type")
			return
		}

		code, err := pickAccessCode(r.Context(), store)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		activity, err := store.CreateActivity(r.Context(), quickvotes.Activity{
			OwnerID:     sessionUser(r).UserID,
			Title:       req.Title,
			Description: strings.TrimSpace(req.Description),
			Type:        activityType,
			IsPublic:    req.IsPublic,
			AccessCode:  code,
			ExpiresAt:   req.ExpiresAt,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, ActivityResponse{Activity: activity})
	}
}

// pickAccessCode generates a candidate code and retries a few times on
// collision. The last candidate is used even if the uniqueness check
// never passed; the UNIQUE constraint is the real guard.
func pickAccessCode(ctx context.Context, store Store) (string, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	code := quickvotes.GenerateAccessCode(accessCodeLength, rng)
	for i := 0; i < accessCodeAttempts; i++ {
		taken, err := store.AccessCodeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		code = quickvotes.GenerateAccessCode(accessCodeLength, rng)
	}
	return code, nil
}

func handleListActivities(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activities, err := store.ListActivitiesByOwner(r.Context(), sessionUser(r).UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, activities)
	}
}

func handleListPublic(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
			limit = v
		}
		page := 1
		if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 1 {
			page = v
		}

		activities, err := store.ListPublicActivities(r.Context(), limit, (page-1)*limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, activities)
	}
}

// ActivityDetailResponse is the full activity page payload: the activity
// with its owner profile, content document, participant list, and the
// caller's own participation when present.
type ActivityDetailResponse struct {
	quickvotes.Activity
	Owner            quickvotes.Profile        `json:"owner"`
	Content          json.RawMessage           `json:"content"`
	ParticipantCount int                       `json:"participantCount"`
	Participants     []Participant             `json:"participants"`
	Me               *quickvotes.Participation `json:"me,omitempty"`
}

func handleGetActivity(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := requestActivity(w, r, store)
		if !ok {
			return
		}

		owner, err := store.ProfileByID(r.Context(), activity.OwnerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		owner.Email = ""

		content, err := contentDocument(r.Context(), store, activity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		participants, err := store.ListParticipants(r.Context(), activity.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := ActivityDetailResponse{
			Activity:         activity,
			Owner:            owner,
			Content:          content,
			ParticipantCount: len(participants),
			Participants:     participants,
		}

		me, err := store.ParticipationFor(r.Context(), activity.ID, sessionUser(r).UserID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err == nil {
			resp.Me = &me
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleUpdateActivity(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		var req ActivityRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}

		updated, err := store.UpdateActivity(r.Context(), activity.ID, ActivityUpdate{
			Title:       req.Title,
			Description: strings.TrimSpace(req.Description),
			ExpiresAt:   req.ExpiresAt,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, ActivityResponse{Activity: updated})
	}
}

// VisibilityRequest is the request body for PUT /api/activities/{activityID}/visibility.
type VisibilityRequest struct {
	IsPublic bool `json:"isPublic"`
}

func handleSetVisibility(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		var req VisibilityRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := store.SetVisibility(r.Context(), activity.ID, req.IsPublic); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		activity.IsPublic = req.IsPublic
		writeJSON(w, http.StatusOK, ActivityResponse{Activity: activity})
	}
}

func handleDeleteActivity(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		if err := store.DeleteActivity(r.Context(), activity.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}
