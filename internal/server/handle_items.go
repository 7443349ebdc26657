package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// ItemsResponse carries the activity's content document.
type ItemsResponse struct {
	Content json.RawMessage `json:"content"`
}

// ItemsRequest is the request body for PUT /api/activities/{activityID}/items.
type ItemsRequest struct {
	Content json.RawMessage `json:"content"`
}

func handleGetItems(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := requestActivity(w, r, store)
		if !ok {
			return
		}

		content, err := contentDocument(r.Context(), store, activity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, ItemsResponse{Content: content})
	}
}

// contentDocument returns the activity's content as a single canonical
// document: `{}` when nothing has been saved. Quiz content may be spread
// over several rows in the legacy one-question-per-row format; it is
// coalesced into one question list.
func contentDocument(ctx context.Context, store Store, activity quickvotes.Activity) (json.RawMessage, error) {
	items, err := store.ItemsByActivity(ctx, activity.ID)
	if err != nil {
		return nil, err
	}

	if activity.Type == quickvotes.TypeQuiz {
		contents := make([][]byte, len(items))
		for i, item := range items {
			contents[i] = item.Content
		}
		return json.Marshal(quickvotes.QuizContent{Questions: quickvotes.NormalizeQuiz(contents)})
	}

	if len(items) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(items[0].Content), nil
}

func handleSaveItems(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		var req ItemsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := quickvotes.ValidateContent(activity.Type, req.Content); err != nil {
			if errors.Is(err, quickvotes.ErrInvalidContent) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "invalid content")
			return
		}

		// Quiz saves update the single content row in place so existing
		// participations keep pointing at stable question indexes; the
		// other types replace the document wholesale.
		if activity.Type == quickvotes.TypeQuiz {
			err := store.UpsertItem(r.Context(), activity.ID, req.Content)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		} else {
			err := store.ReplaceItems(r.Context(), activity.ID, req.Content)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		writeJSON(w, http.StatusOK, ItemsResponse{Content: req.Content})
	}
}

// activityContent loads and decodes the single content document for an
// activity into dst. Returns ErrNotFound when no content has been saved.
func activityContent(r *http.Request, store Store, activity quickvotes.Activity, dst any) error {
	items, err := store.ItemsByActivity(r.Context(), activity.ID)
	if err != nil {
		return err
	}
	if activity.Type == quickvotes.TypeQuiz {
		contents := make([][]byte, len(items))
		for i, item := range items {
			contents[i] = item.Content
		}
		questions := quickvotes.NormalizeQuiz(contents)
		if len(questions) == 0 {
			return ErrNotFound
		}
		if qc, ok := dst.(*quickvotes.QuizContent); ok {
			qc.Questions = questions
			return nil
		}
		return errors.New("quiz content requires *QuizContent")
	}
	if len(items) == 0 {
		return ErrNotFound
	}
	return json.Unmarshal(items[0].Content, dst)
}
