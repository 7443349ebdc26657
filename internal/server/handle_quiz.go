package server

import (
	"errors"
	"net/http"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// QuizSubmitRequest is the request body for POST /api/activities/{activityID}/quiz/submit.
type QuizSubmitRequest struct {
	Answers []quickvotes.QuizAnswer `json:"answers"`
}

// QuizSubmitResponse reports the graded submission.
type QuizSubmitResponse struct {
	Score   float64                 `json:"score"`
	Correct int                     `json:"correct"`
	Total   int                     `json:"total"`
	Answers []quickvotes.QuizAnswer `json:"answers"`
}

func handleQuizSubmit(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := requestActivity(w, r, store)
		if !ok {
			return
		}
		if activity.Type != quickvotes.TypeQuiz {
			writeError(w, http.StatusBadRequest, "not a quiz")
			return
		}
		if activity.State != quickvotes.StateStarted {
			writeError(w, http.StatusConflict, "activity is not live")
			return
		}

		var req QuizSubmitRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var content quickvotes.QuizContent
		err := activityContent(r, store, activity, &content)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusConflict, "quiz has no questions")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user := sessionUser(r)

		// A completed quiz cannot be retaken; only a zero score earns
		// another attempt.
		prior, err := store.ParticipationFor(r.Context(), activity.ID, user.UserID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err == nil && len(prior.Responses.Answers) > 0 && prior.Score > 0 {
			writeError(w, http.StatusConflict, "quiz already completed")
			return
		}

		correct, score := quickvotes.ScoreQuiz(content.Questions, req.Answers)

		// Snapshot the prompt and option text alongside the indexes so
		// results stay readable after the quiz is edited. Repeated
		// question indexes collapse to the last answer, matching how
		// the score was computed.
		answers := make([]quickvotes.QuizAnswer, 0, len(req.Answers))
		position := make(map[int]int, len(req.Answers))
		for _, a := range req.Answers {
			if a.QuestionIndex >= 0 && a.QuestionIndex < len(content.Questions) {
				q := content.Questions[a.QuestionIndex]
				a.Question = q.Question
				if a.SelectedOption >= 0 && a.SelectedOption < len(q.Options) {
					a.SelectedAnswer = q.Options[a.SelectedOption]
				}
			}
			if pos, ok := position[a.QuestionIndex]; ok {
				answers[pos] = a
				continue
			}
			position[a.QuestionIndex] = len(answers)
			answers = append(answers, a)
		}

		_, err = store.UpsertParticipation(r.Context(), activity.ID, user.UserID,
			quickvotes.Responses{Answers: answers}, score)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, QuizSubmitResponse{
			Score:   score,
			Correct: correct,
			Total:   len(content.Questions),
			Answers: answers,
		})
	}
}
