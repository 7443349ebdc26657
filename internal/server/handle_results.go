package server

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// ParticipantResult is one participant row in the results view.
type ParticipantResult struct {
	UserID   string                  `json:"userId"`
	User     string                  `json:"user"`
	Avatar   string                  `json:"avatar,omitempty"`
	Score    float64                 `json:"score"`
	Answers  []quickvotes.QuizAnswer `json:"answers,omitempty"`
	Result   string                  `json:"result,omitempty"`
	JoinedAt time.Time               `json:"joinedAt"`
}

// ResultsResponse aggregates an activity's outcome. Which fields are
// populated depends on the activity type.
type ResultsResponse struct {
	ActivityID       string                    `json:"activityId"`
	ActivityType     quickvotes.ActivityType   `json:"activityType"`
	State            quickvotes.ActivityState  `json:"state"`
	ParticipantCount int                       `json:"participantCount"`
	Participants     []ParticipantResult       `json:"participants"`
	Winners          []quickvotes.RaffleWinner `json:"winners,omitempty"`
	Winner           *quickvotes.WheelWinner   `json:"winner,omitempty"`
	Tallies          []quickvotes.OptionTally  `json:"tallies,omitempty"`
	TotalVotes       int                       `json:"totalVotes,omitempty"`
}

func handleResults(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		results, err := buildResults(r, store, activity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func buildResults(r *http.Request, store Store, activity quickvotes.Activity) (ResultsResponse, error) {
	participants, err := store.ListParticipants(r.Context(), activity.ID)
	if err != nil {
		return ResultsResponse{}, err
	}

	results := ResultsResponse{
		ActivityID:       activity.ID,
		ActivityType:     activity.Type,
		State:            activity.State,
		ParticipantCount: len(participants),
		Participants:     make([]ParticipantResult, 0, len(participants)),
		Winners:          activity.Settings.Winners,
		Winner:           activity.Settings.Winner,
	}

	for _, p := range participants {
		results.Participants = append(results.Participants, ParticipantResult{
			UserID:   p.UserID,
			User:     p.Name(),
			Avatar:   p.AvatarURL,
			Score:    p.Score,
			Answers:  p.Responses.Answers,
			Result:   p.Responses.Result,
			JoinedAt: p.CreatedAt,
		})
	}

	if activity.Type == quickvotes.TypeVote {
		var content quickvotes.VoteContent
		err := activityContent(r, store, activity, &content)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return ResultsResponse{}, err
		}
		if err == nil {
			selections := make([][]string, 0, len(participants))
			for _, p := range participants {
				if len(p.Responses.SelectedOptions) > 0 {
					selections = append(selections, p.Responses.SelectedOptions)
				}
			}
			results.Tallies, results.TotalVotes = quickvotes.TallyVotes(content.Options, selections)
		}
	}

	return results, nil
}

func handleResultsExport(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activity, ok := ownedActivity(w, r, store)
		if !ok {
			return
		}

		participants, err := store.ListParticipants(r.Context(), activity.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		filename := "resultados_" + strings.ReplaceAll(activity.Title, " ", "_") + ".csv"
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)

		cw := csv.NewWriter(w)
		cw.Write([]string{"Usuario", "Puntuación", "Fecha", "Respuestas"})
		for _, p := range participants {
			cw.Write([]string{
				p.Name(),
				fmt.Sprintf("%.0f", p.Score),
				p.CreatedAt.Format("2006-01-02 15:04"),
				responsesSummary(p.Responses),
			})
		}
		cw.Flush()
	}
}

// responsesSummary renders a participation's responses as one CSV cell.
func responsesSummary(resp quickvotes.Responses) string {
	switch {
	case len(resp.Answers) > 0:
		parts := make([]string, 0, len(resp.Answers))
		for _, a := range resp.Answers {
			parts = append(parts, a.Question+": "+a.SelectedAnswer)
		}
		return strings.Join(parts, "; ")
	case len(resp.SelectedOptions) > 0:
		return strings.Join(resp.SelectedOptions, ", ")
	case resp.Result != "":
		return resp.Result
	case resp.Participated:
		return "Participó"
	}
	return ""
}
