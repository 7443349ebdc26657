package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/quickvotes/backend/internal/quickvotes"
)

func TestResults(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")
	created := createActivity(t, r, ownerToken, "quiz")
	saveItems(t, r, ownerToken, created.ID, quizContent)
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/quiz/submit", playerToken, QuizSubmitRequest{
		Answers: []quickvotes.QuizAnswer{
			{QuestionIndex: 0, SelectedOption: 0},
			{QuestionIndex: 1, SelectedOption: 1},
			{QuestionIndex: 2, SelectedOption: 0},
			{QuestionIndex: 3, SelectedOption: 0},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/activities/"+created.ID+"/results", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var results ResultsResponse
	json.NewDecoder(w.Body).Decode(&results)
	if results.ParticipantCount != 1 {
		t.Fatalf("expected 1 participant, got %d", results.ParticipantCount)
	}
	if results.Participants[0].User != "player" || results.Participants[0].Score != 75.0 {
		t.Errorf("unexpected participant row: %+v", results.Participants[0])
	}

	// Results are owner-only.
	w = doJSON(t, r, http.MethodGet, "/api/activities/"+created.ID+"/results", playerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", w.Code)
	}
}

func TestVoteResultsIncludeTallies(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")
	created := createActivity(t, r, ownerToken, "vote")
	saveItems(t, r, ownerToken, created.ID, voteContent)
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", playerToken, VoteRequest{
		SelectedOptions: []string{"Pizza"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("vote: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/activities/"+created.ID+"/results", ownerToken, nil)
	var results ResultsResponse
	json.NewDecoder(w.Body).Decode(&results)
	if results.TotalVotes != 1 {
		t.Fatalf("expected 1 total vote, got %d", results.TotalVotes)
	}
	if len(results.Tallies) != 3 {
		t.Errorf("expected tallies for all 3 options, got %d", len(results.Tallies))
	}
}

func TestResultsExportCSV(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")

	w := doJSON(t, r, http.MethodPost, "/api/activities", ownerToken, ActivityRequest{
		Title:        "Trivia Nocturna",
		ActivityType: "quiz",
		IsPublic:     true,
	})
	var created ActivityResponse
	json.NewDecoder(w.Body).Decode(&created)
	saveItems(t, r, ownerToken, created.ID, quizContent)
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/quiz/submit", playerToken, QuizSubmitRequest{
		Answers: []quickvotes.QuizAnswer{{QuestionIndex: 0, SelectedOption: 0}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/activities/"+created.ID+"/results/export", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv content type, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "resultados_Trivia_Nocturna.csv") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Usuario,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "player") || !strings.Contains(lines[1], "25") {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestListUserParticipations(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")
	created := createActivity(t, r, ownerToken, "vote")
	saveItems(t, r, ownerToken, created.ID, voteContent)
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", playerToken, VoteRequest{
		SelectedOptions: []string{"Pizza"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("vote: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/participations", playerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var participations []UserParticipation
	json.NewDecoder(w.Body).Decode(&participations)
	if len(participations) != 1 {
		t.Fatalf("expected 1 participation, got %d", len(participations))
	}
	if participations[0].ActivityTitle != "Test vote" {
		t.Errorf("expected activity title joined in, got %q", participations[0].ActivityTitle)
	}
}
