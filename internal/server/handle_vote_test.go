package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

const voteContent = `{"title":"Almuerzo","options":["Pizza","Ceviche","Sushi"],"isMultipleChoice":false}`
const multiVoteContent = `{"title":"Toppings","options":["A","B","C"],"isMultipleChoice":true}`

func TestVote(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	created := createActivity(t, r, ownerToken, "vote")
	saveItems(t, r, ownerToken, created.ID, voteContent)

	anaToken, _ := signup(t, r, "ana@example.com", "ana")
	betoToken, _ := signup(t, r, "beto@example.com", "beto")
	joinActivity(t, r, anaToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", anaToken, VoteRequest{
		SelectedOptions: []string{"Pizza"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", betoToken, VoteRequest{
		SelectedOptions: []string{"Ceviche"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp VoteResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Total != 2 {
		t.Fatalf("expected 2 total votes, got %d", resp.Total)
	}
	if resp.Tallies[0].Option != "Pizza" || resp.Tallies[0].Count != 1 || resp.Tallies[0].Percent != 50.0 {
		t.Errorf("unexpected Pizza tally: %+v", resp.Tallies[0])
	}

	// Re-voting replaces the previous selection.
	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", anaToken, VoteRequest{
		SelectedOptions: []string{"Sushi"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 changing a vote, got %d: %s", w.Code, w.Body.String())
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Total != 2 {
		t.Errorf("expected total to stay 2 after a changed vote, got %d", resp.Total)
	}
	if resp.Tallies[0].Count != 0 {
		t.Errorf("expected Pizza count to drop to 0, got %d", resp.Tallies[0].Count)
	}
	if resp.Tallies[2].Option != "Sushi" || resp.Tallies[2].Count != 1 {
		t.Errorf("unexpected Sushi tally: %+v", resp.Tallies[2])
	}
}

func TestVoteValidation(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	created := createActivity(t, r, ownerToken, "vote")
	saveItems(t, r, ownerToken, created.ID, voteContent)

	playerToken, _ := signup(t, r, "player@example.com", "player")
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	// Empty selection.
	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", playerToken, VoteRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty selection, got %d", w.Code)
	}

	// Multiple selections on a single-choice vote.
	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", playerToken, VoteRequest{
		SelectedOptions: []string{"Pizza", "Sushi"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for multiple options on single choice, got %d", w.Code)
	}

	// Unknown option.
	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", playerToken, VoteRequest{
		SelectedOptions: []string{"Tacos"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown option, got %d", w.Code)
	}
}

func TestVoteMultipleChoice(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	created := createActivity(t, r, ownerToken, "vote")
	saveItems(t, r, ownerToken, created.ID, multiVoteContent)

	playerToken, _ := signup(t, r, "player@example.com", "player")
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", playerToken, VoteRequest{
		SelectedOptions: []string{"A", "B"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for multi-choice, got %d: %s", w.Code, w.Body.String())
	}

	var resp VoteResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Total != 2 {
		t.Errorf("expected 2 votes counted from one participant, got %d", resp.Total)
	}
}

func TestVoteRepeatedOptionCountsOnce(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	created := createActivity(t, r, ownerToken, "vote")
	saveItems(t, r, ownerToken, created.ID, multiVoteContent)

	playerToken, _ := signup(t, r, "player@example.com", "player")
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/vote", playerToken, VoteRequest{
		SelectedOptions: []string{"A", "A", "A"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp VoteResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Total != 1 {
		t.Errorf("expected repeated option to count once, total %d", resp.Total)
	}
	if resp.Tallies[0].Option != "A" || resp.Tallies[0].Count != 1 {
		t.Errorf("unexpected tally for A: %+v", resp.Tallies[0])
	}
}
