package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

const prizesWheelContent = `{"title":"Ruleta","wheelType":"prizes","segments":["Gold","Silver","Bronze"]}`
const participantsWheelContent = `{"title":"Ruleta","wheelType":"participants","segments":[]}`

func TestWheelSpinPrizesModeIdempotent(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")
	created := createActivity(t, r, ownerToken, "wheel")
	saveItems(t, r, ownerToken, created.ID, prizesWheelContent)
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/wheel/spin", playerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var first WheelSpinResponse
	json.NewDecoder(w.Body).Decode(&first)
	if first.Result == "" || first.Spin == nil {
		t.Fatalf("expected a result and spin parameters, got %+v", first)
	}
	if first.AlreadySpun {
		t.Error("first spin should not report alreadySpun")
	}

	// Respin returns the stored prize, no new spin.
	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/wheel/spin", playerToken, nil)
	var second WheelSpinResponse
	json.NewDecoder(w.Body).Decode(&second)
	if !second.AlreadySpun {
		t.Error("expected alreadySpun on respin")
	}
	if second.Result != first.Result {
		t.Errorf("respin changed the prize: %q vs %q", second.Result, first.Result)
	}
	if second.Spin != nil {
		t.Error("respin should not produce new spin parameters")
	}
}

func TestWheelSpinParticipantsMode(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")
	created := createActivity(t, r, ownerToken, "wheel")
	saveItems(t, r, ownerToken, created.ID, participantsWheelContent)
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	// Non-owner cannot spin a participants wheel.
	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/wheel/spin", playerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/wheel/spin", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("spin: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp WheelSpinResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Winner == nil || resp.Winner.Name != "player" {
		t.Fatalf("expected the only participant to win, got %+v", resp.Winner)
	}

	// The winner is persisted in settings.
	w = doJSON(t, r, http.MethodGet, "/api/activities/"+created.ID, ownerToken, nil)
	var got ActivityResponse
	json.NewDecoder(w.Body).Decode(&got)
	if got.Settings.Winner == nil {
		t.Error("expected winner persisted in settings")
	}

	// No respin while a winner stands.
	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/wheel/spin", ownerToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 spinning with a standing winner, got %d", w.Code)
	}

	// Clearing removes it.
	w = doJSON(t, r, http.MethodDelete, "/api/activities/"+created.ID+"/wheel/winner", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/activities/"+created.ID, ownerToken, nil)
	got = ActivityResponse{}
	json.NewDecoder(w.Body).Decode(&got)
	if got.Settings.Winner != nil {
		t.Errorf("expected winner cleared, got %+v", got.Settings.Winner)
	}

	// Clearing re-enables spinning.
	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/wheel/spin", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 spinning after clear, got %d: %s", w.Code, w.Body.String())
	}
}
