package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/quickvotes/backend/internal/quickvotes"
)

const raffleContent = `{"title":"Sorteo","description":"","prizes":[{"name":"First","quantity":1},{"name":"Second","quantity":1}],"participants":[]}`

func TestRaffleEnterAndDraw(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	created := createActivity(t, r, ownerToken, "raffle")
	saveItems(t, r, ownerToken, created.ID, raffleContent)

	playerTokens := map[string]string{}
	for _, name := range []string{"ana", "beto", "carla"} {
		token, _ := signup(t, r, name+"@example.com", name)
		playerTokens[name] = token
	}

	// Ana waits in the lobby; the others enter once the raffle is live.
	joinActivity(t, r, playerTokens["ana"], created.ID)
	startActivity(t, r, ownerToken, created.ID)

	for _, name := range []string{"ana", "beto", "carla"} {
		w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/raffle/enter", playerTokens[name], nil)
		if w.Code != http.StatusOK {
			t.Fatalf("enter %s: expected 200, got %d: %s", name, w.Code, w.Body.String())
		}
	}

	// Entering twice is a no-op.
	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/raffle/enter", playerTokens["ana"], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("re-enter: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/raffle/draw", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("draw: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RaffleDrawResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(resp.Winners))
	}
	if resp.Winners[0].UserID == resp.Winners[1].UserID {
		t.Error("expected distinct winners")
	}

	// Winners land in the activity settings.
	w = doJSON(t, r, http.MethodGet, "/api/activities/"+created.ID, ownerToken, nil)
	var got ActivityResponse
	json.NewDecoder(w.Body).Decode(&got)
	if len(got.Settings.Winners) != 2 {
		t.Errorf("expected winners persisted in settings, got %+v", got.Settings)
	}

	// A second draw replaces the list instead of accumulating.
	w = doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/raffle/draw", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("redraw: expected 200, got %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Winners) != 2 {
		t.Errorf("expected redraw to replace winners, got %d", len(resp.Winners))
	}
}

func TestRaffleDrawOwnerOnly(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")
	created := createActivity(t, r, ownerToken, "raffle")
	saveItems(t, r, ownerToken, created.ID, raffleContent)
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/raffle/draw", playerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner draw, got %d", w.Code)
	}
}

func TestRaffleDrawNoEntrants(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	playerToken, _ := signup(t, r, "player@example.com", "player")
	created := createActivity(t, r, ownerToken, "raffle")
	saveItems(t, r, ownerToken, created.ID, raffleContent)

	// Joined the lobby but never entered the raffle.
	joinActivity(t, r, playerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/raffle/draw", ownerToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 with no entrants, got %d", w.Code)
	}
}

func TestRaffleDrawManualParticipants(t *testing.T) {
	r, _ := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	created := createActivity(t, r, ownerToken, "raffle")
	saveItems(t, r, ownerToken, created.ID,
		`{"title":"Sorteo","prizes":[{"name":"First","quantity":1}],"participants":["Ana","Beto"]}`)
	joinActivity(t, r, ownerToken, created.ID)
	startActivity(t, r, ownerToken, created.ID)

	w := doJSON(t, r, http.MethodPost, "/api/activities/"+created.ID+"/raffle/draw", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 drawing from manual list, got %d: %s", w.Code, w.Body.String())
	}

	var resp RaffleDrawResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Winners) != 1 {
		t.Fatalf("expected 1 winner, got %d", len(resp.Winners))
	}
	if resp.Winners[0].User != "Ana" && resp.Winners[0].User != "Beto" {
		t.Errorf("expected winner from manual list, got %q", resp.Winners[0].User)
	}
}

func TestUpdateSettingsVersionConflict(t *testing.T) {
	r, store := newTestServer(t)
	ownerToken, _ := signup(t, r, "owner@example.com", "owner")
	created := createActivity(t, r, ownerToken, "raffle")
	ctx := context.Background()

	// First write with the current version bumps it.
	err := store.UpdateSettings(ctx, created.ID, quickvotes.Settings{}, created.Version)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}

	// A write against the stale version is rejected.
	err = store.UpdateSettings(ctx, created.ID, quickvotes.Settings{}, created.Version)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}
