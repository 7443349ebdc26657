package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "QuickVotes API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for live interactive activities: quizzes, raffles, prize wheels, and votes.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/auth/signup
	postSignup, _ := r.NewOperationContext(http.MethodPost, "/api/auth/signup")
	postSignup.SetSummary("Sign up")
	postSignup.SetDescription("Creates a profile and returns a session token.")
	postSignup.AddReqStructure(SignupRequest{})
	postSignup.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSignup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSignup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSignup)

	// POST /api/auth/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/auth/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Authenticate with email and password. Returns a session token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// GET /api/auth/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/auth/me")
	getMe.SetSummary("Current user")
	getMe.SetDescription("Returns the authenticated user's profile. Requires Bearer token.")
	getMe.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/profile
	getProfile, _ := r.NewOperationContext(http.MethodGet, "/api/profile")
	getProfile.SetSummary("Get profile")
	getProfile.SetDescription("Returns the authenticated user's profile. Requires Bearer token.")
	getProfile.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getProfile.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getProfile)

	// PUT /api/profile
	putProfile, _ := r.NewOperationContext(http.MethodPut, "/api/profile")
	putProfile.SetSummary("Update profile")
	putProfile.SetDescription("Updates username, display name, and avatar. Requires Bearer token.")
	putProfile.AddReqStructure(ProfileRequest{})
	putProfile.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	putProfile.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(putProfile)

	// GET /api/participations
	getParticipations, _ := r.NewOperationContext(http.MethodGet, "/api/participations")
	getParticipations.SetSummary("List my participations")
	getParticipations.SetDescription("Returns the user's participation history across activities. Requires Bearer token.")
	getParticipations.AddRespStructure([]UserParticipation{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getParticipations)

	// GET /api/join/{code}
	getJoin, _ := r.NewOperationContext(http.MethodGet, "/api/join/{code}")
	getJoin.SetSummary("Look up activity by access code")
	getJoin.SetDescription("Resolves an access code to an activity preview before joining.")
	getJoin.AddRespStructure(JoinLookupResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getJoin)

	// GET /api/activities/public
	listPublic, _ := r.NewOperationContext(http.MethodGet, "/api/activities/public")
	listPublic.SetSummary("List public activities")
	listPublic.SetDescription("Returns publicly listed activities with owner info.")
	listPublic.AddRespStructure([]ActivitySummary{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listPublic)

	// GET /api/activities
	listActivities, _ := r.NewOperationContext(http.MethodGet, "/api/activities")
	listActivities.SetSummary("List my activities")
	listActivities.SetDescription("Returns the activities owned by the user. Requires Bearer token.")
	listActivities.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listActivities)

	// POST /api/activities
	createActivity, _ := r.NewOperationContext(http.MethodPost, "/api/activities")
	createActivity.SetSummary("Create activity")
	createActivity.SetDescription("Creates a pending activity with a fresh access code. Requires Bearer token.")
	createActivity.AddReqStructure(ActivityRequest{})
	createActivity.AddRespStructure(ActivityResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createActivity.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createActivity)

	// GET /api/activities/{activityID}
	getActivity, _ := r.NewOperationContext(http.MethodGet, "/api/activities/{activityID}")
	getActivity.SetSummary("Get activity")
	getActivity.SetDescription("Returns an activity with owner profile, content, participants, and the caller's participation. Requires Bearer token.")
	getActivity.AddRespStructure(ActivityDetailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getActivity.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getActivity)

	// PUT /api/activities/{activityID}
	updateActivity, _ := r.NewOperationContext(http.MethodPut, "/api/activities/{activityID}")
	updateActivity.SetSummary("Update activity")
	updateActivity.SetDescription("Updates title, description, and expiry. Owner only.")
	updateActivity.AddReqStructure(ActivityRequest{})
	updateActivity.AddRespStructure(ActivityResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	updateActivity.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(updateActivity)

	// DELETE /api/activities/{activityID}
	deleteActivity, _ := r.NewOperationContext(http.MethodDelete, "/api/activities/{activityID}")
	deleteActivity.SetSummary("Delete activity")
	deleteActivity.SetDescription("Deletes an activity and its items and participations. Owner only.")
	deleteActivity.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteActivity.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(deleteActivity)

	// PUT /api/activities/{activityID}/visibility
	putVisibility, _ := r.NewOperationContext(http.MethodPut, "/api/activities/{activityID}/visibility")
	putVisibility.SetSummary("Set visibility")
	putVisibility.SetDescription("Toggles public listing for an activity. Owner only.")
	putVisibility.AddReqStructure(VisibilityRequest{})
	putVisibility.AddRespStructure(ActivityResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(putVisibility)

	// POST /api/activities/{activityID}/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/start")
	postStart.SetSummary("Start activity")
	postStart.SetDescription("Moves a pending activity to started. Owner only.")
	postStart.AddRespStructure(ActivityResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postStart)

	// POST /api/activities/{activityID}/finish
	postFinish, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/finish")
	postFinish.SetSummary("End activity")
	postFinish.SetDescription("Ends a pending or started activity. Ended is terminal. Owner only.")
	postFinish.AddRespStructure(ActivityResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postFinish.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postFinish)

	// GET /api/activities/{activityID}/items
	getItems, _ := r.NewOperationContext(http.MethodGet, "/api/activities/{activityID}/items")
	getItems.SetSummary("Get activity content")
	getItems.SetDescription("Returns the activity's content document. Quiz content is normalized to one question list.")
	getItems.AddRespStructure(ItemsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getItems)

	// PUT /api/activities/{activityID}/items
	putItems, _ := r.NewOperationContext(http.MethodPut, "/api/activities/{activityID}/items")
	putItems.SetSummary("Save activity content")
	putItems.SetDescription("Validates and stores the content for the activity's type. Owner only.")
	putItems.AddReqStructure(ItemsRequest{})
	putItems.AddRespStructure(ItemsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	putItems.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(putItems)

	// POST /api/activities/{activityID}/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/join")
	postJoin.SetSummary("Join activity")
	postJoin.SetDescription("Registers the user as a participant. Private activities require the access code. Joining twice is a no-op.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postJoin)

	// POST /api/activities/{activityID}/quiz/submit
	postQuiz, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/quiz/submit")
	postQuiz.SetSummary("Submit quiz answers")
	postQuiz.SetDescription("Grades the submission. A completed quiz cannot be retaken unless the prior score was zero.")
	postQuiz.AddReqStructure(QuizSubmitRequest{})
	postQuiz.AddRespStructure(QuizSubmitResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postQuiz)

	// POST /api/activities/{activityID}/raffle/enter
	postEnter, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/raffle/enter")
	postEnter.SetSummary("Enter raffle")
	postEnter.SetDescription("Marks the user as a raffle entrant. Entering twice is a no-op.")
	postEnter.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postEnter.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postEnter)

	// POST /api/activities/{activityID}/raffle/draw
	postDraw, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/raffle/draw")
	postDraw.SetSummary("Draw raffle winners")
	postDraw.SetDescription("Allocates prizes to shuffled entrants. Each draw replaces the winner list. Owner only.")
	postDraw.AddRespStructure(RaffleDrawResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postDraw.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postDraw)

	// POST /api/activities/{activityID}/wheel/spin
	postSpin, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/wheel/spin")
	postSpin.SetSummary("Spin the wheel")
	postSpin.SetDescription("Prizes mode: one spin per participant, repeats return the stored prize. Participants mode: owner spins for a winner.")
	postSpin.AddRespStructure(WheelSpinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSpin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSpin)

	// DELETE /api/activities/{activityID}/wheel/winner
	deleteWinner, _ := r.NewOperationContext(http.MethodDelete, "/api/activities/{activityID}/wheel/winner")
	deleteWinner.SetSummary("Clear wheel winner")
	deleteWinner.SetDescription("Clears the stored participants-mode winner. Owner only.")
	deleteWinner.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteWinner.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(deleteWinner)

	// POST /api/activities/{activityID}/vote
	postVote, _ := r.NewOperationContext(http.MethodPost, "/api/activities/{activityID}/vote")
	postVote.SetSummary("Cast a vote")
	postVote.SetDescription("Records the user's selections and returns the current tally. One vote per user.")
	postVote.AddReqStructure(VoteRequest{})
	postVote.AddRespStructure(VoteResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postVote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postVote)

	// GET /api/activities/{activityID}/results
	getResults, _ := r.NewOperationContext(http.MethodGet, "/api/activities/{activityID}/results")
	getResults.SetSummary("Activity results")
	getResults.SetDescription("Returns aggregated results for the activity's type. Owner only.")
	getResults.AddRespStructure(ResultsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getResults.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(getResults)

	// GET /api/activities/{activityID}/results/export
	getExport, _ := r.NewOperationContext(http.MethodGet, "/api/activities/{activityID}/results/export")
	getExport.SetSummary("Export results as CSV")
	getExport.SetDescription("Downloads participant results as a CSV file. Owner only.")
	getExport.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/csv"))
	_ = r.AddOperation(getExport)

	// GET /api/activities/{activityID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/activities/{activityID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream for real-time activity updates. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
