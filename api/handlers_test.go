package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/progression-engine/achievements"
	"github.com/warp/progression-engine/api"
	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/gamification"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
	"github.com/warp/progression-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *core.FixedClock) {
	store := memory.New()

	levels, err := progression.NewLevelTable([]progression.LevelDefinition{
		{Level: 1, Title: "Rookie", RequiredXP: 0},
		{Level: 2, Title: "Explorer", RequiredXP: 100},
		{Level: 3, Title: "Achiever", RequiredXP: 250},
	})
	require.NoError(t, err)

	engine, err := achievements.NewEngine([]achievements.Achievement{
		{
			ID: "first-steps", Name: "First Steps", IsActive: true,
			Conditions: []achievements.Condition{
				{Metric: progression.MetricTotalXP, Operator: achievements.OpGte, Target: 100, Timeframe: achievements.TimeframeAllTime},
			},
		},
		{
			ID: "mystery", Name: "Mystery", IsActive: true, IsHidden: true,
			Conditions: []achievements.Condition{
				{Metric: progression.MetricTotalXP, Operator: achievements.OpGte, Target: 100_000, Timeframe: achievements.TimeframeAllTime},
			},
		},
	}, store)
	require.NoError(t, err)

	clock := &core.FixedClock{At: time.Date(2025, time.July, 15, 9, 0, 0, 0, time.UTC)}
	progressionLedger := progression.NewLedger(store, levels)
	coinLedger := coins.NewLedger(store)
	workflow := redemption.NewWorkflow(store, coinLedger)
	notifier := &gamification.CollectingNotifier{}

	facade := gamification.NewFacade(
		progressionLedger, engine, coinLedger, workflow,
		gamification.DefaultConfig(), notifier, clock, zerolog.Nop(),
	)

	handler := api.NewHandler(facade, progressionLedger, coinLedger, workflow, engine, clock, zerolog.Nop())
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)

	return server, clock
}

func post(t *testing.T, server *httptest.Server, path string, body any) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, server *httptest.Server, path string) *http.Response {
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// EVENT ENDPOINT TESTS
// =============================================================================

func TestAPI_TrainingEvent_UpdatesProgression(t *testing.T) {
	// GIVEN: A running server
	// WHEN: Posting two passed trainings and reading the progression
	// THEN: 100 XP, level 2, quarterly counter at 2, achievement unlocked

	server, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp := post(t, server, "/api/events/training", api.TrainingEventRequest{
			UserID: "emp-1", TrainingID: "t-1", Passed: true,
		})
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}

	resp := get(t, server, "/api/users/emp-1/progression")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[api.ProgressionDTO](t, resp)

	assert.Equal(t, int64(100), p.TotalXP)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, "Explorer", p.LevelTitle)
	assert.Equal(t, int64(2), p.Quarterly.TrainingsCompleted)
	require.Len(t, p.Unlocked, 1)
	assert.Equal(t, "first-steps", p.Unlocked[0].AchievementID)
}

func TestAPI_EventMissingUser_BadRequest(t *testing.T) {
	server, _ := newTestServer(t)

	resp := post(t, server, "/api/events/checkin", api.CheckinEventRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_UnknownUserProgression_ZeroState(t *testing.T) {
	// GIVEN: A user with no events
	// WHEN: Reading their progression
	// THEN: 200 with the zero-state summary, not a 404

	server, _ := newTestServer(t)

	resp := get(t, server, "/api/users/ghost/progression")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[api.ProgressionDTO](t, resp)

	assert.Equal(t, int64(0), p.TotalXP)
	assert.Equal(t, 1, p.Level)
}

// =============================================================================
// REDEMPTION ENDPOINT TESTS
// =============================================================================

func TestAPI_RedemptionLifecycle(t *testing.T) {
	// GIVEN: A funded user and a stocked benefit
	// WHEN: Request -> approve -> fulfill over HTTP
	// THEN: Status codes and balances track the state machine

	server, _ := newTestServer(t)

	resp := post(t, server, "/api/benefits", api.CreateBenefitRequest{
		Title: "Team Lunch", CoinCost: 150, StockLimit: intPtr(2),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	benefit := decode[api.BenefitDTO](t, resp)
	require.NotEmpty(t, benefit.ID)

	resp = post(t, server, "/api/admin/grants", api.GrantRequest{
		UserID: "emp-1", Amount: 500, Reason: "bonus", AdminID: "admin-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, server, "/api/redemptions", api.RedeemRequest{UserID: "emp-1", BenefitID: benefit.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rec := decode[api.RedemptionDTO](t, resp)
	assert.Equal(t, "PENDING", rec.Status)
	assert.Equal(t, int64(150), rec.CoinsCost)

	resp = get(t, server, "/api/redemptions/pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decode[[]api.RedemptionDTO](t, resp)
	assert.Len(t, pending, 1)

	resp = post(t, server, "/api/redemptions/"+rec.ID+"/approve", api.DecisionRequest{ActorID: "admin-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[api.RedemptionDTO](t, resp)
	assert.Equal(t, "APPROVED", approved.Status)

	resp = post(t, server, "/api/redemptions/"+rec.ID+"/fulfill", api.DecisionRequest{ActorID: "admin-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fulfilled := decode[api.RedemptionDTO](t, resp)
	assert.Equal(t, "FULFILLED", fulfilled.Status)

	resp = get(t, server, "/api/users/emp-1/coins")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	acct := decode[api.AccountDTO](t, resp)
	assert.Equal(t, int64(350), acct.Available)
	assert.Equal(t, int64(150), acct.Spent)
}

func TestAPI_ErrorMapping(t *testing.T) {
	// GIVEN: Domain failures of each class
	// WHEN: They surface over HTTP
	// THEN: 400 for balance problems, 404 for lookups, 409 for illegal
	//       transitions

	server, _ := newTestServer(t)

	resp := post(t, server, "/api/benefits", api.CreateBenefitRequest{Title: "Big", CoinCost: 10_000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	benefit := decode[api.BenefitDTO](t, resp)

	// Insufficient balance -> 400
	resp = post(t, server, "/api/redemptions", api.RedeemRequest{UserID: "pauper", BenefitID: benefit.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decode[api.ErrorResponse](t, resp)
	assert.NotEmpty(t, errBody.Details)

	// Unknown redemption -> 404
	resp = post(t, server, "/api/redemptions/no-such-id/approve", api.DecisionRequest{ActorID: "admin-1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Illegal transition -> 409
	resp = post(t, server, "/api/admin/grants", api.GrantRequest{UserID: "emp-1", Amount: 500, AdminID: "admin-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = post(t, server, "/api/redemptions", api.RedeemRequest{UserID: "emp-1", BenefitID: benefit.ID})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode) // still too expensive
	resp.Body.Close()

	cheap := decode[api.BenefitDTO](t, post(t, server, "/api/benefits", api.CreateBenefitRequest{Title: "Cheap", CoinCost: 100}))
	rec := decode[api.RedemptionDTO](t, post(t, server, "/api/redemptions", api.RedeemRequest{UserID: "emp-1", BenefitID: cheap.ID}))

	resp = post(t, server, "/api/redemptions/"+rec.ID+"/fulfill", api.DecisionRequest{ActorID: "admin-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "PENDING -> FULFILLED is not an edge")
	resp.Body.Close()
}

// =============================================================================
// CATALOG AND ADMIN ENDPOINT TESTS
// =============================================================================

func TestAPI_Levels(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server, "/api/levels")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	levels := decode[[]api.LevelDTO](t, resp)

	require.Len(t, levels, 3)
	assert.Equal(t, "Rookie", levels[0].Title)
	assert.Equal(t, int64(250), levels[2].RequiredXP)
}

func TestAPI_Achievements_HiddenConditionsWithheld(t *testing.T) {
	// GIVEN: A visible and a hidden achievement
	// WHEN: Listing the catalog
	// THEN: Both appear, but the hidden one shows no conditions

	server, _ := newTestServer(t)

	resp := get(t, server, "/api/achievements")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	achs := decode[[]api.AchievementDTO](t, resp)
	require.Len(t, achs, 2)

	byID := map[string]api.AchievementDTO{}
	for _, a := range achs {
		byID[a.ID] = a
	}
	assert.NotEmpty(t, byID["first-steps"].Conditions)
	assert.Empty(t, byID["mystery"].Conditions)
	assert.True(t, byID["mystery"].IsHidden)
}

func TestAPI_MarkSeenAndRebuild(t *testing.T) {
	server, _ := newTestServer(t)

	resp := post(t, server, "/api/events/training", api.TrainingEventRequest{UserID: "emp-1", TrainingID: "t", Passed: true})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	resp = post(t, server, "/api/events/training", api.TrainingEventRequest{UserID: "emp-1", TrainingID: "t", Passed: true})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	// Mark the unlock as seen
	resp = post(t, server, "/api/users/emp-1/achievements/first-steps/seen", struct{}{})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = get(t, server, "/api/users/emp-1/achievements")
	unlocks := decode[[]api.UnlockDTO](t, resp)
	require.Len(t, unlocks, 1)
	assert.True(t, unlocks[0].Seen)

	// Rebuild reports no drift for a healthy user
	resp = post(t, server, "/api/admin/rebuild/emp-1", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rebuild := decode[api.RebuildResponse](t, resp)
	assert.True(t, rebuild.Rebuilt)
	assert.Empty(t, rebuild.Mismatches)
}

func intPtr(n int) *int { return &n }
