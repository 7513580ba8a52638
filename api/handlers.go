/*
handlers.go - HTTP API handlers for the progression engine

PURPOSE:
  Exposes the progression, coin and redemption subsystems via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic through the gamification facade.

ENDPOINTS:
  Users:
    GET    /api/users/{id}/progression        Full progression summary
    GET    /api/users/{id}/xp-events          XP ledger history
    GET    /api/users/{id}/level-ups          Level-up audit log
    GET    /api/users/{id}/coins              Coin balance
    GET    /api/users/{id}/coins/transactions Coin ledger history
    GET    /api/users/{id}/redemptions        Redemption history
    GET    /api/users/{id}/achievements       Unlocked achievements
    POST   /api/users/{id}/achievements/{achievementId}/seen

  Events (inbound from HR systems):
    POST   /api/events/training    Training completed
    POST   /api/events/checkin     Punctual check-in
    POST   /api/events/feedback    Peer feedback given
    POST   /api/events/login       Daily login
    POST   /api/events/coins       External coin earn

  Benefits and redemptions:
    GET    /api/benefits                       Catalog
    POST   /api/benefits                       Create/update catalog item
    POST   /api/redemptions                    Request a redemption
    GET    /api/redemptions/pending            Approval queue
    POST   /api/redemptions/{id}/approve
    POST   /api/redemptions/{id}/reject
    POST   /api/redemptions/{id}/fulfill

  Admin:
    POST   /api/admin/grants                   Manual coin grant
    POST   /api/admin/rebuild/{userId}         Replay logs, report drift

  Catalog:
    GET    /api/levels                         Level table
    GET    /api/achievements                   Achievement catalog

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (facade, ledgers, workflow)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, insufficient balance
  - 404: Resource not found
  - 409: Conflict (illegal state transition, duplicate write)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  Admin routes must be gated before production.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - gamification/facade.go: The orchestration these handlers call
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/progression-engine/achievements"
	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/gamification"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Facade      *gamification.Facade
	Progression *progression.Ledger
	Coins       *coins.Ledger
	Workflow    *redemption.Workflow
	Engine      *achievements.Engine
	Clock       core.Clock
	Log         zerolog.Logger
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(
	facade *gamification.Facade,
	progressionLedger *progression.Ledger,
	coinLedger *coins.Ledger,
	workflow *redemption.Workflow,
	engine *achievements.Engine,
	clock core.Clock,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		Facade:      facade,
		Progression: progressionLedger,
		Coins:       coinLedger,
		Workflow:    workflow,
		Engine:      engine,
		Clock:       clock,
		Log:         log,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// GetProgression returns the full progression summary for a user.
// A user with no recorded events gets the zero-state summary, not a 404.
func (h *Handler) GetProgression(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	p, err := h.Progression.Progression(r.Context(), userID)
	if core.IsNotFound(err) {
		p = progression.NewUserProgression(userID)
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progression", err)
		return
	}

	writeJSON(w, http.StatusOK, h.toProgressionDTO(p))
}

// GetXPEvents returns the XP ledger history for a user.
func (h *Handler) GetXPEvents(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	events, err := h.Progression.Events(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load XP events", err)
		return
	}

	dtos := make([]XPEventDTO, len(events))
	for i, ev := range events {
		dtos[i] = XPEventDTO{
			ID:          ev.ID,
			SkillID:     ev.SkillID,
			Amount:      ev.Amount,
			Source:      ev.Source,
			Description: ev.Description,
			CreatedAt:   ev.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLevelUps returns the level-up audit log for a user.
func (h *Handler) GetLevelUps(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	ups, err := h.Progression.LevelUps(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load level-ups", err)
		return
	}

	dtos := make([]LevelUpDTO, len(ups))
	for i, lu := range ups {
		dtos[i] = LevelUpDTO{
			ID:        lu.ID,
			SkillID:   lu.SkillID,
			FromLevel: lu.FromLevel,
			ToLevel:   lu.ToLevel,
			At:        lu.At.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns the coin balance for a user.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	acct, err := h.Coins.Account(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load account", err)
		return
	}

	writeJSON(w, http.StatusOK, AccountDTO{
		UserID:      userID,
		TotalEarned: acct.TotalEarned,
		Spent:       acct.Spent,
		Available:   acct.Available,
	})
}

// GetCoinTransactions returns the coin ledger history for a user.
func (h *Handler) GetCoinTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	txs, err := h.Coins.Transactions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}

	dtos := make([]CoinTransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = CoinTransactionDTO{
			ID:               tx.ID,
			Amount:           tx.Amount,
			Type:             string(tx.Type),
			Reason:           tx.Reason,
			RelatedBenefitID: tx.RelatedBenefitID,
			RelatedAdminID:   tx.RelatedAdminID,
			CreatedAt:        tx.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUserRedemptions returns a user's redemption history.
func (h *Handler) GetUserRedemptions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	records, err := h.Workflow.ByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load redemptions", err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTOs(records))
}

// GetUserAchievements returns the unlocked achievements for a user,
// sorted by unlock time.
func (h *Handler) GetUserAchievements(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	p, err := h.Progression.Progression(r.Context(), userID)
	if core.IsNotFound(err) {
		writeJSON(w, http.StatusOK, []UnlockDTO{})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load achievements", err)
		return
	}

	writeJSON(w, http.StatusOK, toUnlockDTOs(p))
}

// MarkAchievementSeen acknowledges an unlock notification.
func (h *Handler) MarkAchievementSeen(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	achievementID := chi.URLParam(r, "achievementId")

	if err := h.Progression.MarkUnlockSeen(r.Context(), userID, achievementID); err != nil {
		h.writeDomainError(w, "Failed to mark achievement seen", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EVENT HANDLERS - Inbound activity from HR systems
// =============================================================================

// PostTrainingEvent records a completed training.
func (h *Handler) PostTrainingEvent(w http.ResponseWriter, r *http.Request) {
	var req TrainingEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	if err := h.Facade.OnTrainingCompleted(r.Context(), req.UserID, req.TrainingID, req.Passed); err != nil {
		h.writeDomainError(w, "Failed to process training event", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PostCheckinEvent records a punctual check-in.
func (h *Handler) PostCheckinEvent(w http.ResponseWriter, r *http.Request) {
	var req CheckinEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	if err := h.Facade.OnPunctualCheckin(r.Context(), req.UserID); err != nil {
		h.writeDomainError(w, "Failed to process check-in event", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PostFeedbackEvent records peer feedback given.
func (h *Handler) PostFeedbackEvent(w http.ResponseWriter, r *http.Request) {
	var req FeedbackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	if err := h.Facade.OnFeedbackGiven(r.Context(), req.UserID, req.FeedbackID); err != nil {
		h.writeDomainError(w, "Failed to process feedback event", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PostLoginEvent records a daily login.
func (h *Handler) PostLoginEvent(w http.ResponseWriter, r *http.Request) {
	var req LoginEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	if err := h.Facade.OnDailyLogin(r.Context(), req.UserID); err != nil {
		h.writeDomainError(w, "Failed to process login event", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PostCoinsEvent records an externally earned coin amount.
func (h *Handler) PostCoinsEvent(w http.ResponseWriter, r *http.Request) {
	var req CoinsEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	if err := h.Facade.OnCoinsEarned(r.Context(), req.UserID, req.Amount, req.Reason); err != nil {
		h.writeDomainError(w, "Failed to process coins event", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// =============================================================================
// BENEFIT AND REDEMPTION HANDLERS
// =============================================================================

// ListBenefits returns the benefit catalog.
func (h *Handler) ListBenefits(w http.ResponseWriter, r *http.Request) {
	benefits, err := h.Workflow.Benefits(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list benefits", err)
		return
	}

	dtos := make([]BenefitDTO, len(benefits))
	for i, b := range benefits {
		dtos[i] = toBenefitDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBenefit creates or updates a catalog item.
func (h *Handler) CreateBenefit(w http.ResponseWriter, r *http.Request) {
	var req CreateBenefitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	benefit := &redemption.Benefit{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		CoinCost:    req.CoinCost,
		Category:    req.Category,
		IsActive:    active,
		StockLimit:  req.StockLimit,
	}

	if err := h.Workflow.SaveBenefit(r.Context(), benefit); err != nil {
		h.writeDomainError(w, "Failed to save benefit", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBenefitDTO(*benefit))
}

// SubmitRedemption requests a benefit redemption. Coins are reserved and
// stock decremented immediately; the record awaits an admin decision.
func (h *Handler) SubmitRedemption(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" || req.BenefitID == "" {
		writeError(w, http.StatusBadRequest, "user_id and benefit_id are required", nil)
		return
	}

	rec, err := h.Facade.OnBenefitRedemptionRequested(r.Context(), req.UserID, req.BenefitID)
	if err != nil {
		h.writeDomainError(w, "Failed to submit redemption", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRedemptionDTO(*rec))
}

// ListPendingRedemptions returns the approval queue.
func (h *Handler) ListPendingRedemptions(w http.ResponseWriter, r *http.Request) {
	records, err := h.Workflow.Pending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending redemptions", err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTOs(records))
}

// GetRedemption returns a single redemption record.
func (h *Handler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.Workflow.Redemption(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to load redemption", err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTO(*rec))
}

// ApproveRedemption approves a pending redemption. The coins stay spent.
func (h *Handler) ApproveRedemption(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Facade.OnAdminDecision(r.Context(), id, true, req.ActorID, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to approve redemption", err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTO(*rec))
}

// RejectRedemption rejects a pending redemption, refunding the coins and
// restoring stock.
func (h *Handler) RejectRedemption(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Facade.OnAdminDecision(r.Context(), id, false, req.ActorID, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to reject redemption", err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTO(*rec))
}

// FulfillRedemption marks an approved redemption as delivered.
func (h *Handler) FulfillRedemption(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Workflow.Fulfill(r.Context(), id, req.ActorID, h.Clock.Now())
	if err != nil {
		h.writeDomainError(w, "Failed to fulfill redemption", err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTO(*rec))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateGrant issues a manual coin grant.
func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	tx, err := h.Facade.GrantCoins(r.Context(), req.UserID, req.Amount, req.Reason, req.AdminID)
	if err != nil {
		h.writeDomainError(w, "Failed to grant coins", err)
		return
	}
	writeJSON(w, http.StatusCreated, CoinTransactionDTO{
		ID:             tx.ID,
		Amount:         tx.Amount,
		Type:           string(tx.Type),
		Reason:         tx.Reason,
		RelatedAdminID: tx.RelatedAdminID,
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339),
	})
}

// RebuildUser replays a user's append-only logs and reports every field
// where a derived table had drifted. The replayed values win.
func (h *Handler) RebuildUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	ctx := r.Context()

	_, xpDrift, err := h.Progression.Rebuild(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rebuild progression", err)
		return
	}
	_, coinDrift, err := h.Coins.Rebuild(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rebuild coin account", err)
		return
	}

	resp := RebuildResponse{
		UserID:     userID,
		Rebuilt:    true,
		Mismatches: []MismatchDTO{},
	}
	for _, m := range append(xpDrift, coinDrift...) {
		resp.Mismatches = append(resp.Mismatches, MismatchDTO{
			Field:  m.Field,
			Stored: m.Stored,
			Replay: m.Replay,
		})
	}
	if len(resp.Mismatches) > 0 {
		h.Log.Warn().
			Str("user_id", userID).
			Int("mismatches", len(resp.Mismatches)).
			Msg("rebuild found derived-state drift")
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListLevels returns the level table.
func (h *Handler) ListLevels(w http.ResponseWriter, r *http.Request) {
	defs := h.Progression.Levels().Definitions()
	dtos := make([]LevelDTO, len(defs))
	for i, d := range defs {
		dtos[i] = LevelDTO{
			Level:      d.Level,
			Title:      d.Title,
			RequiredXP: d.RequiredXP,
			Icon:       d.Icon,
			Color:      d.Color,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAchievements returns the achievement catalog. Hidden achievements
// are listed with their conditions and rewards withheld.
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	achs := h.Engine.Achievements()
	dtos := make([]AchievementDTO, len(achs))
	for i, a := range achs {
		dto := AchievementDTO{
			ID:       a.ID,
			Name:     a.Name,
			Icon:     a.Icon,
			IsActive: a.IsActive,
			IsHidden: a.IsHidden,
		}
		if !a.IsHidden {
			dto.Description = a.Description
			dto.Conditions = make([]ConditionDTO, len(a.Conditions))
			for j, c := range a.Conditions {
				dto.Conditions[j] = ConditionDTO{
					Metric:    string(c.Metric),
					Operator:  string(c.Operator),
					Target:    c.Target,
					Timeframe: string(c.Timeframe),
				}
			}
			dto.Rewards = make([]RewardDTO, len(a.Rewards))
			for j, rw := range a.Rewards {
				dto.Rewards[j] = RewardDTO{
					Kind:    string(rw.Kind),
					Amount:  rw.Amount,
					SkillID: rw.SkillID,
				}
			}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func (h *Handler) toProgressionDTO(p *progression.UserProgression) ProgressionDTO {
	levels := h.Progression.Levels()
	progress := levels.Progress(p.TotalXP)

	dto := ProgressionDTO{
		UserID:      p.UserID,
		TotalXP:     p.TotalXP,
		Level:       p.Level,
		LevelXP:     progress.CurrentLevelXP,
		NextLevelXP: progress.NextLevelXP,
		Skills:      make([]SkillDTO, 0, len(p.Skills)),
		Streak: StreakDTO{
			Current: p.Streak.Current,
			Longest: p.Streak.Longest,
		},
		Quarterly: QuarterlyDTO{
			Quarter:            p.Quarterly.Quarter,
			CoinsEarned:        p.Quarterly.CoinsEarned,
			TrainingsCompleted: p.Quarterly.TrainingsCompleted,
			PunctualDays:       p.Quarterly.PunctualDays,
			FeedbackGiven:      p.Quarterly.FeedbackGiven,
		},
		Unlocked: toUnlockDTOs(p),
	}
	if def, ok := levels.Definition(p.Level); ok {
		dto.LevelTitle = def.Title
	}
	if !p.Streak.LastEventDate.IsZero() {
		dto.Streak.LastEventDate = p.Streak.LastEventDate.Format("2006-01-02")
	}
	if !p.LastActiveAt.IsZero() {
		dto.LastActiveAt = p.LastActiveAt.Format(time.RFC3339)
	}

	for _, s := range p.Skills {
		dto.Skills = append(dto.Skills, SkillDTO{
			SkillID:   s.SkillID,
			TotalXP:   s.TotalXP,
			Level:     s.Level,
			XPInLevel: s.XPInLevel,
		})
	}
	sort.Slice(dto.Skills, func(i, j int) bool { return dto.Skills[i].SkillID < dto.Skills[j].SkillID })

	return dto
}

func toUnlockDTOs(p *progression.UserProgression) []UnlockDTO {
	dtos := make([]UnlockDTO, 0, len(p.Unlocked))
	for _, u := range p.Unlocked {
		dtos = append(dtos, UnlockDTO{
			AchievementID: u.AchievementID,
			UnlockedAt:    u.UnlockedAt.Format(time.RFC3339),
			Seen:          u.Seen,
		})
	}
	sort.Slice(dtos, func(i, j int) bool {
		if dtos[i].UnlockedAt == dtos[j].UnlockedAt {
			return dtos[i].AchievementID < dtos[j].AchievementID
		}
		return dtos[i].UnlockedAt < dtos[j].UnlockedAt
	})
	return dtos
}

func toBenefitDTO(b redemption.Benefit) BenefitDTO {
	return BenefitDTO{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		CoinCost:     b.CoinCost,
		Category:     b.Category,
		IsActive:     b.IsActive,
		StockLimit:   b.StockLimit,
		CurrentStock: b.CurrentStock,
	}
}

func toRedemptionDTO(rec redemption.Redemption) RedemptionDTO {
	dto := RedemptionDTO{
		ID:          rec.ID,
		UserID:      rec.UserID,
		BenefitID:   rec.BenefitID,
		CoinsCost:   rec.CoinsCost,
		Status:      string(rec.Status),
		RequestedAt: rec.RequestedAt.Format(time.RFC3339),
		DecidedBy:   rec.DecidedBy,
		Notes:       rec.Notes,
	}
	if rec.DecidedAt != nil {
		dto.DecidedAt = rec.DecidedAt.Format(time.RFC3339)
	}
	if rec.FulfilledAt != nil {
		dto.FulfilledAt = rec.FulfilledAt.Format(time.RFC3339)
	}
	return dto
}

func toRedemptionDTOs(records []redemption.Redemption) []RedemptionDTO {
	dtos := make([]RedemptionDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRedemptionDTO(rec)
	}
	return dtos
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeDomainError maps a domain error onto the HTTP status taxonomy.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, core.ErrInvalidStateTransition),
		errors.Is(err, core.ErrDuplicateTransaction),
		errors.Is(err, core.ErrAlreadyUnlocked):
		writeError(w, http.StatusConflict, message, err)
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
