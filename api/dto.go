/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Progression:
    ProgressionDTO, SkillDTO, StreakDTO, QuarterlyDTO, XPEventDTO,
    LevelUpDTO, LevelDTO

  Coins:
    AccountDTO, CoinTransactionDTO

  Achievements:
    AchievementDTO, UnlockDTO

  Redemptions:
    BenefitDTO, RedemptionDTO, RedeemRequest, DecisionRequest

  Events:
    TrainingEventRequest, CheckinEventRequest, FeedbackEventRequest,
    LoginEventRequest, CoinsEventRequest

  Admin:
    GrantRequest, RebuildResponse

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - gamification/facade.go: The operations these map onto
*/
package api

// =============================================================================
// PROGRESSION
// =============================================================================

// ProgressionDTO is the full progression summary for one user.
type ProgressionDTO struct {
	UserID       string       `json:"user_id"`
	TotalXP      int64        `json:"total_xp"`
	Level        int          `json:"level"`
	LevelTitle   string       `json:"level_title,omitempty"`
	LevelXP      int64        `json:"level_xp"`
	NextLevelXP  int64        `json:"next_level_xp"`
	Skills       []SkillDTO   `json:"skills"`
	Streak       StreakDTO    `json:"streak"`
	Quarterly    QuarterlyDTO `json:"quarterly"`
	Unlocked     []UnlockDTO  `json:"unlocked"`
	LastActiveAt string       `json:"last_active_at,omitempty"`
}

type SkillDTO struct {
	SkillID   string `json:"skill_id"`
	TotalXP   int64  `json:"total_xp"`
	Level     int    `json:"level"`
	XPInLevel int64  `json:"xp_in_level"`
}

type StreakDTO struct {
	Current       int    `json:"current"`
	Longest       int    `json:"longest"`
	LastEventDate string `json:"last_event_date,omitempty"`
}

type QuarterlyDTO struct {
	Quarter            string `json:"quarter"`
	CoinsEarned        int64  `json:"coins_earned"`
	TrainingsCompleted int64  `json:"trainings_completed"`
	PunctualDays       int64  `json:"punctual_days"`
	FeedbackGiven      int64  `json:"feedback_given"`
}

// XPEventDTO is one append-only XP ledger entry.
type XPEventDTO struct {
	ID          string `json:"id"`
	SkillID     string `json:"skill_id,omitempty"`
	Amount      int64  `json:"amount"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// LevelUpDTO is one entry of the level-up audit log.
type LevelUpDTO struct {
	ID        string `json:"id"`
	SkillID   string `json:"skill_id,omitempty"`
	FromLevel int    `json:"from_level"`
	ToLevel   int    `json:"to_level"`
	At        string `json:"at"`
}

// LevelDTO is one row of the level table.
type LevelDTO struct {
	Level      int    `json:"level"`
	Title      string `json:"title"`
	RequiredXP int64  `json:"required_xp"`
	Icon       string `json:"icon,omitempty"`
	Color      string `json:"color,omitempty"`
}

// =============================================================================
// COINS
// =============================================================================

// AccountDTO is the derived coin balance.
type AccountDTO struct {
	UserID      string `json:"user_id"`
	TotalEarned int64  `json:"total_earned"`
	Spent       int64  `json:"spent"`
	Available   int64  `json:"available"`
}

// CoinTransactionDTO is one append-only coin ledger entry.
type CoinTransactionDTO struct {
	ID               string `json:"id"`
	Amount           int64  `json:"amount"`
	Type             string `json:"type"`
	Reason           string `json:"reason,omitempty"`
	RelatedBenefitID string `json:"related_benefit_id,omitempty"`
	RelatedAdminID   string `json:"related_admin_id,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

// AchievementDTO is one catalog entry. Hidden achievements are served with
// their conditions omitted until unlocked.
type AchievementDTO struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	IsActive    bool           `json:"is_active"`
	IsHidden    bool           `json:"is_hidden"`
	Conditions  []ConditionDTO `json:"conditions,omitempty"`
	Rewards     []RewardDTO    `json:"rewards,omitempty"`
}

type ConditionDTO struct {
	Metric    string `json:"metric"`
	Operator  string `json:"operator"`
	Target    int64  `json:"target"`
	Timeframe string `json:"timeframe"`
}

type RewardDTO struct {
	Kind    string `json:"kind"`
	Amount  int64  `json:"amount"`
	SkillID string `json:"skill_id,omitempty"`
}

// UnlockDTO is one unlocked achievement for a user.
type UnlockDTO struct {
	AchievementID string `json:"achievement_id"`
	UnlockedAt    string `json:"unlocked_at"`
	Seen          bool   `json:"seen"`
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

// BenefitDTO is one catalog item purchasable with coins.
type BenefitDTO struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	CoinCost     int64  `json:"coin_cost"`
	Category     string `json:"category,omitempty"`
	IsActive     bool   `json:"is_active"`
	StockLimit   *int   `json:"stock_limit,omitempty"`
	CurrentStock *int   `json:"current_stock,omitempty"`
}

// CreateBenefitRequest creates or updates a catalog item.
type CreateBenefitRequest struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CoinCost    int64  `json:"coin_cost"`
	Category    string `json:"category,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
	StockLimit  *int   `json:"stock_limit,omitempty"`
}

// RedemptionDTO is one redemption record.
type RedemptionDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	BenefitID   string `json:"benefit_id"`
	CoinsCost   int64  `json:"coins_cost"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	DecidedAt   string `json:"decided_at,omitempty"`
	DecidedBy   string `json:"decided_by,omitempty"`
	FulfilledAt string `json:"fulfilled_at,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// RedeemRequest submits a new redemption.
type RedeemRequest struct {
	UserID    string `json:"user_id"`
	BenefitID string `json:"benefit_id"`
}

// DecisionRequest approves, rejects or fulfills a pending redemption.
type DecisionRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// =============================================================================
// INBOUND EVENTS
// =============================================================================

type TrainingEventRequest struct {
	UserID     string `json:"user_id"`
	TrainingID string `json:"training_id"`
	Passed     bool   `json:"passed"`
}

type CheckinEventRequest struct {
	UserID string `json:"user_id"`
}

type FeedbackEventRequest struct {
	UserID     string `json:"user_id"`
	FeedbackID string `json:"feedback_id"`
}

type LoginEventRequest struct {
	UserID string `json:"user_id"`
}

type CoinsEventRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// ADMIN
// =============================================================================

// GrantRequest is a manual coin grant by an administrator.
type GrantRequest struct {
	UserID  string `json:"user_id"`
	Amount  int64  `json:"amount"`
	Reason  string `json:"reason"`
	AdminID string `json:"admin_id"`
}

// RebuildResponse reports the outcome of a log replay. Mismatches list
// every field where the derived tables had drifted from the logs before
// the rebuild corrected them.
type RebuildResponse struct {
	UserID     string        `json:"user_id"`
	Rebuilt    bool          `json:"rebuilt"`
	Mismatches []MismatchDTO `json:"mismatches"`
}

type MismatchDTO struct {
	Field  string `json:"field"`
	Stored int64  `json:"stored"`
	Replay int64  `json:"replayed"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
