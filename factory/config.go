/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON gamification configuration into validated domain objects:
  the level table, the achievement rule set, the benefit catalog seed and
  the event rules. This enables tuning without code changes - HR can
  adjust thresholds, rewards and catalog items in JSON.

JSON SCHEMA:
  {
    "levels": [
      {"level": 1, "title": "Rookie", "required_xp": 0, "icon": "seed"},
      {"level": 2, "title": "Explorer", "required_xp": 100}
    ],
    "achievements": [
      {
        "id": "first-steps",
        "name": "First Steps",
        "conditions": [
          {"metric": "total_xp", "operator": "gte", "target": 100, "timeframe": "allTime"}
        ],
        "rewards": [{"kind": "coins", "amount": 50}],
        "is_active": true
      }
    ],
    "benefits": [
      {"id": "day-off", "title": "Extra Day Off", "coin_cost": 500, "stock_limit": 10}
    ],
    "event_rules": {
      "training_completed": {"xp": 50, "coins": 10, "skill_id": "knowledge",
                             "quarterly_metric": "trainings_completed"}
    },
    "xp_per_coin": "0.5"
  }

VALIDATION:
  Malformed configuration (bad level table, achievement with zero
  conditions, unknown metric) aborts loading. These are startup-fatal
  errors by design, never handled per-request.

SEE ALSO:
  - progression/levels.go: Level table validation
  - achievements/engine.go: Rule validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/warp/progression-engine/achievements"
	"github.com/warp/progression-engine/gamification"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type ConfigJSON struct {
	Levels       []LevelJSON                    `json:"levels"`
	Achievements []AchievementJSON              `json:"achievements"`
	Benefits     []BenefitJSON                  `json:"benefits,omitempty"`
	EventRules   map[string]EventRuleJSON       `json:"event_rules,omitempty"`
	XPPerCoin    string                         `json:"xp_per_coin,omitempty"`
}

type LevelJSON struct {
	Level      int    `json:"level"`
	Title      string `json:"title"`
	RequiredXP int64  `json:"required_xp"`
	Icon       string `json:"icon,omitempty"`
	Color      string `json:"color,omitempty"`
}

type AchievementJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Conditions  []ConditionJSON `json:"conditions"`
	Rewards     []RewardJSON    `json:"rewards,omitempty"`
	IsActive    bool            `json:"is_active"`
	IsHidden    bool            `json:"is_hidden,omitempty"`
}

type ConditionJSON struct {
	Metric    string `json:"metric"`
	Operator  string `json:"operator"`
	Target    int64  `json:"target"`
	Timeframe string `json:"timeframe,omitempty"` // default allTime
}

type RewardJSON struct {
	Kind    string `json:"kind"`
	Amount  int64  `json:"amount"`
	SkillID string `json:"skill_id,omitempty"`
}

type BenefitJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CoinCost    int64  `json:"coin_cost"`
	Category    string `json:"category,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"` // default true
	StockLimit  *int   `json:"stock_limit,omitempty"`
}

type EventRuleJSON struct {
	XP              int64  `json:"xp,omitempty"`
	Coins           int64  `json:"coins,omitempty"`
	SkillID         string `json:"skill_id,omitempty"`
	StreakEligible  bool   `json:"streak_eligible,omitempty"`
	QuarterlyMetric string `json:"quarterly_metric,omitempty"`
}

// =============================================================================
// RESULT
// =============================================================================

// Loaded is the validated configuration bundle.
type Loaded struct {
	Levels       *progression.LevelTable
	Achievements []achievements.Achievement
	Benefits     []redemption.Benefit
	Gamification gamification.Config
}

// =============================================================================
// LOADING
// =============================================================================

// LoadFile reads and parses a configuration file.
func LoadFile(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a JSON configuration document.
func Parse(data []byte) (*Loaded, error) {
	var cfg ConfigJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	defs := make([]progression.LevelDefinition, len(cfg.Levels))
	for i, l := range cfg.Levels {
		defs[i] = progression.LevelDefinition{
			Level:      l.Level,
			Title:      l.Title,
			RequiredXP: l.RequiredXP,
			Icon:       l.Icon,
			Color:      l.Color,
		}
	}
	levels, err := progression.NewLevelTable(defs)
	if err != nil {
		return nil, err
	}

	achs := make([]achievements.Achievement, len(cfg.Achievements))
	for i, a := range cfg.Achievements {
		achs[i] = toAchievement(a)
	}
	// Validate the rule set now so a bad file fails at load, not at wiring.
	if _, err := achievements.NewEngine(achs, nil); err != nil {
		return nil, err
	}

	benefits := make([]redemption.Benefit, len(cfg.Benefits))
	for i, b := range cfg.Benefits {
		benefits[i] = toBenefit(b)
	}

	game := gamification.DefaultConfig()
	if len(cfg.EventRules) > 0 {
		game.Rules = make(map[gamification.EventKind]gamification.EventRule, len(cfg.EventRules))
		for kind, r := range cfg.EventRules {
			game.Rules[gamification.EventKind(kind)] = gamification.EventRule{
				XP:              r.XP,
				Coins:           r.Coins,
				SkillID:         r.SkillID,
				StreakEligible:  r.StreakEligible,
				QuarterlyMetric: progression.Metric(r.QuarterlyMetric),
			}
		}
	}
	if cfg.XPPerCoin != "" {
		rate, err := decimal.NewFromString(cfg.XPPerCoin)
		if err != nil {
			return nil, fmt.Errorf("parse xp_per_coin %q: %w", cfg.XPPerCoin, err)
		}
		game.XPPerCoin = rate
	}

	return &Loaded{
		Levels:       levels,
		Achievements: achs,
		Benefits:     benefits,
		Gamification: game,
	}, nil
}

func toAchievement(a AchievementJSON) achievements.Achievement {
	conditions := make([]achievements.Condition, len(a.Conditions))
	for i, c := range a.Conditions {
		timeframe := achievements.Timeframe(c.Timeframe)
		if timeframe == "" {
			timeframe = achievements.TimeframeAllTime
		}
		conditions[i] = achievements.Condition{
			Metric:    progression.Metric(c.Metric),
			Operator:  achievements.Operator(c.Operator),
			Target:    c.Target,
			Timeframe: timeframe,
		}
	}
	rewards := make([]achievements.RewardEffect, len(a.Rewards))
	for i, r := range a.Rewards {
		rewards[i] = achievements.RewardEffect{
			Kind:    achievements.RewardKind(r.Kind),
			Amount:  r.Amount,
			SkillID: r.SkillID,
		}
	}
	return achievements.Achievement{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Icon:        a.Icon,
		Conditions:  conditions,
		Rewards:     rewards,
		IsActive:    a.IsActive,
		IsHidden:    a.IsHidden,
	}
}

func toBenefit(b BenefitJSON) redemption.Benefit {
	active := true
	if b.IsActive != nil {
		active = *b.IsActive
	}
	benefit := redemption.Benefit{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		CoinCost:    b.CoinCost,
		Category:    b.Category,
		IsActive:    active,
	}
	if b.StockLimit != nil {
		limit := *b.StockLimit
		stock := limit
		benefit.StockLimit = &limit
		benefit.CurrentStock = &stock
	}
	return benefit
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultJSON is a ready-to-run configuration used when no file is given.
func DefaultJSON() []byte {
	return []byte(`{
  "levels": [
    {"level": 1, "title": "Rookie",    "required_xp": 0,    "icon": "seedling"},
    {"level": 2, "title": "Explorer",  "required_xp": 100,  "icon": "compass"},
    {"level": 3, "title": "Achiever",  "required_xp": 250,  "icon": "medal"},
    {"level": 4, "title": "Expert",    "required_xp": 500,  "icon": "star"},
    {"level": 5, "title": "Master",    "required_xp": 1000, "icon": "crown"},
    {"level": 6, "title": "Legend",    "required_xp": 2000, "icon": "trophy"}
  ],
  "achievements": [
    {
      "id": "first-steps",
      "name": "First Steps",
      "description": "Earn your first 100 XP",
      "conditions": [
        {"metric": "total_xp", "operator": "gte", "target": 100}
      ],
      "rewards": [{"kind": "coins", "amount": 50}],
      "is_active": true
    },
    {
      "id": "quarterly-scholar",
      "name": "Quarterly Scholar",
      "description": "Complete three trainings in a single quarter",
      "conditions": [
        {"metric": "trainings_completed", "operator": "gte", "target": 3, "timeframe": "quarterly"}
      ],
      "rewards": [
        {"kind": "xp", "amount": 100},
        {"kind": "skillXp", "amount": 50, "skill_id": "knowledge"}
      ],
      "is_active": true
    },
    {
      "id": "week-streak",
      "name": "Creature of Habit",
      "description": "Keep a seven day streak",
      "conditions": [
        {"metric": "current_streak", "operator": "gte", "target": 7}
      ],
      "rewards": [{"kind": "coins", "amount": 100}],
      "is_active": true
    }
  ],
  "benefits": [
    {"id": "day-off",     "title": "Extra Day Off",      "coin_cost": 500, "category": "time",  "stock_limit": 10},
    {"id": "lunch",       "title": "Team Lunch Voucher", "coin_cost": 150, "category": "perks"},
    {"id": "conference",  "title": "Conference Ticket",  "coin_cost": 800, "category": "growth", "stock_limit": 3}
  ],
  "xp_per_coin": "0.5"
}`)
}
