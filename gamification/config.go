/*
config.go - Event rules configuration

PURPOSE:
  Maps inbound domain events to their progression effects: how much XP
  and how many coins an event is worth, which skill the XP lands on,
  whether it feeds the daily streak, and which quarterly counter it
  bumps. These are lookup tables, not code branches, so tuning reward
  numbers never touches logic.

  The coin-to-XP conversion rate is a decimal because fractional rates
  (e.g. 0.5 XP per coin) are expected; XP stays integral by flooring.

SEE ALSO:
  - facade.go: Applies the rules
  - factory/config.go: Loads rules from JSON
*/
package gamification

import (
	"github.com/shopspring/decimal"

	"github.com/warp/progression-engine/progression"
)

// EventKind names an inbound domain event.
type EventKind string

const (
	EventTrainingCompleted EventKind = "training_completed"
	EventPunctualCheckin   EventKind = "punctual_checkin"
	EventFeedbackGiven     EventKind = "feedback_given"
	EventDailyLogin        EventKind = "daily_login"
	EventCoinsEarned       EventKind = "coins_earned"
)

// EventRule describes what one event kind is worth.
type EventRule struct {
	XP              int64              // XP awarded; 0 = none
	Coins           int64              // coins granted; 0 = none
	SkillID         string             // default skill the XP lands on; empty = overall only
	StreakEligible  bool               // advances the daily streak
	QuarterlyMetric progression.Metric // quarterly counter to bump; empty = none
}

// Config is the gamification tuning data, loaded at startup.
type Config struct {
	Rules map[EventKind]EventRule

	// XPPerCoin converts coins earned into bonus XP (floored). Zero
	// disables the conversion.
	XPPerCoin decimal.Decimal
}

// DefaultConfig mirrors the numbers the HR application ships with.
func DefaultConfig() Config {
	return Config{
		Rules: map[EventKind]EventRule{
			EventTrainingCompleted: {
				XP:              50,
				Coins:           10,
				SkillID:         "knowledge",
				QuarterlyMetric: progression.MetricTrainingsCompleted,
			},
			EventPunctualCheckin: {
				XP:              10,
				SkillID:         "loyalty",
				StreakEligible:  true,
				QuarterlyMetric: progression.MetricPunctualDays,
			},
			EventFeedbackGiven: {
				XP:              15,
				SkillID:         "collaboration",
				QuarterlyMetric: progression.MetricFeedbackGiven,
			},
			EventDailyLogin: {
				XP:             5,
				StreakEligible: true,
			},
			EventCoinsEarned: {
				QuarterlyMetric: progression.MetricCoinsEarned,
			},
		},
		XPPerCoin: decimal.NewFromFloat(0.5),
	}
}

// XPForCoins applies the conversion rate, flooring to whole XP.
func (c Config) XPForCoins(coins int64) int64 {
	if c.XPPerCoin.IsZero() {
		return 0
	}
	return c.XPPerCoin.Mul(decimal.NewFromInt(coins)).Floor().IntPart()
}
