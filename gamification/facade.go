/*
facade.go - Orchestration layer

PURPOSE:
  The single entry point that translates domain events ("training
  completed", "punctual check-in") into ledger calls, runs achievement
  evaluation against a pre-evaluation snapshot, applies the returned
  reward effects, and emits notification events.

EVENT FLOW:
  domain event
    -> award XP / grant coins / bump quarterly counter / advance streak
    -> build snapshot
    -> AchievementEngine.Evaluate (returns effects, never applies)
    -> apply effects to progression + coin ledgers
    -> CheckLevelUp (covers crossings caused by reward XP too)
    -> emit notifications (xpAwarded, achievementUnlocked, levelUp)

IDEMPOTENCY:
  XP awards are NOT idempotent: every call is a new event, callers must
  not double-fire a domain event. Achievement unlocking IS idempotent,
  so re-running evaluation after every event is safe.

SEE ALSO:
  - config.go: Event rules
  - achievements/engine.go: Evaluation contract
*/
package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/warp/progression-engine/achievements"
	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
)

// Facade wires the core subsystems together.
type Facade struct {
	progression *progression.Ledger
	engine      *achievements.Engine
	coins       *coins.Ledger
	redemptions *redemption.Workflow
	cfg         Config
	notifier    Notifier
	clock       core.Clock
	log         zerolog.Logger
}

func NewFacade(
	progressionLedger *progression.Ledger,
	engine *achievements.Engine,
	coinLedger *coins.Ledger,
	workflow *redemption.Workflow,
	cfg Config,
	notifier Notifier,
	clock core.Clock,
	log zerolog.Logger,
) *Facade {
	return &Facade{
		progression: progressionLedger,
		engine:      engine,
		coins:       coinLedger,
		redemptions: workflow,
		cfg:         cfg,
		notifier:    notifier,
		clock:       clock,
		log:         log,
	}
}

// =============================================================================
// INBOUND EVENTS
// =============================================================================

// OnTrainingCompleted awards training XP and coins when passed is true.
// A failed training is ignored; no partial reward.
func (f *Facade) OnTrainingCompleted(ctx context.Context, userID, trainingID string, passed bool) error {
	if !passed {
		return nil
	}
	return f.handleEvent(ctx, userID, EventTrainingCompleted,
		fmt.Sprintf("training %s completed", trainingID))
}

// OnPunctualCheckin awards check-in XP and advances the punctuality
// streak and quarterly counter.
func (f *Facade) OnPunctualCheckin(ctx context.Context, userID string) error {
	return f.handleEvent(ctx, userID, EventPunctualCheckin, "punctual check-in")
}

// OnFeedbackGiven awards feedback XP.
func (f *Facade) OnFeedbackGiven(ctx context.Context, userID, feedbackID string) error {
	return f.handleEvent(ctx, userID, EventFeedbackGiven,
		fmt.Sprintf("feedback %s given", feedbackID))
}

// OnDailyLogin awards login XP and advances the daily streak. Multiple
// logins on one day only advance the streak once.
func (f *Facade) OnDailyLogin(ctx context.Context, userID string) error {
	return f.handleEvent(ctx, userID, EventDailyLogin, "daily login")
}

// OnCoinsEarned credits coins from an external rule and converts them to
// bonus XP at the configured rate. The quarterly counter bump follows the
// coins_earned event rule; a config without that rule disables it.
func (f *Facade) OnCoinsEarned(ctx context.Context, userID string, amount int64, reason string) error {
	at := f.clock.Now()
	rule := f.cfg.Rules[EventCoinsEarned]

	if _, err := f.coins.Grant(ctx, userID, amount, coins.TxEarned, reason, "", at); err != nil {
		return err
	}
	if rule.QuarterlyMetric != "" {
		if err := f.progression.RecordQuarterlyMetric(ctx, userID, rule.QuarterlyMetric, amount, at); err != nil {
			return err
		}
	}

	if xp := f.cfg.XPForCoins(amount); xp > 0 {
		ev, err := f.progression.AwardXP(ctx, userID, "", xp, "coins", reason, at)
		if err != nil {
			return err
		}
		f.notifyXP(ctx, ev)
	}

	return f.afterEvent(ctx, userID)
}

// OnBenefitRedemptionRequested starts the redemption workflow.
func (f *Facade) OnBenefitRedemptionRequested(ctx context.Context, userID, benefitID string) (*redemption.Redemption, error) {
	return f.redemptions.Request(ctx, userID, benefitID, f.clock.Now())
}

// OnAdminDecision approves or rejects a pending redemption.
func (f *Facade) OnAdminDecision(ctx context.Context, redemptionID string, approve bool, actorID, reason string) (*redemption.Redemption, error) {
	at := f.clock.Now()
	if approve {
		return f.redemptions.Approve(ctx, redemptionID, actorID, at)
	}
	return f.redemptions.Reject(ctx, redemptionID, actorID, reason, at)
}

// GrantCoins is the admin grant entry point. Runs achievement evaluation
// because coins_earned conditions may now hold.
func (f *Facade) GrantCoins(ctx context.Context, userID string, amount int64, reason, adminID string) (*coins.CoinTransaction, error) {
	at := f.clock.Now()
	tx, err := f.coins.Grant(ctx, userID, amount, coins.TxAdminGrant, reason, adminID, at)
	if err != nil {
		return nil, err
	}
	if err := f.progression.RecordQuarterlyMetric(ctx, userID, progression.MetricCoinsEarned, amount, at); err != nil {
		return nil, err
	}
	return tx, f.afterEvent(ctx, userID)
}

// =============================================================================
// EVENT PIPELINE
// =============================================================================

func (f *Facade) handleEvent(ctx context.Context, userID string, kind EventKind, description string) error {
	rule, ok := f.cfg.Rules[kind]
	if !ok {
		return fmt.Errorf("no rule configured for event %q", kind)
	}
	at := f.clock.Now()

	if rule.XP > 0 {
		ev, err := f.progression.AwardXP(ctx, userID, rule.SkillID, rule.XP, string(kind), description, at)
		if err != nil {
			return err
		}
		f.notifyXP(ctx, ev)
	}

	if rule.Coins > 0 {
		if _, err := f.coins.Grant(ctx, userID, rule.Coins, coins.TxEarned, description, "", at); err != nil {
			return err
		}
		if err := f.progression.RecordQuarterlyMetric(ctx, userID, progression.MetricCoinsEarned, rule.Coins, at); err != nil {
			return err
		}
	}

	if rule.QuarterlyMetric != "" && rule.QuarterlyMetric != progression.MetricCoinsEarned {
		if err := f.progression.RecordQuarterlyMetric(ctx, userID, rule.QuarterlyMetric, 1, at); err != nil {
			return err
		}
	}

	if rule.StreakEligible {
		if err := f.progression.RecordStreakEvent(ctx, userID, at); err != nil {
			return err
		}
	}

	return f.afterEvent(ctx, userID)
}

// afterEvent runs achievement evaluation and level-up detection for a
// user who just received an event, then emits notifications.
func (f *Facade) afterEvent(ctx context.Context, userID string) error {
	at := f.clock.Now()

	snap, err := f.Snapshot(ctx, userID)
	if err != nil {
		return err
	}

	unlocks, err := f.engine.Evaluate(ctx, snap, at)
	if err != nil {
		return err
	}

	for _, u := range unlocks {
		if err := f.applyEffects(ctx, u); err != nil {
			return err
		}
		f.notifier.Notify(ctx, NotificationEvent{
			UserID: userID,
			Kind:   NotifyAchievementUnlocked,
			At:     u.At,
			Payload: map[string]any{
				"achievement_id":   u.Achievement.ID,
				"achievement_name": u.Achievement.Name,
			},
		})
	}

	levelUps, err := f.progression.CheckLevelUp(ctx, userID, at)
	if err != nil {
		return err
	}
	for _, lu := range levelUps {
		f.notifier.Notify(ctx, NotificationEvent{
			UserID: userID,
			Kind:   NotifyLevelUp,
			At:     lu.At,
			Payload: map[string]any{
				"skill_id":   lu.SkillID,
				"from_level": lu.FromLevel,
				"to_level":   lu.ToLevel,
			},
		})
	}

	return nil
}

// applyEffects fans one unlock's rewards out into the ledgers.
func (f *Facade) applyEffects(ctx context.Context, u achievements.Unlock) error {
	desc := fmt.Sprintf("achievement: %s", u.Achievement.Name)
	for _, effect := range u.Achievement.Rewards {
		switch effect.Kind {
		case achievements.RewardXP:
			if _, err := f.progression.AwardXP(ctx, u.UserID, "", effect.Amount, "achievement", desc, u.At); err != nil {
				return err
			}
		case achievements.RewardSkillXP:
			if _, err := f.progression.AwardXP(ctx, u.UserID, effect.SkillID, effect.Amount, "achievement", desc, u.At); err != nil {
				return err
			}
		case achievements.RewardCoins:
			if _, err := f.coins.Grant(ctx, u.UserID, effect.Amount, coins.TxRuleEarned, desc, "", u.At); err != nil {
				return err
			}
			if err := f.progression.RecordQuarterlyMetric(ctx, u.UserID, progression.MetricCoinsEarned, effect.Amount, u.At); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot freezes one user's metric view for an evaluation pass.
// Lifetime activity counters are derived from the XP event log by source;
// a stale quarterly bucket reads as zero for the current quarter.
func (f *Facade) Snapshot(ctx context.Context, userID string) (achievements.Snapshot, error) {
	snap := achievements.Snapshot{
		UserID:    userID,
		AllTime:   make(map[progression.Metric]int64),
		Quarterly: make(map[progression.Metric]int64),
		Unlocked:  make(map[string]bool),
	}

	p, err := f.progression.Progression(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		p = progression.NewUserProgression(userID)
	} else if err != nil {
		return snap, err
	}

	acct, err := f.coins.Account(ctx, userID)
	if err != nil {
		return snap, err
	}

	events, err := f.progression.Events(ctx, userID)
	if err != nil {
		return snap, err
	}
	var trainings, punctual, feedback int64
	for _, ev := range events {
		switch ev.Source {
		case string(EventTrainingCompleted):
			trainings++
		case string(EventPunctualCheckin):
			punctual++
		case string(EventFeedbackGiven):
			feedback++
		}
	}

	snap.AllTime[progression.MetricTotalXP] = p.TotalXP
	snap.AllTime[progression.MetricLevel] = int64(p.Level)
	snap.AllTime[progression.MetricCoinsEarned] = acct.TotalEarned
	snap.AllTime[progression.MetricTrainingsCompleted] = trainings
	snap.AllTime[progression.MetricPunctualDays] = punctual
	snap.AllTime[progression.MetricFeedbackGiven] = feedback
	snap.AllTime[progression.MetricCurrentStreak] = int64(p.Streak.Current)
	snap.AllTime[progression.MetricLongestStreak] = int64(p.Streak.Longest)
	snap.AllTime[progression.MetricAchievements] = int64(len(p.Unlocked))

	if p.Quarterly.Quarter == core.QuarterKey(f.clock.Now()) {
		snap.Quarterly[progression.MetricCoinsEarned] = p.Quarterly.CoinsEarned
		snap.Quarterly[progression.MetricTrainingsCompleted] = p.Quarterly.TrainingsCompleted
		snap.Quarterly[progression.MetricPunctualDays] = p.Quarterly.PunctualDays
		snap.Quarterly[progression.MetricFeedbackGiven] = p.Quarterly.FeedbackGiven
	}

	for id := range p.Unlocked {
		snap.Unlocked[id] = true
	}

	return snap, nil
}

// notifyXP emits the xpAwarded notification for a fresh event.
func (f *Facade) notifyXP(ctx context.Context, ev *progression.XPEvent) {
	f.notifier.Notify(ctx, NotificationEvent{
		UserID: ev.UserID,
		Kind:   NotifyXPAwarded,
		At:     ev.CreatedAt,
		Payload: map[string]any{
			"amount":   ev.Amount,
			"skill_id": ev.SkillID,
			"source":   ev.Source,
		},
	})
}
