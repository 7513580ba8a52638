/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements progression.Store, coins.Store and redemption.Store using
  SQLite. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The XP event log, level-up log and coin transaction log never see an
  UPDATE or DELETE. Corrections happen through compensating entries
  (refunds), and derived tables are rebuildable by replaying the logs.

KEY TABLES:
  xp_events:           Immutable XP award ledger
  level_ups:           Level crossing audit log
  achievement_unlocks: At-most-once unlock records (unique index)
  user_progressions:   Derived per-user progression
  coin_transactions:   Immutable coin ledger
  coin_accounts:       Derived balances
  benefits:            Redemption catalog with stock counters
  redemptions:         Redemption request history

AT-MOST-ONCE UNLOCK:
  idx_unlock_once on (user_id, achievement_id) makes double unlocks a
  constraint violation; RecordUnlock maps that to ErrAlreadyUnlocked.

WAL MODE:
  The database is opened with WAL for better read concurrency and crash
  recovery; a process-wide mutex serializes writers.

USAGE:
  store, err := sqlite.New("./data/progression.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var (
	_ progression.Store = (*Store)(nil)
	_ coins.Store       = (*Store)(nil)
	_ redemption.Store  = (*Store)(nil)
)

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	-- XP events (append-only ledger)
	CREATE TABLE IF NOT EXISTS xp_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		skill_id TEXT NOT NULL DEFAULT '',
		amount INTEGER NOT NULL,
		source TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_xp_events_user ON xp_events(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_xp_events_source ON xp_events(user_id, source);

	-- Level-up audit log (append-only)
	CREATE TABLE IF NOT EXISTS level_ups (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		skill_id TEXT NOT NULL DEFAULT '',
		from_level INTEGER NOT NULL,
		to_level INTEGER NOT NULL,
		at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_level_ups_user ON level_ups(user_id, at);

	-- CRITICAL: at-most-once unlock per (user, achievement)
	CREATE TABLE IF NOT EXISTS achievement_unlocks (
		user_id TEXT NOT NULL,
		achievement_id TEXT NOT NULL,
		unlocked_at TEXT NOT NULL,
		seen INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unlock_once
		ON achievement_unlocks(user_id, achievement_id);

	-- Derived progression (rebuildable from xp_events)
	CREATE TABLE IF NOT EXISTS user_progressions (
		user_id TEXT PRIMARY KEY,
		total_xp INTEGER NOT NULL,
		level INTEGER NOT NULL,
		skills_json TEXT NOT NULL,
		streak_current INTEGER NOT NULL,
		streak_longest INTEGER NOT NULL,
		streak_last_date TEXT,
		quarter TEXT NOT NULL DEFAULT '',
		q_coins INTEGER NOT NULL DEFAULT 0,
		q_trainings INTEGER NOT NULL DEFAULT 0,
		q_punctual INTEGER NOT NULL DEFAULT 0,
		q_feedback INTEGER NOT NULL DEFAULT 0,
		last_active_at TEXT
	);

	-- Coin transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS coin_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		tx_type TEXT NOT NULL,
		reason TEXT,
		related_benefit_id TEXT,
		related_admin_id TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_coin_txs_user ON coin_transactions(user_id, created_at);

	-- Derived coin accounts (rebuildable from coin_transactions)
	CREATE TABLE IF NOT EXISTS coin_accounts (
		user_id TEXT PRIMARY KEY,
		total_earned INTEGER NOT NULL,
		spent INTEGER NOT NULL,
		available INTEGER NOT NULL
	);

	-- Benefit catalog
	CREATE TABLE IF NOT EXISTS benefits (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		coin_cost INTEGER NOT NULL,
		category TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		stock_limit INTEGER,
		current_stock INTEGER
	);

	-- Redemption history
	CREATE TABLE IF NOT EXISTS redemptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		benefit_id TEXT NOT NULL,
		coins_cost INTEGER NOT NULL,
		status TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		decided_at TEXT,
		decided_by TEXT,
		fulfilled_at TEXT,
		notes TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_redemptions_user ON redemptions(user_id, requested_at);
	CREATE INDEX IF NOT EXISTS idx_redemptions_status ON redemptions(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// =============================================================================
// PROGRESSION STORE
// =============================================================================

func (s *Store) AppendXPEvent(ctx context.Context, ev progression.XPEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO xp_events (id, user_id, skill_id, amount, source, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.SkillID, ev.Amount, ev.Source, ev.Description, formatTime(ev.CreatedAt))
	if isUniqueViolation(err) {
		return core.ErrDuplicateTransaction
	}
	return err
}

func (s *Store) XPEvents(ctx context.Context, userID string) ([]progression.XPEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, skill_id, amount, source, description, created_at
		FROM xp_events WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []progression.XPEvent
	for rows.Next() {
		var ev progression.XPEvent
		var createdAt string
		var description sql.NullString
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.SkillID, &ev.Amount, &ev.Source, &description, &createdAt); err != nil {
			return nil, err
		}
		ev.Description = description.String
		ev.CreatedAt = parseTime(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) Progression(ctx context.Context, userID string) (*progression.UserProgression, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, total_xp, level, skills_json,
		       streak_current, streak_longest, streak_last_date,
		       quarter, q_coins, q_trainings, q_punctual, q_feedback, last_active_at
		FROM user_progressions WHERE user_id = ?`, userID)

	p := progression.NewUserProgression(userID)
	var skillsJSON string
	var lastDate, lastActive sql.NullString
	err := row.Scan(&p.UserID, &p.TotalXP, &p.Level, &skillsJSON,
		&p.Streak.Current, &p.Streak.Longest, &lastDate,
		&p.Quarterly.Quarter, &p.Quarterly.CoinsEarned, &p.Quarterly.TrainingsCompleted,
		&p.Quarterly.PunctualDays, &p.Quarterly.FeedbackGiven, &lastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progression for user %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(skillsJSON), &p.Skills); err != nil {
		return nil, fmt.Errorf("decode skills for user %s: %w", userID, err)
	}
	if p.Skills == nil {
		p.Skills = make(map[string]*progression.SkillProgress)
	}
	p.Streak.LastEventDate = parseTime(lastDate.String)
	p.LastActiveAt = parseTime(lastActive.String)

	unlocks, err := s.unlocks(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Unlocked = unlocks
	return p, nil
}

func (s *Store) SaveProgression(ctx context.Context, p *progression.UserProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	skillsJSON, err := json.Marshal(p.Skills)
	if err != nil {
		return err
	}

	var lastDate, lastActive any
	if !p.Streak.LastEventDate.IsZero() {
		lastDate = formatTime(p.Streak.LastEventDate)
	}
	if !p.LastActiveAt.IsZero() {
		lastActive = formatTime(p.LastActiveAt)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_progressions
			(user_id, total_xp, level, skills_json,
			 streak_current, streak_longest, streak_last_date,
			 quarter, q_coins, q_trainings, q_punctual, q_feedback, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_xp = excluded.total_xp,
			level = excluded.level,
			skills_json = excluded.skills_json,
			streak_current = excluded.streak_current,
			streak_longest = excluded.streak_longest,
			streak_last_date = excluded.streak_last_date,
			quarter = excluded.quarter,
			q_coins = excluded.q_coins,
			q_trainings = excluded.q_trainings,
			q_punctual = excluded.q_punctual,
			q_feedback = excluded.q_feedback,
			last_active_at = excluded.last_active_at`,
		p.UserID, p.TotalXP, p.Level, string(skillsJSON),
		p.Streak.Current, p.Streak.Longest, lastDate,
		p.Quarterly.Quarter, p.Quarterly.CoinsEarned, p.Quarterly.TrainingsCompleted,
		p.Quarterly.PunctualDays, p.Quarterly.FeedbackGiven, lastActive)
	return err
}

func (s *Store) AppendLevelUp(ctx context.Context, ev progression.LevelUpEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_ups (id, user_id, skill_id, from_level, to_level, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.SkillID, ev.FromLevel, ev.ToLevel, formatTime(ev.At))
	return err
}

func (s *Store) LevelUps(ctx context.Context, userID string) ([]progression.LevelUpEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, skill_id, from_level, to_level, at
		FROM level_ups WHERE user_id = ? ORDER BY at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []progression.LevelUpEvent
	for rows.Next() {
		var ev progression.LevelUpEvent
		var at string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.SkillID, &ev.FromLevel, &ev.ToLevel, &at); err != nil {
			return nil, err
		}
		ev.At = parseTime(at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) RecordUnlock(ctx context.Context, userID, achievementID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achievement_unlocks (user_id, achievement_id, unlocked_at, seen)
		VALUES (?, ?, ?, 0)`,
		userID, achievementID, formatTime(at))
	if isUniqueViolation(err) {
		return core.ErrAlreadyUnlocked
	}
	return err
}

func (s *Store) MarkUnlockSeen(ctx context.Context, userID, achievementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE achievement_unlocks SET seen = 1
		WHERE user_id = ? AND achievement_id = ?`, userID, achievementID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unlock %s/%s: %w", userID, achievementID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) unlocks(ctx context.Context, userID string) (map[string]progression.UnlockRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT achievement_id, unlocked_at, seen
		FROM achievement_unlocks WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]progression.UnlockRecord)
	for rows.Next() {
		var rec progression.UnlockRecord
		var at string
		var seen int
		if err := rows.Scan(&rec.AchievementID, &at, &seen); err != nil {
			return nil, err
		}
		rec.UnlockedAt = parseTime(at)
		rec.Seen = seen != 0
		out[rec.AchievementID] = rec
	}
	return out, rows.Err()
}

// =============================================================================
// COIN STORE
// =============================================================================

func (s *Store) AppendCoinTx(ctx context.Context, tx coins.CoinTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coin_transactions
			(id, user_id, amount, tx_type, reason, related_benefit_id, related_admin_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount, string(tx.Type), tx.Reason,
		tx.RelatedBenefitID, tx.RelatedAdminID, formatTime(tx.CreatedAt))
	if isUniqueViolation(err) {
		return core.ErrDuplicateTransaction
	}
	return err
}

func (s *Store) CoinTxs(ctx context.Context, userID string) ([]coins.CoinTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, tx_type, reason, related_benefit_id, related_admin_id, created_at
		FROM coin_transactions WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []coins.CoinTransaction
	for rows.Next() {
		var tx coins.CoinTransaction
		var txType, createdAt string
		var reason, benefitID, adminID sql.NullString
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &txType, &reason, &benefitID, &adminID, &createdAt); err != nil {
			return nil, err
		}
		tx.Type = coins.TransactionType(txType)
		tx.Reason = reason.String
		tx.RelatedBenefitID = benefitID.String
		tx.RelatedAdminID = adminID.String
		tx.CreatedAt = parseTime(createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) Account(ctx context.Context, userID string) (*coins.CoinAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, total_earned, spent, available
		FROM coin_accounts WHERE user_id = ?`, userID)

	var a coins.CoinAccount
	err := row.Scan(&a.UserID, &a.TotalEarned, &a.Spent, &a.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account for user %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) SaveAccount(ctx context.Context, a *coins.CoinAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coin_accounts (user_id, total_earned, spent, available)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_earned = excluded.total_earned,
			spent = excluded.spent,
			available = excluded.available`,
		a.UserID, a.TotalEarned, a.Spent, a.Available)
	return err
}

// =============================================================================
// REDEMPTION STORE
// =============================================================================

func (s *Store) Benefit(ctx context.Context, id string) (*redemption.Benefit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, coin_cost, category, is_active, stock_limit, current_stock
		FROM benefits WHERE id = ?`, id)
	b, err := scanBenefit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("benefit %s: %w", id, core.ErrNotFound)
	}
	return b, err
}

func (s *Store) Benefits(ctx context.Context) ([]redemption.Benefit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, coin_cost, category, is_active, stock_limit, current_stock
		FROM benefits ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []redemption.Benefit
	for rows.Next() {
		b, err := scanBenefit(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBenefit(scan func(...any) error) (*redemption.Benefit, error) {
	var b redemption.Benefit
	var description, category sql.NullString
	var isActive int
	var stockLimit, currentStock sql.NullInt64
	if err := scan(&b.ID, &b.Title, &description, &b.CoinCost, &category, &isActive, &stockLimit, &currentStock); err != nil {
		return nil, err
	}
	b.Description = description.String
	b.Category = category.String
	b.IsActive = isActive != 0
	if stockLimit.Valid {
		v := int(stockLimit.Int64)
		b.StockLimit = &v
	}
	if currentStock.Valid {
		v := int(currentStock.Int64)
		b.CurrentStock = &v
	}
	return &b, nil
}

func (s *Store) SaveBenefit(ctx context.Context, b *redemption.Benefit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stockLimit, currentStock any
	if b.StockLimit != nil {
		stockLimit = *b.StockLimit
	}
	if b.CurrentStock != nil {
		currentStock = *b.CurrentStock
	}
	isActive := 0
	if b.IsActive {
		isActive = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO benefits (id, title, description, coin_cost, category, is_active, stock_limit, current_stock)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			coin_cost = excluded.coin_cost,
			category = excluded.category,
			is_active = excluded.is_active,
			stock_limit = excluded.stock_limit,
			current_stock = excluded.current_stock`,
		b.ID, b.Title, b.Description, b.CoinCost, b.Category, isActive, stockLimit, currentStock)
	return err
}

func (s *Store) InsertRedemption(ctx context.Context, r *redemption.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO redemptions
			(id, user_id, benefit_id, coins_cost, status, requested_at, decided_at, decided_by, fulfilled_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.BenefitID, r.CoinsCost, string(r.Status),
		formatTime(r.RequestedAt), nullTime(r.DecidedAt), r.DecidedBy, nullTime(r.FulfilledAt), r.Notes)
	if isUniqueViolation(err) {
		return core.ErrDuplicateTransaction
	}
	return err
}

func (s *Store) Redemption(ctx context.Context, id string) (*redemption.Redemption, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, benefit_id, coins_cost, status, requested_at, decided_at, decided_by, fulfilled_at, notes
		FROM redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("redemption %s: %w", id, core.ErrNotFound)
	}
	return r, err
}

func (s *Store) UpdateRedemption(ctx context.Context, r *redemption.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE redemptions SET
			status = ?, decided_at = ?, decided_by = ?, fulfilled_at = ?, notes = ?
		WHERE id = ?`,
		string(r.Status), nullTime(r.DecidedAt), r.DecidedBy, nullTime(r.FulfilledAt), r.Notes, r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("redemption %s: %w", r.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) RedemptionsByStatus(ctx context.Context, status redemption.Status) ([]redemption.Redemption, error) {
	query := `
		SELECT id, user_id, benefit_id, coins_cost, status, requested_at, decided_at, decided_by, fulfilled_at, notes
		FROM redemptions`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY requested_at, id`
	return s.queryRedemptions(ctx, query, args...)
}

func (s *Store) RedemptionsByUser(ctx context.Context, userID string) ([]redemption.Redemption, error) {
	return s.queryRedemptions(ctx, `
		SELECT id, user_id, benefit_id, coins_cost, status, requested_at, decided_at, decided_by, fulfilled_at, notes
		FROM redemptions WHERE user_id = ? ORDER BY requested_at, id`, userID)
}

func (s *Store) queryRedemptions(ctx context.Context, query string, args ...any) ([]redemption.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []redemption.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRedemption(scan func(...any) error) (*redemption.Redemption, error) {
	var r redemption.Redemption
	var status, requestedAt string
	var decidedAt, decidedBy, fulfilledAt, notes sql.NullString
	if err := scan(&r.ID, &r.UserID, &r.BenefitID, &r.CoinsCost, &status,
		&requestedAt, &decidedAt, &decidedBy, &fulfilledAt, &notes); err != nil {
		return nil, err
	}
	r.Status = redemption.Status(status)
	r.RequestedAt = parseTime(requestedAt)
	if decidedAt.Valid {
		t := parseTime(decidedAt.String)
		r.DecidedAt = &t
	}
	r.DecidedBy = decidedBy.String
	if fulfilledAt.Valid {
		t := parseTime(fulfilledAt.String)
		r.FulfilledAt = &t
	}
	r.Notes = notes.String
	return &r, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
