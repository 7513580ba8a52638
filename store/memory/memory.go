// Package memory provides an in-memory implementation of every store
// interface. For testing and development; production uses store/sqlite.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
)

// Store keeps all logs and derived tables in maps. Append-only logs are
// slices in insertion order; reads return copies.
type Store struct {
	mu sync.RWMutex

	xpEvents     map[string][]progression.XPEvent // by userID
	xpIDs        map[string]bool
	levelUps     map[string][]progression.LevelUpEvent
	progressions map[string]*progression.UserProgression

	coinTxs  map[string][]coins.CoinTransaction
	coinIDs  map[string]bool
	accounts map[string]*coins.CoinAccount

	benefits        map[string]*redemption.Benefit
	redemptions     map[string]*redemption.Redemption
	redemptionOrder []string
}

// Compile-time interface checks.
var (
	_ progression.Store = (*Store)(nil)
	_ coins.Store       = (*Store)(nil)
	_ redemption.Store  = (*Store)(nil)
)

func New() *Store {
	return &Store{
		xpEvents:     make(map[string][]progression.XPEvent),
		xpIDs:        make(map[string]bool),
		levelUps:     make(map[string][]progression.LevelUpEvent),
		progressions: make(map[string]*progression.UserProgression),
		coinTxs:      make(map[string][]coins.CoinTransaction),
		coinIDs:      make(map[string]bool),
		accounts:     make(map[string]*coins.CoinAccount),
		benefits:     make(map[string]*redemption.Benefit),
		redemptions:  make(map[string]*redemption.Redemption),
	}
}

// =============================================================================
// PROGRESSION STORE
// =============================================================================

func (s *Store) AppendXPEvent(_ context.Context, ev progression.XPEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.xpIDs[ev.ID] {
		return core.ErrDuplicateTransaction
	}
	s.xpIDs[ev.ID] = true
	s.xpEvents[ev.UserID] = append(s.xpEvents[ev.UserID], ev)
	return nil
}

func (s *Store) XPEvents(_ context.Context, userID string) ([]progression.XPEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]progression.XPEvent, len(s.xpEvents[userID]))
	copy(out, s.xpEvents[userID])
	return out, nil
}

func (s *Store) Progression(_ context.Context, userID string) (*progression.UserProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progressions[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneProgression(p), nil
}

func (s *Store) SaveProgression(_ context.Context, p *progression.UserProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := cloneProgression(p)
	// Unlocks live in their own log; keep whatever was recorded there.
	if existing, ok := s.progressions[p.UserID]; ok && len(existing.Unlocked) > len(saved.Unlocked) {
		saved.Unlocked = existing.Unlocked
	}
	s.progressions[p.UserID] = saved
	return nil
}

func (s *Store) AppendLevelUp(_ context.Context, ev progression.LevelUpEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levelUps[ev.UserID] = append(s.levelUps[ev.UserID], ev)
	return nil
}

func (s *Store) LevelUps(_ context.Context, userID string) ([]progression.LevelUpEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]progression.LevelUpEvent, len(s.levelUps[userID]))
	copy(out, s.levelUps[userID])
	return out, nil
}

func (s *Store) RecordUnlock(_ context.Context, userID, achievementID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progressions[userID]
	if !ok {
		p = progression.NewUserProgression(userID)
		s.progressions[userID] = p
	}
	if _, exists := p.Unlocked[achievementID]; exists {
		return core.ErrAlreadyUnlocked
	}
	p.Unlocked[achievementID] = progression.UnlockRecord{
		AchievementID: achievementID,
		UnlockedAt:    at,
	}
	return nil
}

func (s *Store) MarkUnlockSeen(_ context.Context, userID, achievementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progressions[userID]
	if !ok {
		return core.ErrNotFound
	}
	rec, exists := p.Unlocked[achievementID]
	if !exists {
		return core.ErrNotFound
	}
	rec.Seen = true
	p.Unlocked[achievementID] = rec
	return nil
}

// =============================================================================
// COIN STORE
// =============================================================================

func (s *Store) AppendCoinTx(_ context.Context, tx coins.CoinTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coinIDs[tx.ID] {
		return core.ErrDuplicateTransaction
	}
	s.coinIDs[tx.ID] = true
	s.coinTxs[tx.UserID] = append(s.coinTxs[tx.UserID], tx)
	return nil
}

func (s *Store) CoinTxs(_ context.Context, userID string) ([]coins.CoinTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]coins.CoinTransaction, len(s.coinTxs[userID]))
	copy(out, s.coinTxs[userID])
	return out, nil
}

func (s *Store) Account(_ context.Context, userID string) (*coins.CoinAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) SaveAccount(_ context.Context, a *coins.CoinAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.UserID] = &cp
	return nil
}

// =============================================================================
// REDEMPTION STORE
// =============================================================================

func (s *Store) Benefit(_ context.Context, id string) (*redemption.Benefit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.benefits[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneBenefit(b), nil
}

func (s *Store) Benefits(_ context.Context) ([]redemption.Benefit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]redemption.Benefit, 0, len(s.benefits))
	for _, b := range s.benefits {
		out = append(out, *cloneBenefit(b))
	}
	return out, nil
}

func (s *Store) SaveBenefit(_ context.Context, b *redemption.Benefit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benefits[b.ID] = cloneBenefit(b)
	return nil
}

func (s *Store) InsertRedemption(_ context.Context, r *redemption.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.redemptions[r.ID]; exists {
		return core.ErrDuplicateTransaction
	}
	cp := *r
	s.redemptions[r.ID] = &cp
	s.redemptionOrder = append(s.redemptionOrder, r.ID)
	return nil
}

func (s *Store) Redemption(_ context.Context, id string) (*redemption.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.redemptions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) UpdateRedemption(_ context.Context, r *redemption.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.redemptions[r.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *r
	s.redemptions[r.ID] = &cp
	return nil
}

func (s *Store) RedemptionsByStatus(_ context.Context, status redemption.Status) ([]redemption.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []redemption.Redemption
	for _, id := range s.redemptionOrder {
		r := s.redemptions[id]
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *Store) RedemptionsByUser(_ context.Context, userID string) ([]redemption.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []redemption.Redemption
	for _, id := range s.redemptionOrder {
		r := s.redemptions[id]
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// =============================================================================
// CLONES - Readers never share memory with stored records
// =============================================================================

func cloneProgression(p *progression.UserProgression) *progression.UserProgression {
	cp := *p
	cp.Skills = make(map[string]*progression.SkillProgress, len(p.Skills))
	for id, sp := range p.Skills {
		c := *sp
		cp.Skills[id] = &c
	}
	cp.Unlocked = make(map[string]progression.UnlockRecord, len(p.Unlocked))
	for id, u := range p.Unlocked {
		cp.Unlocked[id] = u
	}
	return &cp
}

func cloneBenefit(b *redemption.Benefit) *redemption.Benefit {
	cp := *b
	if b.StockLimit != nil {
		v := *b.StockLimit
		cp.StockLimit = &v
	}
	if b.CurrentStock != nil {
		v := *b.CurrentStock
		cp.CurrentStock = &v
	}
	return &cp
}
