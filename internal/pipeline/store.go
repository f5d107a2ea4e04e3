// Package pipeline holds a user's working set of bids and the board, list and
// statistics views derived from it.
package pipeline

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dueSoonWindow = 7 * 24 * time.Hour

// Store is the bid pipeline of one user. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	bids        []Bid
	activeBidID string
	filters     Filters
	now         func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty pipeline
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBids replaces the working set
func (s *Store) SetBids(bids []Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bids = make([]Bid, 0, len(bids))
	for _, b := range bids {
		s.bids = append(s.bids, b.clone())
	}
}

// Bids returns every bid in insertion order
func (s *Store) Bids() []Bid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.bids)
}

// AddBid appends a bid. Missing id, stage, priority and timestamps are filled in;
// ids supplied by the caller are not checked for uniqueness.
func (s *Store) AddBid(bid Bid) (Bid, error) {
	if bid.Stage == "" {
		bid.Stage = StageLead
	}
	if !bid.Stage.IsValid() {
		return Bid{}, ErrInvalidStage
	}
	if bid.Priority == "" {
		bid.Priority = PriorityMedium
	}
	if !bid.Priority.IsValid() {
		return Bid{}, ErrInvalidPriority
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if bid.ID == "" {
		bid.ID = uuid.NewString()
	}
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = now
	}
	if bid.UpdatedAt.IsZero() {
		bid.UpdatedAt = now
	}
	if bid.Tags == nil {
		bid.Tags = []string{}
	}

	stored := bid.clone()
	s.bids = append(s.bids, stored)
	return stored.clone(), nil
}

// Bid returns the bid with the given id
func (s *Store) Bid(id string) (Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Bid{}, ErrBidNotFound
	}
	return s.bids[i].clone(), nil
}

// UpdateBid merges update into the matching bid and stamps UpdatedAt.
// An unknown id reports ErrBidNotFound and changes nothing.
func (s *Store) UpdateBid(id string, update BidUpdate) (Bid, error) {
	if err := update.check(); err != nil {
		return Bid{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Bid{}, ErrBidNotFound
	}

	update.apply(&s.bids[i])
	s.bids[i].UpdatedAt = s.now()
	return s.bids[i].clone(), nil
}

// RemoveBid deletes a bid and clears the active selection if it pointed at it
func (s *Store) RemoveBid(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrBidNotFound
	}
	s.bids = append(s.bids[:i], s.bids[i+1:]...)
	if s.activeBidID == id {
		s.activeBidID = ""
	}
	return nil
}

// SetActiveBid selects a bid; an empty id clears the selection
func (s *Store) SetActiveBid(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.indexOf(id) < 0 {
		return ErrBidNotFound
	}
	s.activeBidID = id
	return nil
}

// ActiveBid returns the selected bid, if any
func (s *Store) ActiveBid() (Bid, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(s.activeBidID)
	if s.activeBidID == "" || i < 0 {
		return Bid{}, false
	}
	return s.bids[i].clone(), true
}

// Filters returns the current filter set
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFilters(s.filters)
}

// SetFilters merges update into the current filters
func (s *Store) SetFilters(update FiltersUpdate) (Filters, error) {
	if update.Stage != nil && *update.Stage != "" && !update.Stage.IsValid() {
		return Filters{}, ErrInvalidStage
	}
	if update.Priority != nil && *update.Priority != "" && !update.Priority.IsValid() {
		return Filters{}, ErrInvalidPriority
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := &s.filters
	if update.Stage != nil {
		f.Stage = *update.Stage
	}
	if update.Owner != nil {
		f.Owner = *update.Owner
	}
	if update.Priority != nil {
		f.Priority = *update.Priority
	}
	switch {
	case update.ClearDateRange:
		f.DateRange = nil
	case update.DateRange != nil:
		r := *update.DateRange
		f.DateRange = &r
	}
	if update.Search != nil {
		f.Search = *update.Search
	}
	if update.Tags != nil {
		f.Tags = append([]string{}, (*update.Tags)...)
	}
	return cloneFilters(s.filters), nil
}

// ClearFilters resets every filter
func (s *Store) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = Filters{}
}

// FilteredBids returns the bids that pass every active filter, in insertion order
func (s *Store) FilteredBids() []Bid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered()
}

// BidsByStage partitions the filtered bids by stage. Every stage is present,
// with an empty slice when it holds no bids.
func (s *Store) BidsByStage() map[Stage][]Bid {
	s.mu.RLock()
	defer s.mu.RUnlock()

	board := make(map[Stage][]Bid, len(Stages))
	for _, stage := range Stages {
		board[stage] = []Bid{}
	}
	for _, b := range s.filtered() {
		board[b.Stage] = append(board[b.Stage], b)
	}
	return board
}

// Board lays the filtered bids out in StageCatalog order
func (s *Store) Board() []BoardColumn {
	byStage := s.BidsByStage()
	columns := make([]BoardColumn, 0, len(StageCatalog))
	for _, info := range StageCatalog {
		bids := byStage[info.ID]
		value := decimal.Zero
		for _, b := range bids {
			value = value.Add(b.Value())
		}
		columns = append(columns, BoardColumn{
			StageInfo: info,
			Count:     len(bids),
			Value:     value,
			Bids:      bids,
		})
	}
	return columns
}

// Stats aggregates the unfiltered working set
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	weekAhead := now.Add(dueSoonWindow)

	stats := Stats{
		TotalBids:  len(s.bids),
		TotalValue: decimal.Zero,
		ByStage:    make(map[Stage]StageStats, len(Stages)),
	}
	for _, stage := range Stages {
		stats.ByStage[stage] = StageStats{Value: decimal.Zero}
	}

	for _, b := range s.bids {
		value := b.Value()
		stats.TotalValue = stats.TotalValue.Add(value)

		st := stats.ByStage[b.Stage]
		st.Count++
		st.Value = st.Value.Add(value)
		stats.ByStage[b.Stage] = st

		if b.DueDate == nil {
			continue
		}
		due := *b.DueDate
		if due.Before(now) && !b.Stage.IsClosed() {
			stats.OverdueCount++
		}
		if !due.Before(now) && !due.After(weekAhead) {
			stats.DueThisWeek++
		}
	}

	won := stats.ByStage[StageWon].Count
	lost := stats.ByStage[StageLost].Count
	if won+lost > 0 {
		stats.WinRate = int(math.Round(float64(won) / float64(won+lost) * 100))
	}
	return stats
}

// Snapshot captures the persisted state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Bids:        cloneAll(s.bids),
		ActiveBidID: s.activeBidID,
		Filters:     cloneFilters(s.filters),
	}
}

// Restore replaces the state with a snapshot
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids = cloneAll(snap.Bids)
	s.activeBidID = snap.ActiveBidID
	s.filters = cloneFilters(snap.Filters)
}

func (s *Store) indexOf(id string) int {
	for i := range s.bids {
		if s.bids[i].ID == id {
			return i
		}
	}
	return -1
}

// filtered must be called with the lock held
func (s *Store) filtered() []Bid {
	f := s.filters
	search := strings.ToLower(f.Search)

	out := make([]Bid, 0, len(s.bids))
	for _, b := range s.bids {
		if f.Stage != "" && b.Stage != f.Stage {
			continue
		}
		if f.Owner != "" && b.OwnerID != f.Owner {
			continue
		}
		if f.Priority != "" && b.Priority != f.Priority {
			continue
		}
		if f.DateRange != nil && (b.DueDate == nil || !f.DateRange.contains(*b.DueDate)) {
			continue
		}
		if search != "" && !matchesSearch(b, search) {
			continue
		}
		if !hasAllTags(b, f.Tags) {
			continue
		}
		out = append(out, b.clone())
	}
	return out
}

func matchesSearch(b Bid, search string) bool {
	return strings.Contains(strings.ToLower(b.Name), search) ||
		strings.Contains(strings.ToLower(b.CustomerName), search) ||
		strings.Contains(strings.ToLower(b.Description), search)
}

func hasAllTags(b Bid, tags []string) bool {
	for _, tag := range tags {
		if !b.HasTag(tag) {
			return false
		}
	}
	return true
}

func cloneAll(bids []Bid) []Bid {
	out := make([]Bid, 0, len(bids))
	for _, b := range bids {
		out = append(out, b.clone())
	}
	return out
}

func cloneFilters(f Filters) Filters {
	c := f
	if f.Tags != nil {
		c.Tags = make([]string, len(f.Tags))
		copy(c.Tags, f.Tags)
	}
	if f.DateRange != nil {
		r := *f.DateRange
		c.DateRange = &r
	}
	return c
}
