package pipeline

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrBidNotFound is returned when no bid matches the given id
	ErrBidNotFound = errors.New("bid not found")
	// ErrInvalidStage is returned for a stage outside the canonical pipeline
	ErrInvalidStage = errors.New("invalid pipeline stage")
	// ErrInvalidPriority is returned for an unknown priority
	ErrInvalidPriority = errors.New("invalid bid priority")
)

// Stage is a position in the bid pipeline
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualifying  Stage = "qualifying"
	StageProposal    Stage = "proposal"
	StageSubmitted   Stage = "submitted"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
	StageArchived    Stage = "archived"
)

// Stages lists every pipeline stage in board order
var Stages = []Stage{
	StageLead,
	StageQualifying,
	StageProposal,
	StageSubmitted,
	StageNegotiation,
	StageWon,
	StageLost,
	StageArchived,
}

// IsValid reports whether s is one of the canonical stages
func (s Stage) IsValid() bool {
	for _, stage := range Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// IsClosed reports whether bids in this stage no longer have a live deadline
func (s Stage) IsClosed() bool {
	return s == StageWon || s == StageLost || s == StageArchived
}

// StageInfo describes how a stage is presented on the board
type StageInfo struct {
	ID          Stage  `json:"id"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// StageCatalog holds display metadata for every stage, in board order
var StageCatalog = []StageInfo{
	{ID: StageLead, Label: "Lead", Color: "#6b7280", Description: "New opportunity"},
	{ID: StageQualifying, Label: "Qualifying", Color: "#8b5cf6", Description: "Evaluating fit"},
	{ID: StageProposal, Label: "Proposal", Color: "#3b82f6", Description: "Preparing bid"},
	{ID: StageSubmitted, Label: "Submitted", Color: "#f59e0b", Description: "Awaiting response"},
	{ID: StageNegotiation, Label: "Negotiation", Color: "#ec4899", Description: "In discussion"},
	{ID: StageWon, Label: "Won", Color: "#10b981", Description: "Deal closed"},
	{ID: StageLost, Label: "Lost", Color: "#ef4444", Description: "Did not win"},
	{ID: StageArchived, Label: "Archived", Color: "#9ca3af", Description: "No longer active"},
}

// Priority ranks bids for follow-up
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Bid is a sales opportunity tracked through the pipeline
type Bid struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"ownerId,omitempty"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	CustomerName    string           `json:"customerName,omitempty"`
	CustomerContact string           `json:"customerContact,omitempty"`
	CustomerAddress string           `json:"customerAddress,omitempty"`
	Stage           Stage            `json:"stage"`
	Priority        Priority         `json:"priority"`
	EstimatedValue  *decimal.Decimal `json:"estimatedValue"`
	Probability     int              `json:"probability"`
	DueDate         *time.Time       `json:"dueDate"`
	Tags            []string         `json:"tags"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Value returns the estimated value, treating an unset value as zero
func (b Bid) Value() decimal.Decimal {
	if b.EstimatedValue == nil {
		return decimal.Zero
	}
	return *b.EstimatedValue
}

// HasTag reports whether the bid carries tag
func (b Bid) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (b Bid) clone() Bid {
	c := b
	if b.Tags != nil {
		c.Tags = make([]string, len(b.Tags))
		copy(c.Tags, b.Tags)
	}
	if b.Metadata != nil {
		c.Metadata = make(map[string]any, len(b.Metadata))
		for k, v := range b.Metadata {
			c.Metadata[k] = v
		}
	}
	if b.EstimatedValue != nil {
		v := *b.EstimatedValue
		c.EstimatedValue = &v
	}
	if b.DueDate != nil {
		due := *b.DueDate
		c.DueDate = &due
	}
	return c
}

// BidUpdate lists every mutable bid field. Nil fields are left unchanged;
// the Clear flags reset nullable fields.
type BidUpdate struct {
	Name                *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description         *string          `json:"description,omitempty"`
	OwnerID             *string          `json:"ownerId,omitempty" validate:"omitempty,max=100"`
	CustomerName        *string          `json:"customerName,omitempty" validate:"omitempty,max=200"`
	CustomerContact     *string          `json:"customerContact,omitempty" validate:"omitempty,max=200"`
	CustomerAddress     *string          `json:"customerAddress,omitempty" validate:"omitempty,max=500"`
	Stage               *Stage           `json:"stage,omitempty"`
	Priority            *Priority        `json:"priority,omitempty"`
	EstimatedValue      *decimal.Decimal `json:"estimatedValue,omitempty"`
	ClearEstimatedValue bool             `json:"clearEstimatedValue,omitempty"`
	Probability         *int             `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	DueDate             *time.Time       `json:"dueDate,omitempty"`
	ClearDueDate        bool             `json:"clearDueDate,omitempty"`
	Tags                *[]string        `json:"tags,omitempty"`
	Metadata            map[string]any   `json:"metadata,omitempty"`
}

func (u BidUpdate) apply(b *Bid) {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.OwnerID != nil {
		b.OwnerID = *u.OwnerID
	}
	if u.CustomerName != nil {
		b.CustomerName = *u.CustomerName
	}
	if u.CustomerContact != nil {
		b.CustomerContact = *u.CustomerContact
	}
	if u.CustomerAddress != nil {
		b.CustomerAddress = *u.CustomerAddress
	}
	if u.Stage != nil {
		b.Stage = *u.Stage
	}
	if u.Priority != nil {
		b.Priority = *u.Priority
	}
	switch {
	case u.ClearEstimatedValue:
		b.EstimatedValue = nil
	case u.EstimatedValue != nil:
		v := *u.EstimatedValue
		b.EstimatedValue = &v
	}
	if u.Probability != nil {
		b.Probability = *u.Probability
	}
	switch {
	case u.ClearDueDate:
		b.DueDate = nil
	case u.DueDate != nil:
		due := *u.DueDate
		b.DueDate = &due
	}
	if u.Tags != nil {
		b.Tags = append([]string{}, (*u.Tags)...)
	}
	if u.Metadata != nil {
		if b.Metadata == nil {
			b.Metadata = make(map[string]any, len(u.Metadata))
		}
		for k, v := range u.Metadata {
			b.Metadata[k] = v
		}
	}
}

func (u BidUpdate) check() error {
	if u.Stage != nil && !u.Stage.IsValid() {
		return ErrInvalidStage
	}
	if u.Priority != nil && !u.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// DateRange bounds the due date of listed bids. Zero bounds are open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Filters narrows the listed bids. Zero-valued fields impose no constraint.
type Filters struct {
	Stage     Stage      `json:"stage,omitempty"`
	Owner     string     `json:"owner,omitempty"`
	Priority  Priority   `json:"priority,omitempty"`
	DateRange *DateRange `json:"dateRange,omitempty"`
	Search    string     `json:"search"`
	Tags      []string   `json:"tags"`
}

// FiltersUpdate is merged into the current filters. Setting a string field
// to "" removes that constraint.
type FiltersUpdate struct {
	Stage          *Stage     `json:"stage,omitempty"`
	Owner          *string    `json:"owner,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	DateRange      *DateRange `json:"dateRange,omitempty"`
	ClearDateRange bool       `json:"clearDateRange,omitempty"`
	Search         *string    `json:"search,omitempty"`
	Tags           *[]string  `json:"tags,omitempty"`
}

// StageStats aggregates the bids of one stage
type StageStats struct {
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// Stats summarizes the whole pipeline, ignoring filters
type Stats struct {
	TotalBids    int                  `json:"totalBids"`
	TotalValue   decimal.Decimal      `json:"totalValue"`
	ByStage      map[Stage]StageStats `json:"byStage"`
	OverdueCount int                  `json:"overdueCount"`
	DueThisWeek  int                  `json:"dueThisWeek"`
	WinRate      int                  `json:"winRate"`
}

// Snapshot is the persisted form of a Store
type Snapshot struct {
	Bids        []Bid   `json:"bids"`
	ActiveBidID string  `json:"activeBidId,omitempty"`
	Filters     Filters `json:"filters"`
}

// BidInput is the create-bid payload; unset stage and priority fall back to
// lead and medium
type BidInput struct {
	Name            string           `json:"name" validate:"required,max=200"`
	Description     string           `json:"description,omitempty"`
	OwnerID         string           `json:"ownerId,omitempty" validate:"max=100"`
	CustomerName    string           `json:"customerName,omitempty" validate:"max=200"`
	CustomerContact string           `json:"customerContact,omitempty" validate:"max=200"`
	CustomerAddress string           `json:"customerAddress,omitempty" validate:"max=500"`
	Stage           Stage            `json:"stage,omitempty"`
	Priority        Priority         `json:"priority,omitempty"`
	EstimatedValue  *decimal.Decimal `json:"estimatedValue,omitempty"`
	Probability     int              `json:"probability" validate:"min=0,max=100"`
	DueDate         *time.Time       `json:"dueDate,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

// Bid converts the input into a new bid without id or timestamps
func (in BidInput) Bid() Bid {
	return Bid{
		Name:            in.Name,
		Description:     in.Description,
		OwnerID:         in.OwnerID,
		CustomerName:    in.CustomerName,
		CustomerContact: in.CustomerContact,
		CustomerAddress: in.CustomerAddress,
		Stage:           in.Stage,
		Priority:        in.Priority,
		EstimatedValue:  in.EstimatedValue,
		Probability:     in.Probability,
		DueDate:         in.DueDate,
		Tags:            in.Tags,
		Metadata:        in.Metadata,
	}
}

// BoardColumn is one stage of the board with the filtered bids in it
type BoardColumn struct {
	StageInfo
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
	Bids  []Bid           `json:"bids"`
}
