package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseModel carries the primary key and audit timestamps shared by most tables
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an id when the caller did not
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User is an account holder; every site, estimate and job belongs to one
type User struct {
	BaseModel
	Email           string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash    string     `gorm:"type:text;not null;column:password_hash"`
	FullName        string     `gorm:"type:varchar(200);column:full_name"`
	CompanyName     string     `gorm:"type:varchar(200);column:company_name"`
	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at"`
}

// IsVerified reports whether the user confirmed their email address
func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

// Site is a property the contractor measures and prices
type Site struct {
	BaseModel
	UserID  uuid.UUID    `gorm:"type:uuid;not null;index;column:user_id"`
	Name    string       `gorm:"type:varchar(200);not null"`
	Address string       `gorm:"type:varchar(500)"`
	Objects []SiteObject `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE"`
}

// SiteObject is one drawn feature of a site. Geometry and measurements are
// opaque JSON documents produced by the map client.
type SiteObject struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SiteID       uuid.UUID `gorm:"type:uuid;not null;index;column:site_id"`
	ObjectType   string    `gorm:"type:varchar(100);not null;default:'unclassified';column:object_type"`
	Geometry     string    `gorm:"type:jsonb;not null"`
	Measurements string    `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (o *SiteObject) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// CostCode categorizes line items and job costs by trade
type CostCode struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cost_codes_user_code;column:user_id"`
	Code   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_cost_codes_user_code"`
	Label  string    `gorm:"type:varchar(200);not null"`
	Trade  string    `gorm:"type:varchar(100);not null"`
}

func (c *CostCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Estimate is a priced proposal; Total always equals the sum of its line items
type Estimate struct {
	BaseModel
	UserID    uuid.UUID          `gorm:"type:uuid;not null;index;column:user_id"`
	SiteID    *uuid.UUID         `gorm:"type:uuid;index;column:site_id"`
	Site      *Site              `gorm:"foreignKey:SiteID;constraint:OnDelete:SET NULL"`
	BidID     *string            `gorm:"type:varchar(100);column:bid_id"`
	Title     string             `gorm:"type:varchar(200);not null"`
	Status    EstimateStatus     `gorm:"type:varchar(50);not null;default:'Draft'"`
	Total     decimal.Decimal    `gorm:"type:numeric(12,2);not null;default:0"`
	LineItems []EstimateLineItem `gorm:"foreignKey:EstimateID;constraint:OnDelete:CASCADE"`
}

// EstimateLineItem is one priced unit of work; Total = Quantity × UnitPrice
type EstimateLineItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EstimateID  uuid.UUID       `gorm:"type:uuid;not null;index;column:estimate_id"`
	Description string          `gorm:"type:text;not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null"`
	Unit        string          `gorm:"type:varchar(50);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null;column:unit_price"`
	Total       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CostCodeID  *uuid.UUID      `gorm:"type:uuid;column:cost_code_id"`
	CostCode    *CostCode       `gorm:"foreignKey:CostCodeID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (li *EstimateLineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}

// Job is the execution record of a converted estimate
type Job struct {
	BaseModel
	UserID     uuid.UUID   `gorm:"type:uuid;not null;index;column:user_id"`
	EstimateID *uuid.UUID  `gorm:"type:uuid;uniqueIndex;column:estimate_id"`
	Estimate   *Estimate   `gorm:"foreignKey:EstimateID"`
	BidID      *string     `gorm:"type:varchar(100);column:bid_id"`
	Name       string      `gorm:"type:varchar(200);not null"`
	Status     JobStatus   `gorm:"type:varchar(50);not null;default:'active'"`
	StartDate  *time.Time  `gorm:"column:start_date"`
	EndDate    *time.Time  `gorm:"column:end_date"`
	Budgets    []JobBudget `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	Costs      []JobCost   `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
}

// JobBudget pins one estimate line item's total at conversion time
type JobBudget struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	JobID              uuid.UUID       `gorm:"type:uuid;not null;index;column:job_id"`
	EstimateLineItemID *uuid.UUID      `gorm:"type:uuid;column:estimate_line_item_id"`
	CostCodeID         *uuid.UUID      `gorm:"type:uuid;column:cost_code_id"`
	Description        string          `gorm:"type:text"`
	BudgetTotal        decimal.Decimal `gorm:"type:numeric(12,2);not null;column:budget_total"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (b *JobBudget) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JobCost is an actual expenditure logged against a job
type JobCost struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	JobID       uuid.UUID       `gorm:"type:uuid;not null;index;column:job_id"`
	CostCodeID  *uuid.UUID      `gorm:"type:uuid;column:cost_code_id"`
	CostCode    *CostCode       `gorm:"foreignKey:CostCodeID;constraint:OnDelete:SET NULL"`
	Description string          `gorm:"type:text"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (c *JobCost) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// VerificationToken confirms ownership of an email address. Only the
// SHA-256 of the raw token is stored.
type VerificationToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	TokenHash string     `gorm:"type:varchar(64);not null;uniqueIndex;column:token_hash"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (t *VerificationToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// PasswordResetToken authorizes a single password change
type PasswordResetToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	TokenHash string     `gorm:"type:varchar(64);not null;uniqueIndex;column:token_hash"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Usable reports whether a single-use token can still be redeemed at now
func Usable(expiresAt time.Time, usedAt *time.Time, now time.Time) bool {
	return usedAt == nil && now.Before(expiresAt)
}
