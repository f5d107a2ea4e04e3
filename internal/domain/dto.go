package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Auth and profile
// ============================================================================

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FullName    string `json:"fullName,omitempty" validate:"max=200"`
	CompanyName string `json:"companyName,omitempty" validate:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required,hexadecimal,len=64"`
}

type PasswordResetRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Token    string `json:"token" validate:"required,hexadecimal,len=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type UpdateProfileRequest struct {
	FullName    *string `json:"fullName,omitempty" validate:"omitempty,max=200"`
	CompanyName *string `json:"companyName,omitempty" validate:"omitempty,max=200"`
}

type UserDTO struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	CompanyName   string    `json:"companyName"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

type LoginResponse struct {
	AccessToken string  `json:"accessToken"`
	TokenType   string  `json:"tokenType"`
	ExpiresIn   int     `json:"expiresIn"`
	User        UserDTO `json:"user"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// ============================================================================
// Sites
// ============================================================================

type CreateSiteRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

type SiteFeatureInput struct {
	ObjectType   string          `json:"objectType,omitempty" validate:"max=100"`
	Geometry     json.RawMessage `json:"geometry" validate:"required"`
	Measurements json.RawMessage `json:"measurements,omitempty"`
}

type ReplaceSiteObjectsRequest struct {
	Features []SiteFeatureInput `json:"features" validate:"dive"`
}

type ReplaceSiteObjectsResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

type SiteDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SiteObjectDTO struct {
	ID           uuid.UUID       `json:"id"`
	SiteID       uuid.UUID       `json:"siteId"`
	ObjectType   string          `json:"objectType"`
	Geometry     json.RawMessage `json:"geometry"`
	Measurements json.RawMessage `json:"measurements"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ============================================================================
// Cost codes and estimates
// ============================================================================

type CostCodeDTO struct {
	ID    uuid.UUID `json:"id"`
	Code  string    `json:"code"`
	Label string    `json:"label"`
	Trade string    `json:"trade"`
}

type CreateEstimateRequest struct {
	SiteID uuid.UUID `json:"siteId" validate:"required"`
	Title  string    `json:"title,omitempty" validate:"max=200"`
}

type UpdateEstimateRequest struct {
	Title  *string         `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Status *EstimateStatus `json:"status,omitempty" validate:"omitempty,oneof=Draft Sent Approved Rejected"`
}

// AddLineItemRequest carries decimal strings so no precision is lost in transit
type AddLineItemRequest struct {
	Description string     `json:"description" validate:"required,max=1000"`
	Quantity    string     `json:"quantity" validate:"required,positive_quantity"`
	Unit        string     `json:"unit" validate:"required,max=50"`
	UnitPrice   string     `json:"unitPrice" validate:"required,positive_money"`
	CostCodeID  *uuid.UUID `json:"costCodeId,omitempty"`
}

type LineItemDTO struct {
	ID          uuid.UUID    `json:"id"`
	EstimateID  uuid.UUID    `json:"estimateId"`
	Description string       `json:"description"`
	Quantity    string       `json:"quantity"`
	Unit        string       `json:"unit"`
	UnitPrice   string       `json:"unitPrice"`
	Total       string       `json:"total"`
	CostCodeID  *uuid.UUID   `json:"costCodeId,omitempty"`
	CostCode    *CostCodeDTO `json:"costCode,omitempty"`
}

type EstimateDTO struct {
	ID        uuid.UUID      `json:"id"`
	SiteID    *uuid.UUID     `json:"siteId,omitempty"`
	SiteName  string         `json:"siteName,omitempty"`
	BidID     *string        `json:"bidId,omitempty"`
	Title     string         `json:"title"`
	Status    EstimateStatus `json:"status"`
	Total     string         `json:"total"`
	LineItems []LineItemDTO  `json:"lineItems,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ============================================================================
// Jobs
// ============================================================================

type AddJobCostRequest struct {
	Amount      string     `json:"amount" validate:"required,positive_money"`
	Description string     `json:"description,omitempty" validate:"max=1000"`
	CostCodeID  *uuid.UUID `json:"costCodeId,omitempty"`
}

type UpdateJobStatusRequest struct {
	Status JobStatus `json:"status" validate:"required,oneof=planned active completed cancelled"`
}

type JobDTO struct {
	ID         uuid.UUID  `json:"id"`
	EstimateID *uuid.UUID `json:"estimateId,omitempty"`
	BidID      *string    `json:"bidId,omitempty"`
	Name       string     `json:"name"`
	Status     JobStatus  `json:"status"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type JobBudgetDTO struct {
	ID                 uuid.UUID  `json:"id"`
	EstimateLineItemID *uuid.UUID `json:"estimateLineItemId,omitempty"`
	CostCodeID         *uuid.UUID `json:"costCodeId,omitempty"`
	Description        string     `json:"description"`
	BudgetTotal        string     `json:"budgetTotal"`
}

type JobCostDTO struct {
	ID          uuid.UUID    `json:"id"`
	CostCodeID  *uuid.UUID   `json:"costCodeId,omitempty"`
	CostCode    *CostCodeDTO `json:"costCode,omitempty"`
	Description string       `json:"description"`
	Amount      string       `json:"amount"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type VarianceDTO struct {
	BudgetTotal string `json:"budgetTotal"`
	ActualTotal string `json:"actualTotal"`
	Variance    string `json:"variance"`
	VariancePct string `json:"variancePct"`
	OverBudget  bool   `json:"overBudget"`
}

type JobDetailDTO struct {
	JobDTO
	Budgets  []JobBudgetDTO `json:"budgets"`
	Costs    []JobCostDTO   `json:"costs"`
	Variance VarianceDTO    `json:"variance"`
}
