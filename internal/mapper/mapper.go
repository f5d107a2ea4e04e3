package mapper

import (
	"encoding/json"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/rollup"
	"github.com/shopspring/decimal"
)

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		CompanyName:   user.CompanyName,
		EmailVerified: user.IsVerified(),
		CreatedAt:     user.CreatedAt,
	}
}

// ToSiteDTO converts Site to SiteDTO
func ToSiteDTO(site *domain.Site) domain.SiteDTO {
	return domain.SiteDTO{
		ID:        site.ID,
		Name:      site.Name,
		Address:   site.Address,
		CreatedAt: site.CreatedAt,
		UpdatedAt: site.UpdatedAt,
	}
}

// ToSiteObjectDTO converts SiteObject to SiteObjectDTO
func ToSiteObjectDTO(obj *domain.SiteObject) domain.SiteObjectDTO {
	return domain.SiteObjectDTO{
		ID:           obj.ID,
		SiteID:       obj.SiteID,
		ObjectType:   obj.ObjectType,
		Geometry:     rawJSON(obj.Geometry, "null"),
		Measurements: rawJSON(obj.Measurements, "{}"),
		CreatedAt:    obj.CreatedAt,
	}
}

// ToCostCodeDTO converts CostCode to CostCodeDTO
func ToCostCodeDTO(code *domain.CostCode) domain.CostCodeDTO {
	return domain.CostCodeDTO{
		ID:    code.ID,
		Code:  code.Code,
		Label: code.Label,
		Trade: code.Trade,
	}
}

// ToLineItemDTO converts EstimateLineItem to LineItemDTO
func ToLineItemDTO(item *domain.EstimateLineItem) domain.LineItemDTO {
	dto := domain.LineItemDTO{
		ID:          item.ID,
		EstimateID:  item.EstimateID,
		Description: item.Description,
		Quantity:    item.Quantity.String(),
		Unit:        item.Unit,
		UnitPrice:   rollup.FormatMoney(item.UnitPrice),
		Total:       rollup.FormatMoney(item.Total),
		CostCodeID:  item.CostCodeID,
	}
	if item.CostCode != nil {
		code := ToCostCodeDTO(item.CostCode)
		dto.CostCode = &code
	}
	return dto
}

// ToEstimateDTO converts Estimate to EstimateDTO. Line items are included when loaded.
func ToEstimateDTO(estimate *domain.Estimate) domain.EstimateDTO {
	dto := domain.EstimateDTO{
		ID:        estimate.ID,
		SiteID:    estimate.SiteID,
		BidID:     estimate.BidID,
		Title:     estimate.Title,
		Status:    estimate.Status,
		Total:     rollup.FormatMoney(estimate.Total),
		CreatedAt: estimate.CreatedAt,
		UpdatedAt: estimate.UpdatedAt,
	}
	if estimate.Site != nil {
		dto.SiteName = estimate.Site.Name
	}
	if len(estimate.LineItems) > 0 {
		dto.LineItems = make([]domain.LineItemDTO, len(estimate.LineItems))
		for i := range estimate.LineItems {
			dto.LineItems[i] = ToLineItemDTO(&estimate.LineItems[i])
		}
	}
	return dto
}

// ToJobDTO converts Job to JobDTO
func ToJobDTO(job *domain.Job) domain.JobDTO {
	return domain.JobDTO{
		ID:         job.ID,
		EstimateID: job.EstimateID,
		BidID:      job.BidID,
		Name:       job.Name,
		Status:     job.Status,
		StartDate:  job.StartDate,
		EndDate:    job.EndDate,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
}

// JobVariance computes the rollup over a job's loaded budgets and costs
func JobVariance(job *domain.Job) rollup.Variance {
	budgets := make([]decimal.Decimal, len(job.Budgets))
	for i, b := range job.Budgets {
		budgets[i] = b.BudgetTotal
	}
	costs := make([]decimal.Decimal, len(job.Costs))
	for i, c := range job.Costs {
		costs[i] = c.Amount
	}
	return rollup.JobVariance(budgets, costs)
}

// ToVarianceDTO renders a variance with fixed two-place amounts
func ToVarianceDTO(v rollup.Variance) domain.VarianceDTO {
	return domain.VarianceDTO{
		BudgetTotal: rollup.FormatMoney(v.BudgetTotal),
		ActualTotal: rollup.FormatMoney(v.ActualTotal),
		Variance:    rollup.FormatMoney(v.Variance),
		VariancePct: rollup.FormatMoney(v.VariancePct),
		OverBudget:  v.OverBudget(),
	}
}

// ToJobDetailDTO converts a job with loaded budgets and costs
func ToJobDetailDTO(job *domain.Job) domain.JobDetailDTO {
	dto := domain.JobDetailDTO{
		JobDTO:   ToJobDTO(job),
		Budgets:  make([]domain.JobBudgetDTO, len(job.Budgets)),
		Costs:    make([]domain.JobCostDTO, len(job.Costs)),
		Variance: ToVarianceDTO(JobVariance(job)),
	}
	for i, b := range job.Budgets {
		dto.Budgets[i] = domain.JobBudgetDTO{
			ID:                 b.ID,
			EstimateLineItemID: b.EstimateLineItemID,
			CostCodeID:         b.CostCodeID,
			Description:        b.Description,
			BudgetTotal:        rollup.FormatMoney(b.BudgetTotal),
		}
	}
	for i := range job.Costs {
		dto.Costs[i] = ToJobCostDTO(&job.Costs[i])
	}
	return dto
}

// ToJobCostDTO converts JobCost to JobCostDTO
func ToJobCostDTO(cost *domain.JobCost) domain.JobCostDTO {
	dto := domain.JobCostDTO{
		ID:          cost.ID,
		CostCodeID:  cost.CostCodeID,
		Description: cost.Description,
		Amount:      rollup.FormatMoney(cost.Amount),
		CreatedAt:   cost.CreatedAt,
	}
	if cost.CostCode != nil {
		code := ToCostCodeDTO(cost.CostCode)
		dto.CostCode = &code
	}
	return dto
}

func rawJSON(s, fallback string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage(fallback)
	}
	return json.RawMessage(s)
}
