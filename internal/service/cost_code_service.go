package service

import (
	"context"
	"fmt"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/mapper"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"go.uber.org/zap"
)

// DefaultCostCode is one entry of the starter cost code list
type DefaultCostCode struct {
	Code  string
	Label string
	Trade string
}

// DefaultCostCodes are seeded for users who have no cost codes yet
var DefaultCostCodes = []DefaultCostCode{
	{Code: "ASPH-PAVE", Label: "Asphalt paving", Trade: "asphalt"},
	{Code: "ASPH-PATCH", Label: "Asphalt patch", Trade: "asphalt"},
	{Code: "ASPH-CRACK", Label: "Crack sealing", Trade: "asphalt"},
	{Code: "SEAL-1", Label: "Sealcoat 1 coat", Trade: "sealcoating"},
	{Code: "SEAL-2", Label: "Sealcoat 2 coats", Trade: "sealcoating"},
	{Code: "STRP-STALL", Label: "Standard stall", Trade: "striping"},
	{Code: "STRP-ADA", Label: "ADA stall", Trade: "striping"},
	{Code: "STRP-FIRE", Label: "Fire lane curb", Trade: "striping"},
	{Code: "STRP-ARROW", Label: "Directional arrow", Trade: "striping"},
}

type CostCodeService struct {
	costCodeRepo *repository.CostCodeRepository
	logger       *zap.Logger
}

func NewCostCodeService(costCodeRepo *repository.CostCodeRepository, logger *zap.Logger) *CostCodeService {
	return &CostCodeService{
		costCodeRepo: costCodeRepo,
		logger:       logger,
	}
}

// List returns the user's cost codes ordered by code, seeding the defaults first
// when the user has none
func (s *CostCodeService) List(ctx context.Context) ([]domain.CostCodeDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	count, err := s.costCodeRepo.Count(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count cost codes", zap.Error(err))
		return nil, fmt.Errorf("failed to count cost codes: %w", err)
	}

	if count == 0 {
		seed := make([]domain.CostCode, len(DefaultCostCodes))
		for i, def := range DefaultCostCodes {
			seed[i] = domain.CostCode{UserID: userID, Code: def.Code, Label: def.Label, Trade: def.Trade}
		}
		if err := s.costCodeRepo.CreateMissing(ctx, seed); err != nil {
			s.logger.Error("Failed to seed cost codes", zap.String("user_id", userID.String()), zap.Error(err))
			return nil, fmt.Errorf("failed to seed cost codes: %w", err)
		}
		s.logger.Info("Seeded default cost codes", zap.String("user_id", userID.String()))
	}

	codes, err := s.costCodeRepo.List(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list cost codes", zap.Error(err))
		return nil, fmt.Errorf("failed to list cost codes: %w", err)
	}

	dtos := make([]domain.CostCodeDTO, len(codes))
	for i := range codes {
		dtos[i] = mapper.ToCostCodeDTO(&codes[i])
	}
	return dtos, nil
}
