package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/pipeline"
	"github.com/mcsmartbytes/job-sense/internal/tracker"
	"github.com/mcsmartbytes/job-sense/internal/workspace"
	"go.uber.org/zap"
)

// PipelineService exposes the authenticated user's bid pipeline
type PipelineService struct {
	workspaces      *workspace.Manager
	estimateService *EstimateService
	logger          *zap.Logger
}

// NewPipelineService creates a new pipeline service instance
func NewPipelineService(workspaces *workspace.Manager, estimateService *EstimateService, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		workspaces:      workspaces,
		estimateService: estimateService,
		logger:          logger,
	}
}

// ListBids returns the bids that pass the current filters
func (s *PipelineService) ListBids(ctx context.Context) ([]pipeline.Bid, error) {
	var bids []pipeline.Bid
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		bids = ws.Pipeline.FilteredBids()
		return nil
	})
	return bids, err
}

func (s *PipelineService) GetBid(ctx context.Context, id string) (*pipeline.Bid, error) {
	var bid pipeline.Bid
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		var err error
		bid, err = ws.Pipeline.Bid(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (s *PipelineService) CreateBid(ctx context.Context, in *pipeline.BidInput) (*pipeline.Bid, error) {
	var bid pipeline.Bid
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		bid, err = ws.Pipeline.AddBid(in.Bid())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (s *PipelineService) UpdateBid(ctx context.Context, id string, update *pipeline.BidUpdate) (*pipeline.Bid, error) {
	var bid pipeline.Bid
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		bid, err = ws.Pipeline.UpdateBid(id, *update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (s *PipelineService) DeleteBid(ctx context.Context, id string) error {
	return s.mutate(ctx, func(ws *workspace.Workspace) error {
		return ws.Pipeline.RemoveBid(id)
	})
}

// Board returns every stage in board order with its filtered bids
func (s *PipelineService) Board(ctx context.Context) ([]pipeline.BoardColumn, error) {
	var board []pipeline.BoardColumn
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		board = ws.Pipeline.Board()
		return nil
	})
	return board, err
}

// Stats summarizes every bid, ignoring filters
func (s *PipelineService) Stats(ctx context.Context) (*pipeline.Stats, error) {
	var stats pipeline.Stats
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		stats = ws.Pipeline.Stats()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *PipelineService) Filters(ctx context.Context) (*pipeline.Filters, error) {
	var filters pipeline.Filters
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		filters = ws.Pipeline.Filters()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &filters, nil
}

// SetFilters merges update into the stored filters
func (s *PipelineService) SetFilters(ctx context.Context, update *pipeline.FiltersUpdate) (*pipeline.Filters, error) {
	var filters pipeline.Filters
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		filters, err = ws.Pipeline.SetFilters(*update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &filters, nil
}

func (s *PipelineService) ClearFilters(ctx context.Context) error {
	return s.mutate(ctx, func(ws *workspace.Workspace) error {
		ws.Pipeline.ClearFilters()
		return nil
	})
}

// ActiveBid returns the selected bid, or nil when nothing is selected
func (s *PipelineService) ActiveBid(ctx context.Context) (*pipeline.Bid, error) {
	var (
		bid pipeline.Bid
		ok  bool
	)
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		bid, ok = ws.Pipeline.ActiveBid()
		return nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return &bid, nil
}

// SetActiveBid selects a bid; an empty id clears the selection
func (s *PipelineService) SetActiveBid(ctx context.Context, id string) (*pipeline.Bid, error) {
	if err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		return ws.Pipeline.SetActiveBid(id)
	}); err != nil {
		return nil, err
	}
	return s.ActiveBid(ctx)
}

// ConvertBid creates a planned job in the user's tracker from a bid
func (s *PipelineService) ConvertBid(ctx context.Context, bidID string, lineItems []tracker.LineItemInput) (*tracker.Job, error) {
	for i, item := range lineItems {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: line item %d: %w", ErrInvalidInput, i, err)
		}
	}

	var job tracker.Job
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		bid, err := ws.Pipeline.Bid(bidID)
		if err != nil {
			return err
		}
		job = ws.Tracker.CreateJobFromBid(bid, lineItems)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bid converted to tracker job", zap.String("bid_id", bidID), zap.String("job_id", job.ID))
	return &job, nil
}

// CreateEstimate starts a draft estimate for a won bid
func (s *PipelineService) CreateEstimate(ctx context.Context, bidID string) (*domain.EstimateDTO, error) {
	bid, err := s.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.Stage != pipeline.StageWon {
		return nil, fmt.Errorf("%w: only won bids can be estimated", ErrInvalidInput)
	}
	return s.estimateService.CreateForBid(ctx, bid.ID, bid.Name)
}

func (s *PipelineService) view(ctx context.Context, fn func(ws *workspace.Workspace) error) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return storeError(s.workspaces.View(ctx, userID, fn))
}

func (s *PipelineService) mutate(ctx context.Context, fn func(ws *workspace.Workspace) error) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return storeError(s.workspaces.Mutate(ctx, userID, fn))
}

// storeError maps pipeline and tracker errors onto service errors, wrapping
// the store error so errors.Is still matches it
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrBidNotFound),
		errors.Is(err, tracker.ErrJobNotFound),
		errors.Is(err, tracker.ErrPhaseNotFound),
		errors.Is(err, tracker.ErrTaskNotFound),
		errors.Is(err, tracker.ErrMaterialNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, pipeline.ErrInvalidStage),
		errors.Is(err, pipeline.ErrInvalidPriority),
		errors.Is(err, tracker.ErrInvalidLineItem):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, tracker.ErrInvalidTransition):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	return err
}
