package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/auth"
	"github.com/mcsmartbytes/job-sense/internal/email"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/storage"
	"github.com/mcsmartbytes/job-sense/internal/workspace"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fastHash = &auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func userContext(userID uuid.UUID) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID: userID,
		Email:  "test@example.com",
	})
}

// outbox records sent messages instead of delivering them
type outbox struct {
	mu       sync.Mutex
	messages []email.Message
}

func (o *outbox) Send(_ context.Context, msg email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

// lastToken extracts the raw token from the link in the most recent message
func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.messages, "no email sent")

	body := o.messages[len(o.messages)-1].PlainText
	i := strings.LastIndex(body, "token=")
	require.GreaterOrEqual(t, i, 0, "no token link in %q", body)
	return strings.TrimSpace(body[i+len("token="):])
}

type estimateFixture struct {
	sites     *service.SiteService
	costCodes *service.CostCodeService
	estimates *service.EstimateService
	jobs      *service.JobService
}

func newEstimateFixture(db *gorm.DB) estimateFixture {
	logger := zap.NewNop()
	siteRepo := repository.NewSiteRepository(db)
	estimateRepo := repository.NewEstimateRepository(db)
	costCodeRepo := repository.NewCostCodeRepository(db)
	jobRepo := repository.NewJobRepository(db)

	return estimateFixture{
		sites:     service.NewSiteService(siteRepo, logger),
		costCodes: service.NewCostCodeService(costCodeRepo, logger),
		estimates: service.NewEstimateService(estimateRepo, siteRepo, costCodeRepo, jobRepo, logger),
		jobs:      service.NewJobService(jobRepo, costCodeRepo, logger),
	}
}

func newWorkspaceManager(t *testing.T) *workspace.Manager {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return workspace.NewManager(store, 0, zap.NewNop())
}
