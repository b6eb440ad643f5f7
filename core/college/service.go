package college

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var ErrNotFound = core.NewNotFoundError("college")

type (
	Repository interface {
		CreateCollege(ctx context.Context, col College, exec ...core.DBExecutor) (College, error)
		GetCollege(ctx context.Context, id string, exec ...core.DBExecutor) (College, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nc NewCollege) (College, error)
		GetByID(ctx context.Context, id string) (College, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCollege) (College, error) {
	now := time.Now().UTC()
	col, err := svc.repo.CreateCollege(ctx, College{
		ID:        uuid.New().String(),
		Name:      nc.Name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return col, errors.Wrap(err, "creating college")
}

// GetByID returns ErrNotFound when the college does not exist.
func (svc *Service) GetByID(ctx context.Context, id string) (College, error) {
	if _, err := uuid.Parse(id); err != nil {
		return College{}, ErrNotFound
	}
	col, err := svc.repo.GetCollege(ctx, id)
	return col, errors.Wrap(err, "finding college")
}
