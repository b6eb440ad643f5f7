package sqlxrepos

import (
	"context"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/college"
)

const collegeColumns = `id, name, is_active, created_at, updated_at`

type collegeRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r collegeRow) toCollege() college.College {
	return college.College{
		ID:        r.ID,
		Name:      r.Name,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type collegeRepository struct {
	db core.DB
}

var _ college.Repository = (*collegeRepository)(nil)

func NewCollegeRepository(db core.DB) *collegeRepository {
	return &collegeRepository{db: db}
}

func (repo *collegeRepository) CreateCollege(ctx context.Context, col college.College, exec ...core.DBExecutor) (college.College, error) {
	q := `INSERT INTO college (` + collegeColumns + `)
		VALUES (:id, :name, :is_active, :created_at, :updated_at)
		RETURNING ` + collegeColumns
	row := collegeRow{
		ID:        col.ID,
		Name:      col.Name,
		IsActive:  col.IsActive,
		CreatedAt: col.CreatedAt,
		UpdatedAt: col.UpdatedAt,
	}
	var rows []collegeRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, row); err != nil {
		return college.College{}, core.NewStorageError(err, "inserting college")
	}
	return rows[0].toCollege(), nil
}

func (repo *collegeRepository) GetCollege(ctx context.Context, id string, exec ...core.DBExecutor) (college.College, error) {
	q := `SELECT ` + collegeColumns + ` FROM college WHERE id = $1`
	var rows []collegeRow
	if err := selectRows(ctx, getExec(repo.db, exec), &rows, q, id); err != nil {
		return college.College{}, core.NewStorageError(err, "selecting college")
	}
	if len(rows) == 0 {
		return college.College{}, college.ErrNotFound
	}
	return rows[0].toCollege(), nil
}
