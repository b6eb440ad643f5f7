package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/college"
)

type collegeRepository struct {
	db *DB
}

var _ college.Repository = (*collegeRepository)(nil)

func NewCollegeRepository(db *DB) *collegeRepository {
	return &collegeRepository{db: db}
}

func (repo *collegeRepository) CreateCollege(_ context.Context, col college.College, exec ...core.DBExecutor) (college.College, error) {
	err := repo.db.write(exec, func() error {
		repo.db.college.insert(col.ID, col)
		return nil
	})
	return col, err
}

func (repo *collegeRepository) GetCollege(_ context.Context, id string, _ ...core.DBExecutor) (college.College, error) {
	var col college.College
	var ok bool
	repo.db.read(func() {
		col, ok = repo.db.college.rows[id].(college.College)
	})
	if !ok {
		return college.College{}, college.ErrNotFound
	}
	return col, nil
}
