// Package storage opens the storage engine selected by the configuration
// and hands out its repositories.
package storage

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/college"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

const (
	EnginePostgres = "postgres"
	EngineInMem    = "inmem"
)

type Store struct {
	Engine  string
	SQL     *sql.DB // nil for the inmem engine
	Tx      core.Transactor
	College college.Repository
	User    user.Repository
	Fee     fee.Repository
	Payment payment.Repository
}

// Open opens the configured engine. For postgres, the database is created when missing
// and, if migrate is set, migrated up.
func Open(conf *core.Config, migrate bool) (*Store, error) {
	switch conf.Database.Engine {
	case EngineInMem:
		return NewInMem(inmemdb.Open()), nil

	case EnginePostgres, "":
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err = database.Migrate(db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return NewSQL(db), nil

	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func NewSQL(db *sql.DB) *Store {
	return &Store{
		Engine:  EnginePostgres,
		SQL:     db,
		Tx:      database.NewTransactor(db),
		College: sqlxrepos.NewCollegeRepository(db),
		User:    sqlxrepos.NewUserRepository(db),
		Fee:     sqlxrepos.NewFeeRepository(db),
		Payment: sqlxrepos.NewPaymentRepository(db),
	}
}

func NewInMem(db *inmemdb.DB) *Store {
	repos := inmemdb.NewRepositories(db)
	return &Store{
		Engine:  EngineInMem,
		Tx:      inmemdb.NewTransactor(db),
		College: repos.College,
		User:    repos.User,
		Fee:     repos.Fee,
		Payment: repos.Payment,
	}
}

func (s *Store) Close() error {
	if s.SQL == nil {
		return nil
	}
	return s.SQL.Close()
}
