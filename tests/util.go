// Package testutil provides fixtures shared by the tests of the other packages.
package testutil

import (
	"context"
	"database/sql"
	"io/ioutil"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/college"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/user"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
)

var (
	confOnce sync.Once
	conf     *core.Config

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error
)

// Config returns the TEST environment configuration.
func Config() *core.Config {
	confOnce.Do(func() {
		_ = os.Setenv("ENV", "TEST")
		conf = core.NewConfig()
	})
	return conf
}

// Logger returns a logger that discards everything.
func Logger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), Config())
}

// PrepareDB returns the migrated postgres test database, emptied.
// The test is skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	dbOnce.Do(func() {
		c := Config()
		if dbErr = database.CreateIfNotExist(c); dbErr != nil {
			return
		}
		if db, dbErr = database.Open(c); dbErr != nil {
			return
		}
		dbErr = database.Migrate(db)
	})
	if dbErr != nil {
		t.Fatalf("PrepareDB() failed: %v", dbErr)
	}
	ResetDB(t, db)
	return db
}

// ResetDB empties all tables.
func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE TABLE payment, fee, "user", college CASCADE`); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateCollege(t *testing.T, repo college.Repository, name string) college.College {
	t.Helper()
	now := time.Now().UTC()
	col, err := repo.CreateCollege(context.Background(), college.College{
		ID:        uuid.New().String(),
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCollege() failed: %v", err)
	}
	return col
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	collegeID, name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		ID:        uuid.New().String(),
		CollegeID: collegeID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateFee creates a fee of amount (eg. "150.50") due on dueDate.
func CreateFee(
	t *testing.T,
	repo fee.Repository,
	collegeID, studentID, amount string,
	dueDate core.Date,
	status fee.Status,
	createdAt ...time.Time,
) fee.Fee {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("CreateFee() failed: %v", err)
	}
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	f := fee.Fee{
		ID:        uuid.New().String(),
		CollegeID: collegeID,
		StudentID: studentID,
		Amount:    amt,
		DueDate:   dueDate,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if status == fee.StatusPaid {
		f.PaidAt = &tstamp
	}
	f, err = repo.CreateFee(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFee() failed: %v", err)
	}
	return f
}
