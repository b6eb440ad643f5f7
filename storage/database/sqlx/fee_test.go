package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/storage/database"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
	testutil "github.com/trezcool/campus/tests"
)

func Test_feeRepository_SettleOldestPending(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	colRepo := sqlxrepos.NewCollegeRepository(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	feeRepo := sqlxrepos.NewFeeRepository(db)

	col := testutil.CreateCollege(t, colRepo, "Campus One")
	other := testutil.CreateCollege(t, colRepo, "Campus Two")
	student := testutil.CreateUser(t, usrRepo, col.ID, "Hero", "hero_kid", "hero@test.cd", "", []string{user.RoleStudent}, true)

	now := time.Now()
	sep := core.NewDate(2024, time.September, 1)
	oct := core.NewDate(2024, time.October, 1)
	third := testutil.CreateFee(t, feeRepo, col.ID, student.ID, "300", oct, fee.StatusPending, now)
	_ = testutil.CreateFee(t, feeRepo, col.ID, student.ID, "50", sep, fee.StatusPaid, now.Add(-3*time.Hour))
	first := testutil.CreateFee(t, feeRepo, col.ID, student.ID, "100", sep, fee.StatusPending, now.Add(-time.Hour))
	second := testutil.CreateFee(t, feeRepo, col.ID, student.ID, "200", oct, fee.StatusPending, now.Add(-2*time.Hour))

	if _, err := feeRepo.SettleOldestPending(ctx, other.ID, student.ID, now); errors.Cause(err) != fee.ErrNothingToSettle {
		t.Fatalf("SettleOldestPending() in another college error = %v; want %v", err, fee.ErrNothingToSettle)
	}

	paidAt := time.Date(2024, time.September, 20, 10, 0, 0, 0, time.UTC)
	for _, want := range []fee.Fee{first, second, third} {
		before := time.Now().UTC().Add(-time.Microsecond)
		got, err := feeRepo.SettleOldestPending(ctx, col.ID, student.ID, paidAt)
		if err != nil {
			t.Fatalf("SettleOldestPending() failed: %v", err)
		}
		after := time.Now().UTC().Add(time.Microsecond)
		if got.UpdatedAt.Before(before) || got.UpdatedAt.After(after) {
			t.Errorf("SettleOldestPending() updatedAt = %v; want between %v and %v", got.UpdatedAt, before, after)
		}
		if got.ID != want.ID || got.Status != fee.StatusPaid || got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
			t.Errorf("SettleOldestPending() = %+v; want fee %s paid at %v", got, want.ID, paidAt)
		}
		if !got.Amount.Equal(want.Amount) {
			t.Errorf("SettleOldestPending() amount = %s; want %s", got.Amount, want.Amount)
		}
	}

	if _, err := feeRepo.SettleOldestPending(ctx, col.ID, student.ID, paidAt); errors.Cause(err) != fee.ErrNothingToSettle {
		t.Errorf("SettleOldestPending() error = %v; want %v", err, fee.ErrNothingToSettle)
	}
}

func Test_feeRepository_concurrentSettlements(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	tx := database.NewTransactor(db)
	colRepo := sqlxrepos.NewCollegeRepository(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	feeRepo := sqlxrepos.NewFeeRepository(db)

	col := testutil.CreateCollege(t, colRepo, "Campus One")
	student := testutil.CreateUser(t, usrRepo, col.ID, "Hero", "hero_kid", "hero@test.cd", "", []string{user.RoleStudent}, true)
	for _, due := range []int{1, 2, 3} {
		testutil.CreateFee(t, feeRepo, col.ID, student.ID, "100", core.NewDate(2024, time.September, due), fee.StatusPending)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled = make(map[string]int)
		nothing int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var f fee.Fee
			err := tx.InTx(ctx, func(exec core.DBExecutor) error {
				var err error
				f, err = feeRepo.SettleOldestPending(ctx, col.ID, student.ID, time.Now(), exec)
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				settled[f.ID]++
			case errors.Cause(err) == fee.ErrNothingToSettle:
				nothing++
			default:
				t.Errorf("SettleOldestPending() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(settled) != 3 || nothing != 5 {
		t.Errorf("settled = %v, nothing to settle = %d; want 3 distinct fees and 5", settled, nothing)
	}
	for id, n := range settled {
		if n != 1 {
			t.Errorf("fee %s settled %d times", id, n)
		}
	}
}

func Test_feeRepository_SettleOldestPending_waitsForLockedFee(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	colRepo := sqlxrepos.NewCollegeRepository(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	feeRepo := sqlxrepos.NewFeeRepository(db)

	col := testutil.CreateCollege(t, colRepo, "Campus One")
	student := testutil.CreateUser(t, usrRepo, col.ID, "Hero", "hero_kid", "hero@test.cd", "", []string{user.RoleStudent}, true)
	oldest := testutil.CreateFee(t, feeRepo, col.ID, student.ID, "100", core.NewDate(2024, time.September, 1), fee.StatusPending)
	_ = testutil.CreateFee(t, feeRepo, col.ID, student.ID, "200", core.NewDate(2024, time.October, 1), fee.StatusPending)

	// an admin update holding the oldest fee, later rolled back
	lockTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() failed: %v", err)
	}
	if _, err = lockTx.ExecContext(ctx, `SELECT id FROM fee WHERE id = $1 FOR UPDATE`, oldest.ID); err != nil {
		_ = lockTx.Rollback()
		t.Fatalf("locking fee failed: %v", err)
	}

	type result struct {
		f   fee.Fee
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := feeRepo.SettleOldestPending(ctx, col.ID, student.ID, time.Now())
		done <- result{f, err}
	}()

	select {
	case res := <-done:
		_ = lockTx.Rollback()
		t.Fatalf("SettleOldestPending() = %+v, %v; want it to wait for the locked fee", res.f, res.err)
	case <-time.After(200 * time.Millisecond):
	}
	if err = lockTx.Rollback(); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("SettleOldestPending() failed: %v", res.err)
	}
	if res.f.ID != oldest.ID {
		t.Errorf("SettleOldestPending() settled %s; want the oldest fee %s", res.f.ID, oldest.ID)
	}
}
