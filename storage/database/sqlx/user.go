package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const userColumns = `id, college_id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string         `db:"id"`
	CollegeID    string         `db:"college_id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		CollegeID:    usr.CollegeID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    null.TimeFromPtr(usr.LastLogin),
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	return row
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		CollegeID:    r.CollegeID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if r.LastLogin.Valid {
		lastLogin := r.LastLogin.Time.UTC()
		usr.LastLogin = &lastLogin
	}
	return usr
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error {
	q := `SELECT username, email FROM "user" WHERE username = $1 OR email = $2 LIMIT 1`
	var rows []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	uname := null.NewString(username, username != "")
	mail := null.NewString(email, email != "")
	if err := selectRows(ctx, getExec(repo.db, exec), &rows, q, uname, mail); err != nil {
		return core.NewStorageError(err, "checking user uniqueness")
	}
	if len(rows) == 0 {
		return nil
	}
	if uname.Valid && rows[0].Username.String == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :college_id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)
		RETURNING ` + userColumns
	var rows []userRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, newUserRow(usr)); err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if strings.Contains(constraint, "username") {
				return user.User{}, user.ErrUsernameExists
			}
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, core.NewStorageError(err, "inserting user")
	}
	return rows[0].toUser(), nil
}

func userWhere(filter user.Filter) *where {
	w := newWhere()
	if filter.CollegeID != "" {
		w.add("college_id = :college_id", "college_id", filter.CollegeID)
	}
	if filter.ID != "" {
		w.add("id = :id", "id", filter.ID)
	}
	if filter.UsernameOrEmail != "" {
		w.add("(username = :uname OR email = :uname)", "uname", filter.UsernameOrEmail)
	}
	if filter.Search != "" {
		w.add("(name ILIKE :search OR username ILIKE :search OR email ILIKE :search)", "search", "%"+filter.Search+"%")
	}
	if len(filter.Roles) > 0 {
		w.add("roles && :roles", "roles", pq.StringArray(filter.Roles))
	}
	if filter.IsActive != nil {
		w.add("is_active = :is_active", "is_active", *filter.IsActive)
	}
	return w
}

func (repo *userRepository) QueryUsers(
	ctx context.Context,
	filter user.Filter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]user.User, error) {
	w := userWhere(filter)
	q := `SELECT ` + userColumns + ` FROM "user"` + w.String() + orderBy(ordering)
	var rows []userRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, w.args); err != nil {
		return nil, core.NewStorageError(err, "selecting users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.Filter, exec ...core.DBExecutor) (user.User, error) {
	w := userWhere(filter)
	q := `SELECT ` + userColumns + ` FROM "user"` + w.String() + ` LIMIT 1`
	var rows []userRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, w.args); err != nil {
		return user.User{}, core.NewStorageError(err, "selecting user")
	}
	if len(rows) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return rows[0].toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE "user" SET
			name = :name, username = :username, email = :email, is_active = :is_active, roles = :roles,
			password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id AND college_id = :college_id
		RETURNING ` + userColumns
	var rows []userRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, newUserRow(usr)); err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if strings.Contains(constraint, "username") {
				return user.User{}, user.ErrUsernameExists
			}
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, core.NewStorageError(err, "updating user")
	}
	if len(rows) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return rows[0].toUser(), nil
}
