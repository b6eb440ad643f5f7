package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("user")
	ErrStudentNotFound = core.NewNotFoundError("student")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrUsernameExists  = errors.New("a user with this username already exists")

	// OrderingFields maps the orderable json fields to their column.
	OrderingFields = map[string]string{
		"name":      "name",
		"username":  "username",
		"email":     "email",
		"createdAt": "created_at",
		"lastLogin": "last_login",
	}
	defaultOrdering = core.DBOrdering{Field: "created_at"}
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another user holds them.
		CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		// GetUser returns the first user matching filter, ErrNotFound if none does.
		GetUser(ctx context.Context, filter Filter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, uname, email string) error
		Create(ctx context.Context, collegeID string, nu NewUser) (User, error)
		Query(ctx context.Context, collegeID string, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, collegeID, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		GetStudent(ctx context.Context, collegeID, id string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		ResetPassword(ctx context.Context, uname, pwd string) (User, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return pkgerrors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, collegeID string, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		CollegeID: collegeID,
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, pkgerrors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, pkgerrors.Wrap(err, "creating user")
}

func (svc *Service) Query(ctx context.Context, collegeID string, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	filter.Clean()
	ordering = core.CleanOrdering(ordering, OrderingFields, defaultOrdering)
	users, err := svc.repo.QueryUsers(ctx, Filter{CollegeID: collegeID, QueryFilter: filter}, ordering)
	return users, pkgerrors.Wrap(err, "querying users")
}

func (svc *Service) GetByID(ctx context.Context, collegeID, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	usr, err := svc.repo.GetUser(ctx, Filter{CollegeID: collegeID, ID: id})
	return usr, pkgerrors.Wrap(err, "finding user by ID")
}

// GetByUsernameOrEmail looks across all colleges: usernames and emails are globally unique.
func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	if uname == "" {
		return User{}, ErrNotFound
	}
	usr, err := svc.repo.GetUser(ctx, Filter{UsernameOrEmail: uname})
	return usr, pkgerrors.Wrap(err, "finding user by username or email")
}

// GetStudent returns ErrStudentNotFound unless id names an active student of the college.
func (svc *Service) GetStudent(ctx context.Context, collegeID, id string) (User, error) {
	usr, err := svc.GetByID(ctx, collegeID, id)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return User{}, ErrStudentNotFound
		}
		return User{}, err
	}
	if !usr.IsActive || !usr.IsStudent() {
		return User{}, ErrStudentNotFound
	}
	return usr, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.LastLogin = &now
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, pkgerrors.Wrap(err, "setting last login")
}

func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, pkgerrors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, pkgerrors.Wrap(err, "resetting password")
}
