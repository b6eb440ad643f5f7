package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	roles := make([]string, len(usr.Roles))
	copy(roles, usr.Roles)
	usr.Roles = roles
	if usr.LastLogin != nil {
		lastLogin := *usr.LastLogin
		usr.LastLogin = &lastLogin
	}
	return usr
}

// users returns the users in insertion order. db.mu must be held.
func (repo *userRepository) users() []user.User {
	rows := repo.db.user.all()
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, copyUser(row.(user.User)))
	}
	return users
}

// checkUniqueness must be called with db.mu held.
func (repo *userRepository) checkUniqueness(username, email, excludedID string) error {
	for _, usr := range repo.users() {
		if usr.ID == excludedID {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, _ ...core.DBExecutor) error {
	var err error
	repo.db.read(func() {
		err = repo.checkUniqueness(username, email, "")
	})
	return err
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := repo.db.write(exec, func() error {
		if err := repo.checkUniqueness(usr.Username, usr.Email, ""); err != nil {
			return err
		}
		repo.db.user.insert(usr.ID, copyUser(usr))
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return copyUser(usr), nil
}

func matchUser(usr user.User, filter user.Filter) bool {
	if filter.CollegeID != "" && usr.CollegeID != filter.CollegeID {
		return false
	}
	if filter.ID != "" && usr.ID != filter.ID {
		return false
	}
	if filter.UsernameOrEmail != "" && usr.Username != filter.UsernameOrEmail && usr.Email != filter.UsernameOrEmail {
		return false
	}
	if filter.Search != "" &&
		!(containsFold(usr.Name, filter.Search) ||
			containsFold(usr.Username, filter.Search) ||
			containsFold(usr.Email, filter.Search)) {
		return false
	}
	if len(filter.Roles) > 0 && !hasAnyRole(usr.Roles, filter.Roles) {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func hasAnyRole(roles, wanted []string) bool {
	for _, w := range wanted {
		for _, r := range roles {
			if r == w {
				return true
			}
		}
	}
	return false
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return compareStrings(a.Name, b.Name)
	case "username":
		return compareStrings(a.Username, b.Username)
	case "email":
		return compareStrings(a.Email, b.Email)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "last_login":
		return compareTimePtrs(a.LastLogin, b.LastLogin)
	}
	return 0
}

func (repo *userRepository) QueryUsers(
	_ context.Context,
	filter user.Filter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]user.User, error) {
	users := make([]user.User, 0)
	repo.db.read(func() {
		for _, usr := range repo.users() {
			if matchUser(usr, filter) {
				users = append(users, usr)
			}
		}
	})
	sort.SliceStable(users, func(i, j int) bool {
		return less(ordering, func(field string) int { return compareUsers(users[i], users[j], field) })
	})
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.Filter, _ ...core.DBExecutor) (user.User, error) {
	var found *user.User
	repo.db.read(func() {
		for _, usr := range repo.users() {
			if matchUser(usr, filter) {
				found = &usr
				return
			}
		}
	})
	if found == nil {
		return user.User{}, user.ErrNotFound
	}
	return *found, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := repo.db.write(exec, func() error {
		orig, ok := repo.db.user.rows[usr.ID].(user.User)
		if !ok || orig.CollegeID != usr.CollegeID {
			return user.ErrNotFound
		}
		if err := repo.checkUniqueness(usr.Username, usr.Email, usr.ID); err != nil {
			return err
		}
		usr.CreatedAt = orig.CreatedAt
		repo.db.user.insert(usr.ID, copyUser(usr))
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return copyUser(usr), nil
}
