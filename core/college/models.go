package college

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// College is a tenant: every user, fee and payment belongs to exactly one college.
type College struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// NewCollege contains information needed to create a new College.
type NewCollege struct {
	Name string `json:"name" validate:"required,notblank,max=255"`
}

func (nc *NewCollege) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}
