package user

import (
	"time"

	"github.com/llpmm/campus/core"
)

// Roles
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// Instructor payment models
const (
	PaymentModelFixedSalary = "fixed_salary"
	PaymentModelPerStudent  = "per_student"
)

var (
	AllRoles         = []string{RoleAdmin, RoleInstructor, RoleStudent}
	AllPaymentModels = []string{PaymentModelFixedSalary, PaymentModelPerStudent}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PaymentModel string    `json:"payment_model,omitempty"` // instructors only
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u User) IsStudent() bool    { return u.Role == RoleStudent }

// HasFixedSalary tells whether the instructor is paid a fixed amount per batch.
func (u User) HasFixedSalary() bool {
	return u.IsInstructor() && u.PaymentModel == PaymentModelFixedSalary
}

// NewUser contains information needed to create a new User.
// Accounts are provisioned by the identity provider; this is used to mirror them locally.
type NewUser struct {
	ID           string `json:"id" validate:"omitempty,uuid"`
	Name         string `json:"name" validate:"required,notblank"`
	Email        string `json:"email" validate:"required,email"`
	Role         string `json:"role" validate:"required,userrole"`
	PaymentModel string `json:"payment_model" validate:"omitempty,oneof=fixed_salary per_student"`
}

func (nu *NewUser) Validate(v *core.Validator) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return v.Struct(nu)
}
