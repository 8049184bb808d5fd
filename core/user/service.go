package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"

	"github.com/llpmm/campus/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user")
	ErrEmailExists = core.NewConflictError("a user with this email already exists")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
	}

	Service struct {
		repo     Repository
		validate *core.Validator
		logger   core.Logger
	}
)

func NewService(repo Repository, validate *core.Validator, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{repo: repo, validate: validate, logger: logger}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if nu.Role != RoleInstructor {
		nu.PaymentModel = ""
	} else if nu.PaymentModel == "" {
		nu.PaymentModel = PaymentModelFixedSalary
	}
	if nu.ID == "" {
		nu.ID = uuid.New().String()
	}

	now := core.NowFunc().UTC()
	return svc.repo.CreateUser(ctx, User{
		ID:           nu.ID,
		Name:         nu.Name,
		Email:        nu.Email,
		Role:         nu.Role,
		PaymentModel: nu.PaymentModel,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}
