package user_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/user"
	testutil "github.com/llpmm/campus/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	externalID := uuid.New().String()

	tests := []struct {
		name             string
		nu               user.NewUser
		wantPaymentModel string
	}{
		{
			name: "student",
			nu:   user.NewUser{Name: " Aung Aung ", Email: " Aung@LLPMM.test ", Role: user.RoleStudent, PaymentModel: user.PaymentModelPerStudent},
		},
		{
			name:             "instructor defaults to a fixed salary",
			nu:               user.NewUser{Name: "Thiri", Email: "thiri@llpmm.test", Role: user.RoleInstructor},
			wantPaymentModel: user.PaymentModelFixedSalary,
		},
		{
			name:             "per student instructor",
			nu:               user.NewUser{Name: "Ko Ko", Email: "koko@llpmm.test", Role: user.RoleInstructor, PaymentModel: user.PaymentModelPerStudent},
			wantPaymentModel: user.PaymentModelPerStudent,
		},
		{
			name: "mirrored account keeps its ID",
			nu:   user.NewUser{ID: externalID, Name: "Admin", Email: "admin@llpmm.test", Role: user.RoleAdmin},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := env.UserSvc.Create(ctx, tt.nu)
			require.NoError(t, err)
			assert.NotEmpty(t, usr.ID)
			assert.Equal(t, core.CleanString(tt.nu.Name), usr.Name)
			assert.Equal(t, core.CleanString(tt.nu.Email, true), usr.Email)
			assert.Equal(t, tt.wantPaymentModel, usr.PaymentModel)
			assert.True(t, usr.IsActive)
			if tt.nu.ID != "" {
				assert.Equal(t, tt.nu.ID, usr.ID)
			}

			got, err := env.UserSvc.GetByID(ctx, usr.ID)
			require.NoError(t, err)
			assert.Equal(t, usr, got)
		})
	}
}

func TestService_Create_invalid(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	env.CreateUser(t, "Aung Aung", "aung@llpmm.test", user.RoleStudent)

	tests := []struct {
		name string
		nu   user.NewUser
		kind core.Kind
	}{
		{name: "blank name", nu: user.NewUser{Name: " ", Email: "a@llpmm.test", Role: user.RoleStudent}, kind: core.KindValidation},
		{name: "bad email", nu: user.NewUser{Name: "A", Email: "nope", Role: user.RoleStudent}, kind: core.KindValidation},
		{name: "bad role", nu: user.NewUser{Name: "A", Email: "a@llpmm.test", Role: "teacher"}, kind: core.KindValidation},
		{name: "bad payment model", nu: user.NewUser{Name: "A", Email: "a@llpmm.test", Role: user.RoleInstructor, PaymentModel: "hourly"}, kind: core.KindValidation},
		{name: "bad ID", nu: user.NewUser{ID: "42", Name: "A", Email: "a@llpmm.test", Role: user.RoleStudent}, kind: core.KindValidation},
		{name: "email taken", nu: user.NewUser{Name: "Other", Email: "AUNG@llpmm.test", Role: user.RoleStudent}, kind: core.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.UserSvc.Create(ctx, tt.nu)
			assert.Equal(t, tt.kind, core.ErrorKind(err))
		})
	}

	_, err := env.UserSvc.GetByID(ctx, "unknown")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUser_HasFixedSalary(t *testing.T) {
	assert.True(t, user.User{Role: user.RoleInstructor, PaymentModel: user.PaymentModelFixedSalary}.HasFixedSalary())
	assert.False(t, user.User{Role: user.RoleInstructor, PaymentModel: user.PaymentModelPerStudent}.HasFixedSalary())
	assert.False(t, user.User{Role: user.RoleAdmin, PaymentModel: user.PaymentModelFixedSalary}.HasFixedSalary())
}
