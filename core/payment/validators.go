package payment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/llpmm/campus/core"
)

var (
	planTypeTag  = "plantype"
	planTypeText = "plan type must be one of: full, installment_2"
)

// InitValidators registers the payment specific validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(planTypeTag, planTypeValidation)
	core.RegisterCustomTranslation(validate, translator, planTypeTag, planTypeText)
}

func planTypeValidation(fl validator.FieldLevel) bool {
	switch PlanType(fl.Field().String()) {
	case PlanFull, PlanInstallment2:
		return true
	}
	return false
}
