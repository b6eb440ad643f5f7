package payment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// InitValidators registers the payment validations.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(newPaymentStructValidation, NewPayment{})
}

func newPaymentStructValidation(sl validator.StructLevel) {
	if np, ok := sl.Current().Interface().(NewPayment); ok {
		core.ValidateAmount(sl, np.Amount, "amount", "Amount")
	}
}
