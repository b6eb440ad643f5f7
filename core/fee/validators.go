package fee

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// InitValidators registers the fee validations.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(newFeeStructValidation, NewFee{})
}

func newFeeStructValidation(sl validator.StructLevel) {
	if nf, ok := sl.Current().Interface().(NewFee); ok {
		core.ValidateAmount(sl, nf.Amount, "amount", "Amount")
	}
}
