package request

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PlaceReservationRequest struct {
	ItemID uuid.UUID       `json:"item_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

// RegisterValidations teaches the binding validator to treat decimal
// amounts as numbers so numeric rules like gt=0 apply to them.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}
