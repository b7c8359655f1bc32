package api

import (
	"errors"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators adds the domain tags used in request structs:
// slottime, datekey and responsestatus.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}

	rules := map[string]validator.Func{
		"slottime": func(fl validator.FieldLevel) bool {
			return model.IsSlotTime(fl.Field().String())
		},
		"datekey": func(fl validator.FieldLevel) bool {
			_, err := time.Parse(model.DateLayout, fl.Field().String())
			return err == nil
		},
		"responsestatus": func(fl validator.FieldLevel) bool {
			return model.ResponseStatus(fl.Field().String()).IsAnswer()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
