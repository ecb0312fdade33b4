package registration

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registrar/core"
)

var (
	dateRangeTag  = "daterange"
	dateRangeText = "end date must not be before start date"
)

// InitValidators registers the registration validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(dateRangeValidation, OpenRequest{}, EditRegistration{})
	core.RegisterCustomTranslation(validate, translator, dateRangeTag, dateRangeText)
}

// dateRangeValidation does struct level validation on OpenRequest and EditRegistration structs.
func dateRangeValidation(sl validator.StructLevel) {
	switch req := sl.Current().Interface().(type) {
	case OpenRequest:
		if !req.StartDate.IsZero() && req.EndDate.Before(req.StartDate) {
			sl.ReportError(req.EndDate, "end_date", "EndDate", dateRangeTag, "")
		}
	case EditRegistration:
		if req.EndDate.Before(req.StartDate) {
			sl.ReportError(req.EndDate, "end_date", "EndDate", dateRangeTag, "")
		}
	}
}
