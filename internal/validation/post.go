package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var postFieldNames = map[string]string{
	"Description": "description",
	"QtyEstimate": "quantity",
	"PickupStart": "pickup start",
	"PickupEnd":   "pickup end",
	"Location":    "location",
}

// ValidatePost checks a new post: all fields present, quantity positive,
// and the pickup window ending strictly after it starts.
func ValidatePost(in *model.PostInput) error {
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	// Report the first failing field only
	fe := verrs[0]
	field := postFieldNames[fe.Field()]

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "gt":
		return fmt.Errorf("%s must be greater than 0", field)
	case "gtfield":
		return errors.New("pickup end must be after pickup start")
	case "max":
		return fmt.Errorf("%s is too long (max %s characters)", field, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	}

	return fmt.Errorf("%s is invalid", field)
}
