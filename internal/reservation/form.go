package reservation

import (
	"reflect"
	"regexp"
	"strings"

	"busline/internal/seats"

	"github.com/go-playground/validator/v10"
)

// PassengerForm holds the fields copied onto every booked seat
type PassengerForm struct {
	PassengerName       string `json:"passenger_name" validate:"required,max=100"`
	ContactNo           string `json:"contact_no" validate:"required,phone"`
	Email               string `json:"email" validate:"required,email"`
	GuardianContact     string `json:"guardian_contact" validate:"omitempty,phone"`
	PickUpLocation      string `json:"pick_up_location" validate:"required,max=100"`
	DropLocation        string `json:"drop_location" validate:"required,max=100"`
	SpecialInstructions string `json:"special_instructions" validate:"max=500"`
	NIC                 string `json:"nic" validate:"required,nic"`
}

// FormFromBooking copies the passenger fields of an existing booking
func FormFromBooking(b Booking) PassengerForm {
	return PassengerForm{
		PassengerName:       b.PassengerName,
		ContactNo:           b.ContactNo,
		Email:               b.Email,
		GuardianContact:     b.GuardianContact,
		PickUpLocation:      b.PickUpLocation,
		DropLocation:        b.DropLocation,
		SpecialInstructions: b.SpecialInstructions,
		NIC:                 b.NIC,
	}
}

// Merge returns f with every non-blank field of over written on top
func (f PassengerForm) Merge(over PassengerForm) PassengerForm {
	pick := func(base, top string) string {
		if strings.TrimSpace(top) != "" {
			return top
		}
		return base
	}
	return PassengerForm{
		PassengerName:       pick(f.PassengerName, over.PassengerName),
		ContactNo:           pick(f.ContactNo, over.ContactNo),
		Email:               pick(f.Email, over.Email),
		GuardianContact:     pick(f.GuardianContact, over.GuardianContact),
		PickUpLocation:      pick(f.PickUpLocation, over.PickUpLocation),
		DropLocation:        pick(f.DropLocation, over.DropLocation),
		SpecialInstructions: pick(f.SpecialInstructions, over.SpecialInstructions),
		NIC:                 pick(f.NIC, over.NIC),
	}
}

var (
	// old NIC (9 digits + V/X), new NIC (12 digits) or a passport number
	nicPattern   = regexp.MustCompile(`^([0-9]{9}[VX]|[0-9]{12}|[A-Z][0-9]{7,8})$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("nic", func(fl validator.FieldLevel) bool {
		return nicPattern.MatchString(seats.NormalizeNIC(fl.Field().String()))
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	})
	return v
}

// Validate returns field name to message for every broken rule
func (f PassengerForm) Validate() map[string]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"form": err.Error()}
	}
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "nic":
		return "must be a valid NIC or passport number"
	case "phone":
		return "must be a valid phone number"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
