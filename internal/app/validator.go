/**
 * @description
 * This file implements the guest-form validator. Validation is a pure,
 * synchronous step: identical input always yields the identical field->message
 * map, no network or storage access ever happens here, and an empty map is the
 * only green light for order creation.
 *
 * @notes
 * - Phone validation is an exact digit count per country code, not a range.
 * - The structural rules (required, email shape, digits-only) run through a
 *   go-playground/validator instance with a registered `alpha_space` rule;
 *   the per-country phone table and per-guest checks are layered on top.
 *
 * @dependencies
 * - github.com/go-playground/validator/v10: Struct and field validation.
 */

package app

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stayfront/checkout-service/internal/domain"
)

// phoneDigitCounts maps a phone country code to the exact number of digits the
// subscriber number must have. Codes outside this table are rejected.
var phoneDigitCounts = map[string]int{
	"+91":  10,
	"+1":   10,
	"+44":  10,
	"+61":  9,
	"+65":  8,
	"+971": 9,
	"+880": 10,
}

// validTitles is the fixed enumerated set for the guest title field.
var validTitles = map[string]bool{
	"Mr":  true,
	"Mrs": true,
	"Ms":  true,
	"Dr":  true,
}

var (
	alphaSpaceRe = regexp.MustCompile(`^[A-Za-z\s]+$`)
	digitsOnlyRe = regexp.MustCompile(`^[0-9]+$`)
)

// billingForm is the structural slice of BillingInfo handed to validator/v10.
type billingForm struct {
	Email   string `validate:"required,email"`
	Phone   string `validate:"required"`
	Address string `validate:"required"`
}

// FormValidator validates checkout drafts before any network call is made.
type FormValidator struct {
	validate *validator.Validate
}

// NewFormValidator builds the validator instance and registers the custom
// alpha_space rule used for guest names.
func NewFormValidator() *FormValidator {
	v := validator.New()
	_ = v.RegisterValidation("alpha_space", func(fl validator.FieldLevel) bool {
		return alphaSpaceRe.MatchString(fl.Field().String())
	})
	return &FormValidator{validate: v}
}

// ValidateDraft checks every rule the guest form enforces and returns a
// field->message map. An empty map means the draft may proceed to order
// creation; a non-empty map blocks submission.
func (fv *FormValidator) ValidateDraft(draft domain.CheckoutDraft) map[string]string {
	fields := map[string]string{}

	if len(draft.Guests) == 0 {
		fields["guests"] = "At least one guest is required"
	}
	for i, guest := range draft.Guests {
		prefix := guestFieldPrefix(i)
		if !validTitles[guest.Title] {
			fields[prefix+"title"] = "Please select a valid title"
		}
		validateName(fields, prefix+"first_name", guest.FirstName, "First name")
		validateName(fields, prefix+"last_name", guest.LastName, "Last name")
	}

	form := billingForm{
		Email:   strings.TrimSpace(draft.Billing.Email),
		Phone:   strings.TrimSpace(draft.Billing.PhoneNumber),
		Address: strings.TrimSpace(draft.Billing.Address),
	}
	if err := fv.validate.Struct(form); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				switch fe.StructField() {
				case "Email":
					if fe.Tag() == "required" {
						fields["email"] = "Email is required"
					} else {
						fields["email"] = "Please enter a valid email address"
					}
				case "Phone":
					fields["phone"] = "Phone number is required"
				case "Address":
					fields["address"] = "Billing address is required"
				}
			}
		}
	}

	if _, taken := fields["phone"]; !taken && form.Phone != "" {
		validatePhone(fields, draft.Billing.PhoneCountryCode, form.Phone)
	}

	if !draft.PolicyAccepted {
		fields["policy"] = "You must accept the booking policy to continue"
	}

	return fields
}

func guestFieldPrefix(i int) string {
	if i == 0 {
		return ""
	}
	return fmt.Sprintf("guests[%d].", i)
}

func validateName(fields map[string]string, key, value, label string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		fields[key] = label + " is required"
		return
	}
	if !alphaSpaceRe.MatchString(trimmed) {
		fields[key] = label + " may only contain letters"
	}
}

func validatePhone(fields map[string]string, countryCode, number string) {
	if !digitsOnlyRe.MatchString(number) {
		fields["phone"] = "Phone number may only contain digits"
		return
	}
	want, ok := phoneDigitCounts[strings.TrimSpace(countryCode)]
	if !ok {
		fields["phone_country_code"] = "Unsupported phone country code"
		return
	}
	if len(number) != want {
		fields["phone"] = fmt.Sprintf("Phone number must be exactly %d digits for %s", want, countryCode)
	}
}
