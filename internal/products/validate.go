// ABOUTME: Product form validation run before any backend call
// ABOUTME: Produces per-field errors tagged as required, pattern, or invalid

package products

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Form fields.
const (
	FieldName      = "name"
	FieldPrice     = "price"
	FieldOldPrice  = "oldPrice"
	FieldCategory  = "category"
	FieldWhatsApp  = "whatsapp"
	FieldInstagram = "instagram"
	FieldFacebook  = "facebook"
	FieldImage     = "image"
)

// ErrorKind classifies a field error.
type ErrorKind string

const (
	KindRequired ErrorKind = "required"
	KindPattern  ErrorKind = "pattern"
	KindInvalid  ErrorKind = "invalid"
)

var whatsAppPattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// FieldError is a problem with one form field.
type FieldError struct {
	Field   string
	Kind    ErrorKind
	Message string
}

// ValidationErrors lists every field problem of a form, in field order.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

// For returns the error for field, if any.
func (v ValidationErrors) For(field string) (FieldError, bool) {
	for _, e := range v {
		if e.Field == field {
			return e, true
		}
	}
	return FieldError{}, false
}

// Form is the product form as the operator typed it.
type Form struct {
	Name      string
	Price     string
	OldPrice  string
	Category  string
	WhatsApp  string
	Instagram string
	Facebook  string
	// Nonce identifies the rendered form for duplicate suppression.
	Nonce string
}

// Trimmed returns the form with surrounding whitespace removed.
func (f Form) Trimmed() Form {
	return Form{
		Name:      strings.TrimSpace(f.Name),
		Price:     strings.TrimSpace(f.Price),
		OldPrice:  strings.TrimSpace(f.OldPrice),
		Category:  strings.TrimSpace(f.Category),
		WhatsApp:  strings.TrimSpace(f.WhatsApp),
		Instagram: strings.TrimSpace(f.Instagram),
		Facebook:  strings.TrimSpace(f.Facebook),
		Nonce:     f.Nonce,
	}
}

// ValidateWhatsApp checks a WhatsApp number: required, 10 to 15 digits.
func ValidateWhatsApp(number string) *FieldError {
	number = strings.TrimSpace(number)
	if number == "" {
		return &FieldError{Field: FieldWhatsApp, Kind: KindRequired, Message: "Please enter WhatsApp number"}
	}
	if !whatsAppPattern.MatchString(number) {
		return &FieldError{Field: FieldWhatsApp, Kind: KindPattern, Message: "Enter valid number"}
	}
	return nil
}

// Validate checks a form. categories is the set the category must come from;
// an empty set accepts any category. hasImage reports whether an image entry
// exists, which only Create requires. Instagram and Facebook are free text.
func Validate(mode Mode, form Form, categories []string, hasImage bool) ValidationErrors {
	form = form.Trimmed()
	var errs ValidationErrors

	if form.Name == "" {
		errs = append(errs, FieldError{Field: FieldName, Kind: KindRequired, Message: "Please enter product name"})
	}

	if form.Price == "" {
		errs = append(errs, FieldError{Field: FieldPrice, Kind: KindRequired, Message: "Please enter price"})
	} else if p, err := decimal.NewFromString(form.Price); err != nil {
		errs = append(errs, FieldError{Field: FieldPrice, Kind: KindInvalid, Message: "Price must be a number"})
	} else if p.IsNegative() {
		errs = append(errs, FieldError{Field: FieldPrice, Kind: KindInvalid, Message: "Price cannot be negative"})
	}

	if form.OldPrice != "" {
		if p, err := decimal.NewFromString(form.OldPrice); err != nil {
			errs = append(errs, FieldError{Field: FieldOldPrice, Kind: KindInvalid, Message: "Old price must be a number"})
		} else if p.IsNegative() {
			errs = append(errs, FieldError{Field: FieldOldPrice, Kind: KindInvalid, Message: "Old price cannot be negative"})
		}
	}

	if form.Category == "" {
		errs = append(errs, FieldError{Field: FieldCategory, Kind: KindRequired, Message: "Please select category"})
	} else if len(categories) > 0 && !containsFold(categories, form.Category) {
		errs = append(errs, FieldError{Field: FieldCategory, Kind: KindInvalid, Message: "Please select a valid category"})
	}

	if fe := ValidateWhatsApp(form.WhatsApp); fe != nil {
		errs = append(errs, *fe)
	}

	if mode == ModeCreate && !hasImage {
		errs = append(errs, FieldError{Field: FieldImage, Kind: KindRequired, Message: "Please upload product image"})
	}

	return errs
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
