package account

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Field names reported in ValidationError.
const (
	FieldName     = "name"
	FieldAge      = "age"
	FieldEmail    = "email"
	FieldPassword = "password"
)

const (
	// DefaultMinPasswordLength is the shortest accepted password after trimming.
	DefaultMinPasswordLength = 7
	// DefaultForbiddenPasswordSubstring may not appear anywhere in a password.
	DefaultForbiddenPasswordSubstring = "password"

	maxNameLength     = 256
	maxPasswordLength = 1024
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Policy holds the field rules applied on create and update.
//
// EmailValid is the email-format predicate. When nil, ozzo's EmailFormat
// rule is used. MaxPasswordBytes caps the encoded password length; zero
// means 1024 bytes.
type Policy struct {
	MinPasswordLength          int
	MaxPasswordBytes           int
	ForbiddenPasswordSubstring string
	EmailValid                 func(string) bool
}

// DefaultPolicy returns the stock field rules.
func DefaultPolicy() Policy {
	return Policy{
		MinPasswordLength:          DefaultMinPasswordLength,
		ForbiddenPasswordSubstring: DefaultForbiddenPasswordSubstring,
	}
}

// ValidateFields normalizes f and checks name, age, email, and password in
// that order. The normalized fields are returned only when every rule passes.
func (p Policy) ValidateFields(f Fields) (Fields, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = NormalizeEmail(f.Email)
	f.Password = strings.TrimSpace(f.Password)

	if err := p.check(FieldName, f.Name, p.nameRules()...); err != nil {
		return Fields{}, err
	}
	if err := p.check(FieldAge, f.Age, p.ageRules()...); err != nil {
		return Fields{}, err
	}
	if err := p.check(FieldEmail, f.Email, p.emailRules()...); err != nil {
		return Fields{}, err
	}
	if err := p.check(FieldPassword, f.Password, p.passwordRules()...); err != nil {
		return Fields{}, err
	}
	return f, nil
}

// ValidatePatch applies the same rules as ValidateFields to the fields set
// in patch. Nothing is returned on failure.
func (p Policy) ValidatePatch(patch Patch) (Patch, error) {
	var out Patch
	if patch.Name != nil {
		v := strings.TrimSpace(*patch.Name)
		if err := p.check(FieldName, v, p.nameRules()...); err != nil {
			return Patch{}, err
		}
		out.Name = &v
	}
	if patch.Age != nil {
		v := *patch.Age
		if err := p.check(FieldAge, v, p.ageRules()...); err != nil {
			return Patch{}, err
		}
		out.Age = &v
	}
	if patch.Email != nil {
		v := NormalizeEmail(*patch.Email)
		if err := p.check(FieldEmail, v, p.emailRules()...); err != nil {
			return Patch{}, err
		}
		out.Email = &v
	}
	if patch.Password != nil {
		v := strings.TrimSpace(*patch.Password)
		if err := p.check(FieldPassword, v, p.passwordRules()...); err != nil {
			return Patch{}, err
		}
		out.Password = &v
	}
	return out, nil
}

func (p Policy) check(field string, value interface{}, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return &ValidationError{Field: field, Reason: err.Error()}
	}
	return nil
}

func (p Policy) nameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("is required"),
		validation.RuneLength(1, maxNameLength).Error(fmt.Sprintf("must be at most %d characters", maxNameLength)),
	}
}

func (p Policy) ageRules() []validation.Rule {
	return []validation.Rule{
		validation.Min(0).Error("must be a positive number"),
	}
}

func (p Policy) emailRules() []validation.Rule {
	rules := []validation.Rule{validation.Required.Error("is required")}
	if p.EmailValid != nil {
		valid := p.EmailValid
		rules = append(rules, validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if !valid(s) {
				return errors.New("is invalid")
			}
			return nil
		}))
	} else {
		rules = append(rules, is.EmailFormat.Error("is invalid"))
	}
	return rules
}

func (p Policy) maxPasswordBytes() int {
	if p.MaxPasswordBytes > 0 {
		return p.MaxPasswordBytes
	}
	return maxPasswordLength
}

func (p Policy) passwordRules() []validation.Rule {
	maxBytes := p.maxPasswordBytes()
	rules := []validation.Rule{
		validation.Required.Error("is required"),
		validation.Length(p.MinPasswordLength, 0).
			Error(fmt.Sprintf("must be at least %d characters", p.MinPasswordLength)),
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if len(s) > maxBytes {
				return fmt.Errorf("must be at most %d bytes", maxBytes)
			}
			return nil
		}),
	}
	if forbidden := p.ForbiddenPasswordSubstring; forbidden != "" {
		rules = append(rules, validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if strings.Contains(s, forbidden) {
				return fmt.Errorf("must not contain %q", forbidden)
			}
			return nil
		}))
	}
	return rules
}
