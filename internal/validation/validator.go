// Package validation checks request payloads against struct tags before they
// reach storage.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validator validates structs against their validate tags.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate walks the exported fields of s and applies each field's validate
// tag. Rules are comma separated: required, email, min=N, max=N, len=N,
// oneof=a b c. Pointer fields are validated through when non-nil; a nil
// pointer only fails the required rule.
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return fmt.Errorf("validate expects a struct, got nil")
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		fieldType := typ.Field(i)
		if fieldType.PkgPath != "" {
			continue
		}

		tag := fieldType.Tag.Get("validate")
		if tag == "" {
			continue
		}

		if err := v.validateField(val.Field(i), tag); err != nil {
			return fmt.Errorf("%s: %w", fieldName(fieldType), err)
		}
	}

	return nil
}

// fieldName prefers the json name so errors match the wire payload.
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
		if name := strings.Split(tag, ",")[0]; name != "" {
			return name
		}
	}
	return f.Name
}

func (v *Validator) validateField(field reflect.Value, tag string) error {
	rules := strings.Split(tag, ",")

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			for _, rule := range rules {
				if rule == "required" {
					return fmt.Errorf("field is required")
				}
			}
			return nil
		}
		field = field.Elem()
	}

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		name := parts[0]
		arg := ""
		if len(parts) == 2 {
			arg = parts[1]
		}

		switch name {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "email":
			if field.Kind() != reflect.String {
				return fmt.Errorf("email rule applies to strings")
			}
			if s := field.String(); s != "" && !emailPattern.MatchString(s) {
				return fmt.Errorf("invalid email format")
			}

		case "min":
			if err := checkBound(field, arg, false); err != nil {
				return err
			}

		case "max":
			if err := checkBound(field, arg, true); err != nil {
				return err
			}

		case "len":
			n, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("bad len rule %q", arg)
			}
			switch field.Kind() {
			case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
				if field.Len() != n {
					return fmt.Errorf("length must be exactly %d", n)
				}
			default:
				return fmt.Errorf("len rule applies to strings and collections")
			}

		case "oneof":
			if field.Kind() != reflect.String {
				return fmt.Errorf("oneof rule applies to strings")
			}
			got := field.String()
			if got == "" {
				continue
			}
			allowed := strings.Fields(arg)
			found := false
			for _, a := range allowed {
				if got == a {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
			}
		}
	}

	return nil
}

// checkBound enforces min/max. For strings and collections the bound applies
// to the length, for numeric kinds to the value.
func checkBound(field reflect.Value, arg string, isMax bool) error {
	switch field.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("bad bound %q", arg)
		}
		l := field.Len()
		if isMax && l > n {
			return fmt.Errorf("maximum length is %d", n)
		}
		if !isMax && l < n {
			return fmt.Errorf("minimum length is %d", n)
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad bound %q", arg)
		}
		val := field.Int()
		if isMax && val > n {
			return fmt.Errorf("maximum is %d", n)
		}
		if !isMax && val < n {
			return fmt.Errorf("minimum is %d", n)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad bound %q", arg)
		}
		val := field.Uint()
		if isMax && val > n {
			return fmt.Errorf("maximum is %d", n)
		}
		if !isMax && val < n {
			return fmt.Errorf("minimum is %d", n)
		}

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("bad bound %q", arg)
		}
		val := field.Float()
		if isMax && val > n {
			return fmt.Errorf("maximum is %v", n)
		}
		if !isMax && val < n {
			return fmt.Errorf("minimum is %v", n)
		}

	default:
		return fmt.Errorf("min/max rule does not apply to %s", field.Kind())
	}

	return nil
}
