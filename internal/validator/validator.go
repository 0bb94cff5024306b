// Package validator checks struct fields against `validate` tags.
//
// Rules are separated by "|": required, min:N, max:N (integers), minlen:N,
// maxlen:N (strings, in runes), in:a,b,c, regexp:EXPR and nested. Rules on a
// slice apply to every element, except required which checks the slice itself.
// A nil pointer is only checked by required.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	tagNameValidate = "validate"
	ruleRequired    = "required"
	ruleNested      = "nested"
	ruleIn          = "in"
	ruleMin         = "min"
	ruleMax         = "max"
	ruleMinLen      = "minlen"
	ruleMaxLen      = "maxlen"
	ruleRegexp      = "regexp"
)

var (
	ErrRequired           = errors.New("value is required")
	ErrIncorrectLen       = errors.New("value has incorrect length")
	ErrNotMatchRegexp     = errors.New("does not match regexp")
	ErrNotFoundInList     = errors.New("does not found in list")
	ErrIncorrectNumeric   = errors.New("incorrect numeric value")
	ErrIncorrectTag       = errors.New("incorrect tag")
	ErrIncorrectTagValue  = errors.New("incorrect tag value")
	ErrIncorrectStruct    = errors.New("incorrect struct")
	ErrUnsupportedOperand = errors.New("rule is not supported for field type")
)

type ValidationError struct {
	Field string
	Err   error
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Err)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	sorted := make(ValidationErrors, len(v))
	copy(sorted, v)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Field < sorted[j].Field })
	parts := make([]string, 0, len(sorted))
	for _, e := range sorted {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Is lets errors.Is match any of the collected rule errors.
func (v ValidationErrors) Is(target error) bool {
	for _, e := range v {
		if errors.Is(e.Err, target) {
			return true
		}
	}
	return false
}

type rule struct {
	name  string
	value string
}

// Validate returns ValidationErrors for values breaking their rules, or another
// error when the tags themselves are wrong.
func Validate(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return ErrIncorrectStruct
	}
	var errs ValidationErrors
	if err := validateStruct(rv, "", &errs); err != nil {
		return err
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateStruct(rv reflect.Value, prefix string, errs *ValidationErrors) error {
	t := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		rules, err := parseTag(sf.Tag.Get(tagNameValidate))
		if err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
		if err := validateField(rv.Field(i), prefix+sf.Name, rules, errs); err != nil {
			return err
		}
	}
	return nil
}

func validateField(field reflect.Value, name string, rules []rule, errs *ValidationErrors) error {
	for _, r := range rules {
		if r.name == ruleRequired && isEmpty(field) {
			*errs = append(*errs, ValidationError{Field: name, Err: ErrRequired})
			return nil
		}
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil
		}
		field = field.Elem()
	}

	if field.Kind() == reflect.Slice || field.Kind() == reflect.Array {
		for i := 0; i < field.Len(); i++ {
			if err := validateValue(field.Index(i), fmt.Sprintf("%s[%d]", name, i), rules, errs); err != nil {
				return err
			}
		}
		return nil
	}
	return validateValue(field, name, rules, errs)
}

func validateValue(val reflect.Value, name string, rules []rule, errs *ValidationErrors) error {
	for _, r := range rules {
		var failed error
		var err error
		switch r.name {
		case ruleRequired:
			continue
		case ruleNested:
			if val.Kind() != reflect.Struct {
				return fmt.Errorf("%s %s: %w", r.name, name, ErrUnsupportedOperand)
			}
			if err := validateStruct(val, name+".", errs); err != nil {
				return err
			}
			continue
		case ruleIn:
			if !inList(val, strings.Split(r.value, ",")) {
				failed = ErrNotFoundInList
			}
		case ruleMin, ruleMax:
			failed, err = checkNumeric(val, r)
		case ruleMinLen, ruleMaxLen:
			failed, err = checkLen(val, r)
		case ruleRegexp:
			failed, err = checkRegexp(val, r)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", r.name, name, err)
		}
		if failed != nil {
			*errs = append(*errs, ValidationError{Field: name, Err: failed})
		}
	}
	return nil
}

func parseTag(tag string) ([]rule, error) {
	if tag == "" {
		return nil, nil
	}
	parts := strings.Split(tag, "|")
	rules := make([]rule, 0, len(parts))
	for _, p := range parts {
		nameValue := strings.SplitN(p, ":", 2)
		r := rule{name: nameValue[0]}
		switch r.name {
		case ruleRequired, ruleNested:
			if len(nameValue) == 2 {
				return nil, ErrIncorrectTag
			}
		case ruleIn, ruleMin, ruleMax, ruleMinLen, ruleMaxLen, ruleRegexp:
			if len(nameValue) != 2 || nameValue[1] == "" {
				return nil, ErrIncorrectTag
			}
			r.value = nameValue[1]
		default:
			return nil, ErrIncorrectTag
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() { //nolint:exhaustive
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

func inList(v reflect.Value, list []string) bool {
	s := fmt.Sprint(v.Interface())
	for _, item := range list {
		if s == item {
			return true
		}
	}
	return false
}

func checkNumeric(v reflect.Value, r rule) (error, error) { //nolint:revive
	switch v.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bound, err := strconv.ParseInt(r.value, 0, 64)
		if err != nil {
			return nil, ErrIncorrectTagValue
		}
		if (r.name == ruleMin && v.Int() < bound) || (r.name == ruleMax && v.Int() > bound) {
			return ErrIncorrectNumeric, nil
		}
		return nil, nil
	case reflect.Float32, reflect.Float64:
		bound, err := strconv.ParseFloat(r.value, 64)
		if err != nil {
			return nil, ErrIncorrectTagValue
		}
		if (r.name == ruleMin && v.Float() < bound) || (r.name == ruleMax && v.Float() > bound) {
			return ErrIncorrectNumeric, nil
		}
		return nil, nil
	default:
		return nil, ErrUnsupportedOperand
	}
}

func checkLen(v reflect.Value, r rule) (error, error) { //nolint:revive
	if v.Kind() != reflect.String {
		return nil, ErrUnsupportedOperand
	}
	bound, err := strconv.Atoi(r.value)
	if err != nil {
		return nil, ErrIncorrectTagValue
	}
	n := utf8.RuneCountInString(v.String())
	if (r.name == ruleMinLen && n < bound) || (r.name == ruleMaxLen && n > bound) {
		return ErrIncorrectLen, nil
	}
	return nil, nil
}

func checkRegexp(v reflect.Value, r rule) (error, error) { //nolint:revive
	if v.Kind() != reflect.String {
		return nil, ErrUnsupportedOperand
	}
	re, err := regexp.Compile(r.value)
	if err != nil {
		return nil, ErrIncorrectTagValue
	}
	s := v.String()
	if len(re.FindString(s)) != len(s) {
		return ErrNotMatchRegexp, nil
	}
	return nil, nil
}
