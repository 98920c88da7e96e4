package validator

import (
	"net/url"
	"strings"

	"github.com/garrettladley/imisrelay/internal/xerrors"
)

type Validator interface {
	// Validate validates the fields of the struct and returns a map of errors.
	// returns nil if no errors are found
	Validate() map[string]string
}

func Validate(v Validator, opts ...xerrors.Option) *xerrors.Error {
	if fields := v.Validate(); len(fields) > 0 {
		return xerrors.Validation(fields, opts...)
	}
	return nil
}

// Required records name in fields when value is blank.
func Required(fields map[string]string, name string, value string) bool {
	if strings.TrimSpace(value) == "" {
		fields[name] = "required"
		return false
	}
	return true
}

// HTTPURL records name in fields unless value is an absolute http(s) URL.
func HTTPURL(fields map[string]string, name string, value string) bool {
	if !Required(fields, name, value) {
		return false
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fields[name] = "must be an absolute http(s) URL"
		return false
	}
	return true
}
