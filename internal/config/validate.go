package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"termspectrum/internal/fft"
	"termspectrum/pkg/bitint"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Name fields after their command line flag, or their YAML key when
	// they have none.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("flag"); name != "" {
			return "--" + name
		}
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// fieldFlags maps the struct fields referenced by gtfield to their flags.
var fieldFlags = map[string]string{
	"MinFreq": "--min-freq",
	"AbsMin":  "--abs-min",
}

// Validate checks every setting and the rules spanning several of them.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, fmt.Errorf("%s %s (got %v)", e.Field(), formatValidationMessage(e), e.Value()))
		}
	}

	if !bitint.IsPowerOfTwo(c.Capture.WindowSize) {
		errs = append(errs, fmt.Errorf("--window-size must be a power of 2 (got %d, try %d)",
			c.Capture.WindowSize, bitint.NextPowerOfTwo(c.Capture.WindowSize)))
	}
	if _, err := fft.ParseWindowFunc(c.Capture.Window); err != nil {
		errs = append(errs, fmt.Errorf("--window: %w", err))
	}
	if c.Display.Transform == "log" && c.Display.AbsMin <= 0 {
		errs = append(errs, fmt.Errorf("--abs-min must be positive with --transform log (got %g)", c.Display.AbsMin))
	}
	if c.logGrouping() && c.Display.MinFreq <= 0 {
		errs = append(errs, fmt.Errorf("--min-freq must be positive with --grouping log (got %g)", c.Display.MinFreq))
	}

	return errors.Join(errs...)
}

// logGrouping reports whether columns are laid out on a log frequency
// scale; a none reducer disables grouping altogether.
func (c *Config) logGrouping() bool {
	g := c.Display.Grouping
	return (g == "log" || g == "logarithmic") && c.Display.Reducer != "none"
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "gtfield":
		name, ok := fieldFlags[e.Param()]
		if !ok {
			name = e.Param()
		}
		return fmt.Sprintf("must be greater than %s", name)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "hostname_port":
		return "must be a host:port address"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
