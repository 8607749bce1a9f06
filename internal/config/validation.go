package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/pathmatch"
)

// validate is configured to report option names as they appear in configuration files.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks structural rules and then the file system facts the run depends on.
// Every failure is a fatal configuration error.
func Validate(cfg *Configuration) error {
	if cfg == nil {
		return ferrors.ConfigError("configuration is nil").Build()
	}
	if err := validate.Struct(cfg); err != nil {
		return ferrors.WrapError(describeValidationErrors(err), ferrors.CategoryConfig, "invalid configuration").Fatal().Build()
	}
	v := configurationValidator{cfg: cfg}
	return v.validate()
}

type configurationValidator struct {
	cfg *Configuration
}

func (cv configurationValidator) validate() error {
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validatePatterns(); err != nil {
		return err
	}
	return cv.validateTemplates()
}

func (cv configurationValidator) validatePaths() error {
	for _, p := range cv.cfg.Paths {
		if _, err := os.Stat(p); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "source path is not accessible").
				Fatal().WithContext("path", p).Build()
		}
	}
	return nil
}

func (cv configurationValidator) validatePatterns() error {
	if _, err := pathmatch.Compile(cv.cfg.ExcludePatterns); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid excludePatterns").Fatal().Build()
	}
	return nil
}

func (cv configurationValidator) validateTemplates() error {
	dir := cv.cfg.TemplatesDirectory
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "templatesDirectory is not accessible").
			Fatal().WithContext("path", dir).Build()
	}
	if !info.IsDir() {
		return ferrors.ConfigError("templatesDirectory is not a directory").WithContext("path", dir).Build()
	}
	return nil
}

func describeValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "min":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required when docSetOutputEnabled is true", field))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("%s entries must start with %q (got %v)", field, fe.Param(), fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s] (got %v)", field, fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s check (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
