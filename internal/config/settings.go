package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Default values shared by the CLI flags and the config template.
const (
	DefaultPlotHeight = 10
	DefaultOutDir     = "simdash-export"
	DefaultLogLevel   = "info"
)

// Settings is the resolved configuration for one invocation.
type Settings struct {
	PlotHeight   int    `flag:"plot-height" validate:"gte=4,lte=60"`
	PlotWidth    int    `flag:"plot-width" validate:"gte=0"`
	Color        bool   `flag:"color"`
	SkipBadFiles bool   `flag:"skip-bad-files"`
	Material     string `flag:"material"`
	OutDir       string `flag:"out" validate:"required"`
	LogLevel     string `flag:"log-level" validate:"oneof=debug info warn error"`
}

// EnvConfig holds SIMDASH_* overrides. Unset variables stay nil.
type EnvConfig struct {
	PlotHeight   *int    `envconfig:"PLOT_HEIGHT"`
	PlotWidth    *int    `envconfig:"PLOT_WIDTH"`
	Color        *bool   `envconfig:"COLOR"`
	SkipBadFiles *bool   `envconfig:"SKIP_BAD_FILES"`
	Material     *string `envconfig:"MATERIAL"`
	OutDir       *string `envconfig:"OUT_DIR"`
	LogLevel     *string `envconfig:"LOG_LEVEL"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		PlotHeight:   DefaultPlotHeight,
		Color:        true,
		SkipBadFiles: true,
		OutDir:       DefaultOutDir,
		LogLevel:     DefaultLogLevel,
	}
}

// LoadEnv reads SIMDASH_* environment overrides.
func LoadEnv() (EnvConfig, error) {
	var env EnvConfig
	if err := envconfig.Process(appName, &env); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// Resolve layers the file config and then the environment over the defaults.
func Resolve(file FileConfig, env EnvConfig) Settings {
	s := Defaults()
	setInt(&s.PlotHeight, file.Report.PlotHeight)
	setInt(&s.PlotWidth, file.Report.PlotWidth)
	setBool(&s.Color, file.Report.Color)
	setBool(&s.SkipBadFiles, file.Report.SkipBadFiles)
	setString(&s.Material, file.Report.Material)
	setString(&s.OutDir, file.Export.OutDir)
	setString(&s.LogLevel, file.Log.Level)

	setInt(&s.PlotHeight, env.PlotHeight)
	setInt(&s.PlotWidth, env.PlotWidth)
	setBool(&s.Color, env.Color)
	setBool(&s.SkipBadFiles, env.SkipBadFiles)
	setString(&s.Material, env.Material)
	setString(&s.OutDir, env.OutDir)
	setString(&s.LogLevel, env.LogLevel)
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	return s
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks the resolved settings and names the offending flag.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeViolation(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("--%s must be >= %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("--%s must be <= %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("--%s must be one of: %s", fe.Field(), fe.Param())
	case "required":
		return fmt.Sprintf("--%s must not be empty", fe.Field())
	default:
		return fmt.Sprintf("--%s is invalid", fe.Field())
	}
}

func setInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}

func setBool(target *bool, value *bool) {
	if value != nil {
		*target = *value
	}
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}
