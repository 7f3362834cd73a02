// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dbcgen/dbcgen/pkg/types"
)

const (
	// CollisionError aborts a batch when two units map to the same module.
	// Defined locally to avoid coupling config to internal/batch.
	CollisionError CollisionPolicy = "error"
	// CollisionSkip keeps the first unit and skips the rest.
	CollisionSkip CollisionPolicy = "skip"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultCommonTypesImport is the import line of shared generated files.
	DefaultCommonTypesImport = "use super::CanError;"

	// MaxJobs bounds the number of units generated at once.
	MaxJobs = 256
)

var (
	// ErrInvalidCollisionPolicy is returned when a CollisionPolicy value is not recognized.
	ErrInvalidCollisionPolicy = errors.New("invalid collision policy")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidJobCount is returned when a job count is outside 1..MaxJobs.
	ErrInvalidJobCount = errors.New("invalid job count")
	// ErrInvalidExcludeDir is returned when an exclude entry is not a plain directory name.
	ErrInvalidExcludeDir = errors.New("invalid exclude directory")
	// ErrInvalidCommonTypesImport is returned when the import line is not a use declaration.
	ErrInvalidCommonTypesImport = errors.New("invalid common types import")
	// ErrInvalidGenerateConfig is the sentinel error wrapped by InvalidGenerateConfigError.
	ErrInvalidGenerateConfig = errors.New("invalid generate config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// CollisionPolicy decides what happens when units share a module name.
	CollisionPolicy string

	// InvalidCollisionPolicyError is returned when a CollisionPolicy value is not recognized.
	// It wraps ErrInvalidCollisionPolicy for errors.Is() compatibility.
	InvalidCollisionPolicyError struct {
		Value CollisionPolicy
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// JobCount is the number of units generated at once.
	JobCount int

	// InvalidJobCountError is returned when a JobCount is outside 1..MaxJobs.
	InvalidJobCountError struct {
		Value JobCount
	}

	// InvalidGenerateConfigError collects the field errors of a GenerateConfig.
	InvalidGenerateConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError collects the field errors of a UIConfig.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Generate configures discovery and generation
		Generate GenerateConfig `json:"generate" mapstructure:"generate" toml:"generate"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui" toml:"ui"`
	}

	// GenerateConfig configures how units are found and generated.
	GenerateConfig struct {
		// Extension selects description files inside directories
		Extension types.FileExtension `json:"extension" mapstructure:"extension" toml:"extension"`
		// OutputExtension is the extension of generated files
		OutputExtension types.FileExtension `json:"output_extension" mapstructure:"output_extension" toml:"output_extension"`
		// CommonTypesImport starts every generated file when an index is written
		CommonTypesImport string `json:"common_types_import" mapstructure:"common_types_import" toml:"common_types_import"`
		// DebugPrints adds Debug implementations to generated types
		DebugPrints bool `json:"debug_prints" mapstructure:"debug_prints" toml:"debug_prints"`
		// Jobs is the number of units generated at once
		Jobs JobCount `json:"jobs" mapstructure:"jobs" toml:"jobs"`
		// Collision is the module name collision policy
		Collision CollisionPolicy `json:"collision" mapstructure:"collision" toml:"collision"`
		// ExcludeDirs lists directory names that are never descended
		ExcludeDirs []string `json:"exclude_dirs" mapstructure:"exclude_dirs" toml:"exclude_dirs"`
		// FollowSymlinks descends into symlinked directories
		FollowSymlinks bool `json:"follow_symlinks" mapstructure:"follow_symlinks" toml:"follow_symlinks"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose"`
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
	}
)

// String returns the policy name.
func (p CollisionPolicy) String() string { return string(p) }

// IsValid returns whether the CollisionPolicy is one of the defined policies,
// and a list of validation errors if it is not.
func (p CollisionPolicy) IsValid() (bool, []error) {
	switch p {
	case CollisionError, CollisionSkip:
		return true, nil
	default:
		return false, []error{&InvalidCollisionPolicyError{Value: p}}
	}
}

// Error implements the error interface for InvalidCollisionPolicyError.
func (e *InvalidCollisionPolicyError) Error() string {
	return fmt.Sprintf("invalid collision policy %q (valid: error, skip)", e.Value)
}

// Unwrap returns ErrInvalidCollisionPolicy for errors.Is() compatibility.
func (e *InvalidCollisionPolicyError) Unwrap() error { return ErrInvalidCollisionPolicy }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid returns whether the JobCount is within 1..MaxJobs.
func (j JobCount) IsValid() (bool, []error) {
	if j < 1 || j > MaxJobs {
		return false, []error{&InvalidJobCountError{Value: j}}
	}
	return true, nil
}

// Error implements the error interface for InvalidJobCountError.
func (e *InvalidJobCountError) Error() string {
	return fmt.Sprintf("invalid job count %d (valid: 1..%d)", e.Value, MaxJobs)
}

// Unwrap returns ErrInvalidJobCount for errors.Is() compatibility.
func (e *InvalidJobCountError) Unwrap() error { return ErrInvalidJobCount }

// IsValid returns whether the GenerateConfig has valid fields.
// An empty CommonTypesImport is valid and means DefaultCommonTypesImport.
func (c GenerateConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Extension.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.OutputExtension.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.CommonTypesImport != "" {
		line := strings.TrimSpace(c.CommonTypesImport)
		if !strings.HasPrefix(line, "use ") || !strings.HasSuffix(line, ";") || strings.Contains(line, "\n") {
			errs = append(errs, fmt.Errorf("%w: %q must be a single use declaration", ErrInvalidCommonTypesImport, c.CommonTypesImport))
		}
	}
	if valid, fieldErrs := c.Jobs.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Collision.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, dir := range c.ExcludeDirs {
		if strings.TrimSpace(dir) == "" || strings.ContainsAny(dir, `/\`) {
			errs = append(errs, fmt.Errorf("%w: %q must be a single directory name", ErrInvalidExcludeDir, dir))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidGenerateConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidGenerateConfigError.
func (e *InvalidGenerateConfigError) Error() string {
	return fmt.Sprintf("invalid generate config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidGenerateConfig and the field errors.
func (e *InvalidGenerateConfigError) Unwrap() []error {
	return append([]error{ErrInvalidGenerateConfig}, e.FieldErrors...)
}

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig and the field errors.
func (e *InvalidUIConfigError) Unwrap() []error {
	return append([]error{ErrInvalidUIConfig}, e.FieldErrors...)
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Generate.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// ImportLine returns the configured import line, or the default one.
func (c GenerateConfig) ImportLine() string {
	if line := strings.TrimSpace(c.CommonTypesImport); line != "" {
		return line
	}
	return DefaultCommonTypesImport
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Generate: GenerateConfig{
			Extension:         "dbc",
			OutputExtension:   "rs",
			CommonTypesImport: DefaultCommonTypesImport,
			DebugPrints:       true,
			Jobs:              1,
			Collision:         CollisionError,
			ExcludeDirs:       []string{".git"},
			FollowSymlinks:    false,
		},
		UI: UIConfig{
			Verbose:     false,
			ColorScheme: ColorSchemeAuto,
		},
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
