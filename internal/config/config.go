// Package config loads camwall options from CLI flags, environment variables
// and a TOML file, and watches that file for logging level changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/camwall/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "CAMWALL_"

// Options is the flat option set of the run command. Flag names derive from
// field names (QueueDepth -> queue-depth).
type Options struct {
	Config string

	// Capture settings
	Devices     int      `toml:"capture.devices" env:"CAPTURE_DEVICES"`
	DevicePaths []string `toml:"capture.device_paths" env:"CAPTURE_DEVICE_PATHS"`
	Width       int      `toml:"capture.width" env:"CAPTURE_WIDTH"`
	Height      int      `toml:"capture.height" env:"CAPTURE_HEIGHT"`
	PixelFormat string   `toml:"capture.pixel_format" env:"CAPTURE_PIXEL_FORMAT"`
	QueueDepth  int      `toml:"capture.queue_depth" env:"CAPTURE_QUEUE_DEPTH"`

	// Front ends
	Headless bool   `toml:"display.headless" env:"DISPLAY_HEADLESS"`
	Console  bool   `toml:"control.console" env:"CONTROL_CONSOLE"`
	Listen   string `toml:"server.listen" env:"SERVER_LISTEN"`

	// Auth settings
	AuthUsername string `toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	LedControl bool `toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`

	// Logging settings
	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`
}

// Defaults returns the options used when nothing else is configured.
func Defaults() Options {
	return Options{
		Config:        "camwall.toml",
		Devices:       2,
		Width:         1280,
		Height:        800,
		PixelFormat:   "xbgr32",
		QueueDepth:    4,
		Listen:        ":8090",
		AuthUsername:  "admin",
		AuthPassword:  "password",
		LoggingLevel:  "info",
		LoggingFormat: "text",
	}
}

// Validate checks the capture settings.
func (o *Options) Validate() error {
	var errs []error
	if len(o.DevicePaths) == 0 && o.Devices <= 0 {
		errs = append(errs, errors.New("at least one device is required"))
	}
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid frame size %dx%d", o.Width, o.Height))
	}
	if o.QueueDepth <= 0 {
		errs = append(errs, fmt.Errorf("queue depth must be positive, got %d", o.QueueDepth))
	}
	return errors.Join(errs...)
}

// DeviceList returns the configured device entries, or /dev/video0..N-1.
func (o *Options) DeviceList() []string {
	if len(o.DevicePaths) > 0 {
		return o.DevicePaths
	}
	list := make([]string, o.Devices)
	for i := range list {
		list[i] = fmt.Sprintf("/dev/video%d", i)
	}
	return list
}

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	// file errors are reported with the rest; env values still apply
	var errs []error
	var tree map[string]any
	if field := v.FieldByName("Config"); field.IsValid() && field.String() != "" {
		data, err := os.ReadFile(field.String())
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			errs = append(errs, fmt.Errorf("failed to read config: %w", err))
		default:
			if err := toml.Unmarshal(data, &tree); err != nil {
				errs = append(errs, fmt.Errorf("failed to parse TOML config: %w", err))
				tree = nil
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if changed[fieldNameToFlag(fieldType.Name)] {
			continue
		}

		if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" && tree != nil {
			if value := getNestedValue(tree, tomlPath); value != nil {
				if err := setFieldValue(field, value); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", tomlPath, err))
				}
			}
		}

		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				if err := setFieldValueFromString(field, envValue); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, envKey, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Listen" -> "listen".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func typeError(field reflect.Value, value any) error {
	return fmt.Errorf("cannot use %T as %s", value, field.Kind())
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return typeError(field, value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return typeError(field, value)
		}
		field.SetBool(b)
	case reflect.Int:
		i, ok := value.(int64)
		if !ok {
			return typeError(field, value)
		}
		field.SetInt(i)
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return typeError(field, value)
		}
		slice := make([]string, 0, len(arr))
		for _, item := range arr {
			s, ok := item.(string)
			if !ok {
				return typeError(field, item)
			}
			slice = append(slice, s)
		}
		field.Set(reflect.ValueOf(slice))
	}
	return nil
}

// setFieldValueFromString sets a field from an environment variable.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return typeError(field, value)
		}
		parts := strings.Split(value, ",")
		slice := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				slice = append(slice, part)
			}
		}
		field.Set(reflect.ValueOf(slice))
	}
	return nil
}

// ReadLoggingConfig reads the [logging] table of a TOML file. Keys other
// than level and format are module levels.
func ReadLoggingConfig(configPath string) (logging.Config, error) {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg, nil
}

// LoadLoggingConfig is ReadLoggingConfig with defaults on any error.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg, _ := ReadLoggingConfig(configPath)
	return cfg
}
