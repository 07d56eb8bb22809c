package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"ledger-sync/core/database"
	"ledger-sync/core/lock"
	"ledger-sync/core/logger"
	"ledger-sync/core/server"
	"ledger-sync/core/storage"
	"ledger-sync/feature/marketing"
	"ledger-sync/feature/runner"
	"ledger-sync/feature/shopify"
	"ledger-sync/feature/xero"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Database holds configuration for the mapping store connection.
	Database database.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Server holds configuration for the status HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for run report archival.
	Storage storage.Config `mapstructure:"storage"`
	// Redis holds configuration for the distributed run lock.
	Redis lock.Config `mapstructure:"redis"`
	// Shopify holds the source connection.
	Shopify shopify.Config `mapstructure:"shopify"`
	// Xero holds the destination connection and chart of accounts.
	Xero xero.Config `mapstructure:"xero"`
	// Sync holds the run controller settings.
	Sync runner.Config `mapstructure:"sync"`
	// Marketing holds the bulk consent job settings.
	Marketing marketing.Config `mapstructure:"marketing"`
}

// LoadConfig loads configuration from an optional config.yaml in path, the .env file and
// environment variables, in increasing priority.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Map environment variables to nested keys (e.g. SHOPIFY_SHOP_URL -> shopify.shop_url)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		switch field.Type.Kind() {
		case reflect.Struct:
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		case reflect.Map, reflect.Slice:
			// Only settable from the config file.
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

type section struct {
	name  string
	value any
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	return validateSections(
		section{"database", c.Database},
		section{"log", c.Log},
		section{"server", c.Server},
		section{"storage", c.Storage},
		section{"redis", c.Redis},
		section{"sync", c.Sync},
		section{"marketing", c.Marketing},
	)
}

// ValidateRemote checks the credentials of the source and destination. Commands that only
// read the mapping store skip it.
func (c *Config) ValidateRemote() error {
	return validateSections(
		section{"shopify", c.Shopify},
		section{"xero", c.Xero},
	)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func validateSections(sections ...section) error {
	var errs []error
	for _, sec := range sections {
		if err := validate.Struct(sec.value); err != nil {
			errs = append(errs, describe(sec.name, err))
		}
	}
	return errors.Join(errs...)
}

// describe renders validation failures as "section.field: rule" messages.
func describe(section string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", section, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace starts with the struct type name, which is replaced by the section.
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s.%s: failed %s", section, field, rule))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
