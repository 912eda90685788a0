package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	koanfjson "github.com/knadh/koanf/parsers/json"
	koanftoml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	defaultConfigPath  = "cf_pick.json"
	defaultUA          = "cf-picker/1.4 (+no-key-required)"
	defaultMinInterval = 2.2 // seconds
	defaultTimeout     = 45  // seconds
	defaultPageSize    = 500
	defaultRetries     = 4
	defaultBackoff     = 0.5 // seconds

	minTimeout  = 5
	minPageSize = 100
	maxPageSize = 1000
)

var defaultAPIHosts = []string{"https://codeforces.com/api", "https://www.codeforces.com/api"}

// envConfigPath names the environment variable consulted when --config is absent.
const envConfigPath = "CF_PICK_CONFIG"

// ConfigError reports a malformed or missing configuration value.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: '%s' %s", e.Field, e.Msg)
}

// appConfig holds the application configuration.
type appConfig struct {
	Handles  []string `json:"handles" validate:"required,min=1"`
	Ratings  []int    `json:"ratings" validate:"required,min=1"`
	YearMin  *int     `json:"year_min" validate:"required"`
	YearMax  *int     `json:"year_max" validate:"required"`
	Seed     *int64   `json:"seed,omitempty"`
	Verbose  bool     `json:"verbose,omitempty"`
	MaxPages *int     `json:"max_pages_per_user,omitempty" validate:"omitempty,gte=1"`

	DistinctContest bool           `json:"distinct_contest,omitempty"`
	DistinctTags    bool           `json:"distinct_tags,omitempty"`
	TagCaps         map[string]int `json:"tag_caps,omitempty" validate:"omitempty,dive,gte=1"`

	ExcludeNamePatterns []string `json:"exclude_contest_name_patterns,omitempty"`
	ExcludeContestIDs   []int    `json:"exclude_contest_ids,omitempty"`

	PreferIPv4  bool     `json:"prefer_ipv4,omitempty"`
	CookieFile  string   `json:"cookie_file,omitempty"`
	MinInterval float64  `json:"min_interval,omitempty"`
	Timeout     float64  `json:"timeout,omitempty"`
	PageSize    int      `json:"page_size,omitempty"`
	APIHosts    []string `json:"api_hosts,omitempty"`
	UserAgent   string   `json:"user_agent,omitempty"`
	Retries     int      `json:"retries,omitempty" validate:"gte=0"`
	Backoff     float64  `json:"backoff,omitempty" validate:"gte=0"`
}

// defaultConfig leaves APIHosts empty; normalize fills it in so that a
// configured host list replaces the defaults instead of merging with them.
func defaultConfig() appConfig {
	return appConfig{
		MinInterval: defaultMinInterval,
		Timeout:     defaultTimeout,
		PageSize:    defaultPageSize,
		UserAgent:   defaultUA,
		Retries:     defaultRetries,
		Backoff:     defaultBackoff,
	}
}

func (c appConfig) minInterval() time.Duration { return seconds(c.MinInterval) }
func (c appConfig) timeout() time.Duration     { return seconds(c.Timeout) }
func (c appConfig) backoff() time.Duration     { return seconds(c.Backoff) }

func (c appConfig) maxPages() int {
	if c.MaxPages == nil {
		return 0
	}
	return *c.MaxPages
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// resolveConfigPath picks the flag value, then $CF_PICK_CONFIG, then the default.
func resolveConfigPath(flagPath string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	return defaultConfigPath
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return koanftoml.Parser()
	default:
		return koanfjson.Parser()
	}
}

// loadConfig loads, normalizes and validates configuration from path.
func loadConfig(path string) (appConfig, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return appConfig{}, &ConfigError{Msg: fmt.Sprintf("failed to read config '%s': file not found", path)}
		}
		return appConfig{}, &ConfigError{Msg: fmt.Sprintf("stat config '%s': %v", path, err)}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return appConfig{}, &ConfigError{Msg: fmt.Sprintf("failed to read config '%s': %v", path, err)}
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       wholeNumberHook,
			WeaklyTypedInput: false,
			Result:           &cfg,
		},
	}); err != nil {
		return appConfig{}, decodeConfigError(err)
	}

	if err := cfg.normalize(); err != nil {
		return appConfig{}, err
	}
	if err := cfg.validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

var errNotWhole = errors.New("must be an integer")

// wholeNumberHook rejects fractional numbers bound for integer fields.
// JSON numbers arrive as float64 and would otherwise be truncated.
func wholeNumberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	if f, ok := data.(float64); ok && f != math.Trunc(f) {
		return nil, errNotWhole
	}
	return data, nil
}

// decodeFieldName matches the first quoted field path in a decoder error,
// e.g. 'year_min' or 'ratings[0]'.
var decodeFieldName = regexp.MustCompile(`'([^']+)'`)

func decodeConfigError(err error) *ConfigError {
	msg := err.Error()
	m := decodeFieldName.FindStringSubmatch(msg)
	if m == nil {
		return &ConfigError{Msg: fmt.Sprintf("unmarshal config: %v", err)}
	}
	if strings.Contains(msg, errNotWhole.Error()) {
		return &ConfigError{Field: m[1], Msg: errNotWhole.Error()}
	}
	return &ConfigError{Field: m[1], Msg: "has the wrong type"}
}

// normalize trims lists, lowercases tag caps and clamps networking values.
func (c *appConfig) normalize() error {
	c.Handles = trimNonEmpty(c.Handles)
	c.ExcludeNamePatterns = trimNonEmpty(c.ExcludeNamePatterns)
	c.APIHosts = trimNonEmpty(c.APIHosts)
	if len(c.APIHosts) == 0 {
		c.APIHosts = append([]string(nil), defaultAPIHosts...)
	}
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	if c.UserAgent == "" {
		c.UserAgent = defaultUA
	}
	c.CookieFile = strings.TrimSpace(c.CookieFile)

	if len(c.TagCaps) > 0 {
		caps := make(map[string]int, len(c.TagCaps))
		for tag, v := range c.TagCaps {
			key := strings.ToLower(strings.TrimSpace(tag))
			if _, dup := caps[key]; dup {
				return &ConfigError{Field: "tag_caps", Msg: fmt.Sprintf("tag '%s' is listed more than once", key)}
			}
			caps[key] = v
		}
		c.TagCaps = caps
	}

	c.MinInterval = max(0, c.MinInterval)
	c.Timeout = max(minTimeout, c.Timeout)
	c.PageSize = max(minPageSize, min(maxPageSize, c.PageSize))
	return nil
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var configValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report "year_min" instead of "YearMin".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (c *appConfig) validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ConfigError{Field: verrs[0].Field(), Msg: translateValidationError(verrs[0])}
		}
		return &ConfigError{Msg: err.Error()}
	}
	if *c.YearMin > *c.YearMax {
		return &ConfigError{Field: "year_min", Msg: "cannot be greater than 'year_max'"}
	}
	return nil
}

func translateValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		if e.Kind() == reflect.Slice {
			return "must be a non-empty list"
		}
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return "must be a non-empty list"
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", e.Param())
	default:
		return fmt.Sprintf("failed validation rule %s", e.Tag())
	}
}
