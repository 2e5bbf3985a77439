// Package config assembles the process-wide configuration once at startup.
// Components receive the resulting App by reference; nothing reads the
// environment from inside business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"swelter/internal/types"
)

const (
	FileEnvKey          = "SWELTER_CONFIG_FILE"
	SigningSecretEnvKey = "SLACK_SIGNING_SECRET"
	SummaryARNEnvKey    = "SUMMARY_SNS_ARN"

	defaultConfigFile = "swelter.yaml"
	defaultThresholdF = 82.0
	defaultInterval   = 15 * time.Minute
	defaultTimeout    = 10 * time.Second
	defaultStatusText = "In a meeting"
	defaultEmoji      = ":meeting:"
)

// App is the resolved process configuration. Defaults come from the optional
// YAML file; environment variables win over the file. The master key and the
// weather API key are loaded by their own packages, also once at startup.
type App struct {
	Port          int
	SigningSecret string

	// DefaultThresholdF applies to any stored record whose threshold is 0 and
	// to ad-hoc checks.
	DefaultThresholdF float64
	RequireDry        bool

	StatusText  string
	StatusEmoji string

	// ClearOnCool restores the original bot's behavior of wiping the status
	// whenever the rule does not fire. Off by default.
	ClearOnCool bool

	FetchInterval time.Duration
	CallTimeout   time.Duration

	// SummaryTopicARN, when set, gets a JSON copy of every batch-cycle summary.
	SummaryTopicARN string
}

type fileConfig struct {
	Port          int     `yaml:"port"`
	ThresholdF    float64 `yaml:"threshold_f"`
	RequireDry    *bool   `yaml:"require_dry"`
	StatusText    string  `yaml:"status_text"`
	StatusEmoji   string  `yaml:"status_emoji"`
	ClearOnCool   *bool   `yaml:"clear_on_cool"`
	FetchInterval string  `yaml:"fetch_interval"`
	CallTimeout   string  `yaml:"call_timeout"`
}

// Load builds the App from the YAML file (if present) and the environment.
func Load() (*App, error) {
	app := &App{
		Port:              8080,
		DefaultThresholdF: defaultThresholdF,
		RequireDry:        true,
		StatusText:        defaultStatusText,
		StatusEmoji:       defaultEmoji,
		FetchInterval:     defaultInterval,
		CallTimeout:       defaultTimeout,
	}

	if err := applyFile(app); err != nil {
		return nil, err
	}
	if err := applyEnv(app); err != nil {
		return nil, err
	}

	if app.SigningSecret == "" {
		return nil, types.Err(types.ErrConfiguration, nil, "%s is not set", SigningSecretEnvKey)
	}
	if app.FetchInterval < time.Minute {
		return nil, types.Err(types.ErrConfiguration, nil, "fetch interval below one minute")
	}
	return app, nil
}

func applyFile(app *App) error {
	path := getenv(FileEnvKey, defaultConfigFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && os.Getenv(FileEnvKey) == "" {
			return nil // default file is optional
		}
		return types.Err(types.ErrConfiguration, err, "cannot read config file %s", path)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return types.Err(types.ErrConfiguration, err, "cannot parse config file %s", path)
	}
	if fc.Port != 0 {
		app.Port = fc.Port
	}
	if fc.ThresholdF != 0 {
		app.DefaultThresholdF = fc.ThresholdF
	}
	if fc.RequireDry != nil {
		app.RequireDry = *fc.RequireDry
	}
	if fc.StatusText != "" {
		app.StatusText = fc.StatusText
	}
	if fc.StatusEmoji != "" {
		app.StatusEmoji = fc.StatusEmoji
	}
	if fc.ClearOnCool != nil {
		app.ClearOnCool = *fc.ClearOnCool
	}
	if fc.FetchInterval != "" {
		d, err := time.ParseDuration(fc.FetchInterval)
		if err != nil {
			return types.Err(types.ErrConfiguration, err, "invalid fetch_interval")
		}
		app.FetchInterval = d
	}
	if fc.CallTimeout != "" {
		d, err := time.ParseDuration(fc.CallTimeout)
		if err != nil {
			return types.Err(types.ErrConfiguration, err, "invalid call_timeout")
		}
		app.CallTimeout = d
	}
	return nil
}

func applyEnv(app *App) error {
	app.SigningSecret = getenv(SigningSecretEnvKey, app.SigningSecret)
	app.SummaryTopicARN = getenv(SummaryARNEnvKey, app.SummaryTopicARN)
	app.StatusText = getenv("STATUS_TEXT", app.StatusText)
	app.StatusEmoji = getenv("STATUS_EMOJI", app.StatusEmoji)

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return types.Err(types.ErrConfiguration, err, "invalid PORT")
		}
		app.Port = p
	}
	if v := os.Getenv("TEMP_THRESHOLD_F"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return types.Err(types.ErrConfiguration, err, "invalid TEMP_THRESHOLD_F")
		}
		app.DefaultThresholdF = t
	}
	if v := os.Getenv("REQUIRE_DRY"); v != "" {
		app.RequireDry = parseBoolean(v)
	}
	if v := os.Getenv("STATUS_CLEAR_ON_COOL"); v != "" {
		app.ClearOnCool = parseBoolean(v)
	}
	if v := os.Getenv("FETCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return types.Err(types.ErrConfiguration, err, "invalid FETCH_INTERVAL")
		}
		app.FetchInterval = d
	}
	if v := os.Getenv("CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return types.Err(types.ErrConfiguration, err, "invalid CALL_TIMEOUT")
		}
		app.CallTimeout = d
	}
	return nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func parseBoolean(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func (a *App) Addr() string { return fmt.Sprintf(":%d", a.Port) }
