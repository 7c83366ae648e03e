// Package config loads probe settings from the environment, optionally seeded
// from a dotenv settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/logging"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/notify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envSettingsFile = "SETTINGS_FILE"

type Config struct {
	TokenURL   string `mapstructure:"PROBE_TOKEN_URL"`
	ProcessURL string `mapstructure:"PROBE_PROCESS_URL"`
	Username   string `mapstructure:"PROBE_USERNAME"`
	Password   string `mapstructure:"PROBE_PASSWORD"`
	Origin     string `mapstructure:"PROBE_ORIGIN"`
	Referer    string `mapstructure:"PROBE_REFERER"`
	AudioFile  string `mapstructure:"PROBE_AUDIO_FILE"`

	StrictnessRaw string `mapstructure:"PROBE_STRICTNESS"`
	TimeoutRaw    string `mapstructure:"PROBE_TIMEOUT"`
	SectionsRaw   string `mapstructure:"PROBE_SECTIONS"`

	OperationType          string `mapstructure:"PROBE_OPERATION_TYPE"`
	SectionIDsRaw          string `mapstructure:"PROBE_SECTION_IDS"`
	EnableNativeTranscript bool   `mapstructure:"PROBE_ENABLE_NATIVE_TRANSCRIPT"`
	PatientID              string `mapstructure:"PROBE_PATIENT_ID"`
	VisitID                string `mapstructure:"PROBE_VISIT_ID"`
	PatientName            string `mapstructure:"PROBE_PATIENT_NAME"`
	DoctorID               string `mapstructure:"PROBE_DOCTOR_ID"`
	DoctorName             string `mapstructure:"PROBE_DOCTOR_NAME"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	MailFrom            string `mapstructure:"MAIL_FROM"`
	MailToRaw           string `mapstructure:"MAIL_TO"`
	MailFailureExtraRaw string `mapstructure:"MAIL_FAILURE_EXTRA"`
	MailSubjectTitle    string `mapstructure:"MAIL_SUBJECT_TITLE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Parsed from the raw fields above.
	Strictness       model.Strictness `mapstructure:"-"`
	Timeout          time.Duration    `mapstructure:"-"`
	Sections         []model.Section  `mapstructure:"-"`
	SectionIDs       []string         `mapstructure:"-"`
	MailTo           []string         `mapstructure:"-"`
	MailFailureExtra []string         `mapstructure:"-"`

	// SettingsFile is the dotenv file that was loaded, if any.
	SettingsFile string `mapstructure:"-"`
}

var envKeys = []string{
	"PROBE_TOKEN_URL",
	"PROBE_PROCESS_URL",
	"PROBE_USERNAME",
	"PROBE_PASSWORD",
	"PROBE_ORIGIN",
	"PROBE_REFERER",
	"PROBE_AUDIO_FILE",
	"PROBE_STRICTNESS",
	"PROBE_TIMEOUT",
	"PROBE_SECTIONS",
	"PROBE_OPERATION_TYPE",
	"PROBE_SECTION_IDS",
	"PROBE_ENABLE_NATIVE_TRANSCRIPT",
	"PROBE_PATIENT_ID",
	"PROBE_VISIT_ID",
	"PROBE_PATIENT_NAME",
	"PROBE_DOCTOR_ID",
	"PROBE_DOCTOR_NAME",
	"SMTP_HOST",
	"SMTP_PORT",
	"SMTP_USERNAME",
	"SMTP_PASSWORD",
	"MAIL_FROM",
	"MAIL_TO",
	"MAIL_FAILURE_EXTRA",
	"MAIL_SUBJECT_TITLE",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

// Load reads settingsFile (or $SETTINGS_FILE, or $HOME/.env when present) into
// the environment and then binds the environment into a Config. An explicitly
// named settings file must exist.
func Load(settingsFile string) (*Config, error) {
	loaded, err := loadSettingsFile(settingsFile)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PROBE_STRICTNESS", string(model.StrictnessStrict))
	v.SetDefault("PROBE_TIMEOUT", model.DefaultProbeTimeout.String())
	v.SetDefault("PROBE_OPERATION_TYPE", model.DefaultOperationType)
	v.SetDefault("PROBE_ENABLE_NATIVE_TRANSCRIPT", false)
	v.SetDefault("SMTP_HOST", "smtp.office365.com")
	v.SetDefault("SMTP_PORT", notify.DefaultSMTPPort)
	v.SetDefault("MAIL_SUBJECT_TITLE", notify.DefaultSubjectTitle)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SettingsFile = loaded

	if err := cfg.parse(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSettingsFile(explicit string) (string, error) {
	settingsFile := strings.TrimSpace(explicit)
	if settingsFile == "" {
		settingsFile = strings.TrimSpace(os.Getenv(envSettingsFile))
	}
	required := settingsFile != ""

	if settingsFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", nil
		}
		settingsFile = filepath.Join(homeDir, ".env")
	}

	if _, err := os.Stat(settingsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			// If defaulting to $HOME/.env and it doesn't exist, continue.
			return "", nil
		}
		return "", fmt.Errorf("settings file %s: %w", settingsFile, err)
	}

	if err := godotenv.Overload(settingsFile); err != nil {
		return "", fmt.Errorf("load settings file %s: %w", settingsFile, err)
	}
	return settingsFile, nil
}

func (c *Config) parse() error {
	strictness, err := model.ParseStrictness(c.StrictnessRaw)
	if err != nil {
		return fmt.Errorf("PROBE_STRICTNESS: %w", err)
	}
	c.Strictness = strictness

	timeout, err := time.ParseDuration(strings.TrimSpace(c.TimeoutRaw))
	if err != nil {
		return fmt.Errorf("PROBE_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive, got %s", timeout)
	}
	c.Timeout = timeout

	sections, err := model.ParseSections(c.SectionsRaw)
	if err != nil {
		return fmt.Errorf("PROBE_SECTIONS: %w", err)
	}
	c.Sections = sections

	c.SectionIDs = splitList(c.SectionIDsRaw)
	c.MailTo = splitList(c.MailToRaw)
	c.MailFailureExtra = splitList(c.MailFailureExtraRaw)
	return nil
}

// Validate checks the settings a live run needs. Mail settings are only
// required once MAIL_TO names at least one recipient.
func (c *Config) Validate() error {
	var missing []string
	required := map[string]string{
		"PROBE_TOKEN_URL":   c.TokenURL,
		"PROBE_PROCESS_URL": c.ProcessURL,
		"PROBE_USERNAME":    c.Username,
		"PROBE_PASSWORD":    c.Password,
		"PROBE_AUDIO_FILE":  c.AudioFile,
	}
	if len(c.MailTo) > 0 || len(c.MailFailureExtra) > 0 {
		required["MAIL_FROM"] = c.MailFrom
		required["SMTP_HOST"] = c.SMTPHost
	}
	for _, key := range envKeys {
		value, ok := required[key]
		if ok && strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) MailEnabled() bool {
	return len(c.MailTo) > 0 || len(c.MailFailureExtra) > 0
}

func (c *Config) Credential() model.Credential {
	return model.Credential{Username: c.Username, Password: c.Password}
}

func (c *Config) UploadRequest() model.UploadRequest {
	return model.NewUploadRequest(model.UploadRequest{
		OperationType:          c.OperationType,
		SectionIDs:             c.SectionIDs,
		EnableNativeTranscript: c.EnableNativeTranscript,
		PatientID:              c.PatientID,
		VisitID:                c.VisitID,
		Name:                   c.PatientName,
		DoctorID:               c.DoctorID,
		DoctorName:             c.DoctorName,
		AudioPath:              c.AudioFile,
	})
}

func (c *Config) ProbeOptions() []model.ProbeOption {
	return []model.ProbeOption{
		model.WithURL(c.ProcessURL),
		model.WithStrictness(c.Strictness),
		model.WithTimeout(c.Timeout),
		model.WithSections(c.Sections),
		model.WithHeaders(c.Origin, c.Referer),
	}
}

func (c *Config) NotifySettings() notify.Settings {
	return notify.Settings{
		From:         c.MailFrom,
		To:           c.MailTo,
		FailureExtra: c.MailFailureExtra,
		SubjectTitle: c.MailSubjectTitle,
	}
}

func (c *Config) SMTPConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
	}
}

func (c *Config) LoggingSettings() logging.Settings {
	return logging.Settings{Level: c.LogLevel, Format: c.LogFormat}
}

func splitList(raw string) []string {
	var values []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}
