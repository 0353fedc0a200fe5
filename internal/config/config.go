// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Mailbox
	GmailCredentialsFile string
	GmailUser            string
	SenderDomain         string

	// Storage
	SupabaseURL        string
	SupabaseServiceKey string

	// Metadata extraction
	OpenAIAPIKey string
	OpenAIModel  string
	EnableOpenAI bool

	// Processing
	DatabasePath    string
	DropFolder      string
	MessageInterval time.Duration
	BatchSize       int
	BatchPause      time.Duration

	// Server
	Host               string
	Port               string
	RateLimitPerMinute int
	RateLimitBurst     int
}

var AppConfig Config

// InitConfig initializes the application configuration from viper's merged
// sources (flags, config file, environment).
func InitConfig() {
	viper.SetDefault("openai_model", "gpt-4o-mini")
	viper.SetDefault("enable_openai", true)
	viper.SetDefault("database_path", "fleetdocs.db")
	viper.SetDefault("message_interval", 3*time.Second)
	viper.SetDefault("batch_size", 20)
	viper.SetDefault("batch_pause", 30*time.Second)
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", "8080")
	viper.SetDefault("rate_limit_per_minute", 120)
	viper.SetDefault("rate_limit_burst", 30)

	AppConfig = Config{
		GmailCredentialsFile: viper.GetString("gmail_credentials_file"),
		GmailUser:            viper.GetString("gmail_user"),
		SenderDomain:         viper.GetString("sender_domain"),

		SupabaseURL:        viper.GetString("supabase_url"),
		SupabaseServiceKey: viper.GetString("supabase_service_key"),

		OpenAIAPIKey: viper.GetString("openai_api_key"),
		OpenAIModel:  viper.GetString("openai_model"),
		EnableOpenAI: viper.GetBool("enable_openai"),

		DatabasePath:    viper.GetString("database_path"),
		DropFolder:      viper.GetString("drop_folder"),
		MessageInterval: viper.GetDuration("message_interval"),
		BatchSize:       viper.GetInt("batch_size"),
		BatchPause:      viper.GetDuration("batch_pause"),

		Host:               viper.GetString("host"),
		Port:               viper.GetString("port"),
		RateLimitPerMinute: viper.GetInt("rate_limit_per_minute"),
		RateLimitBurst:     viper.GetInt("rate_limit_burst"),
	}
}
