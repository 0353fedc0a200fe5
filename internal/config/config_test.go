// file: internal/config/config_test.go
// version: 1.0.0
// guid: 8c9d0e1f-2a3b-4c5d-6e7f-8a9b0c1d2e3f

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestInitConfig_Defaults(t *testing.T) {
	viper.Reset()
	InitConfig()

	if AppConfig.MessageInterval != 3*time.Second {
		t.Errorf("MessageInterval = %v, want 3s", AppConfig.MessageInterval)
	}
	if AppConfig.BatchSize != 20 || AppConfig.BatchPause != 30*time.Second {
		t.Errorf("batch defaults = %d/%v", AppConfig.BatchSize, AppConfig.BatchPause)
	}
	if AppConfig.OpenAIModel != "gpt-4o-mini" || !AppConfig.EnableOpenAI {
		t.Errorf("openai defaults = %q/%v", AppConfig.OpenAIModel, AppConfig.EnableOpenAI)
	}
	if AppConfig.Port != "8080" {
		t.Errorf("Port = %q, want 8080", AppConfig.Port)
	}
}

func TestInitConfig_Overrides(t *testing.T) {
	viper.Reset()
	viper.Set("gmail_user", "inbox@fleet.example.com")
	viper.Set("sender_domain", "shop.example.com")
	viper.Set("supabase_url", "https://proj.supabase.co")
	viper.Set("message_interval", "5s")
	viper.Set("enable_openai", false)
	InitConfig()

	if AppConfig.GmailUser != "inbox@fleet.example.com" {
		t.Errorf("GmailUser = %q", AppConfig.GmailUser)
	}
	if AppConfig.SenderDomain != "shop.example.com" {
		t.Errorf("SenderDomain = %q", AppConfig.SenderDomain)
	}
	if AppConfig.MessageInterval != 5*time.Second {
		t.Errorf("MessageInterval = %v", AppConfig.MessageInterval)
	}
	if AppConfig.EnableOpenAI {
		t.Error("EnableOpenAI should be overridable to false")
	}
}
