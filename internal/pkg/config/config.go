package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	env "github.com/caarlos0/env/v11"

	appenv "github.com/focusgate/focusgate-server/internal/pkg/env"
)

// Config holds the settings the payment pipeline needs at startup. Values are
// parsed once from the environment; the .env file loaded by the env package is
// merged in so both sources work.
type Config struct {
	AppName      string `env:"APP_NAME" envDefault:"FocusGate"`
	AppEnv       string `env:"APP_ENV" envDefault:"prod"`
	PublicDomain string `env:"PUBLIC_DOMAIN" envDefault:"http://localhost:4000"`

	RazorpayKeyID         string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`

	// Price points in paise. A payment is classified by exact match only.
	PremiumPricePaise   int64 `env:"PREMIUM_PRICE_PAISE" envDefault:"9900"`
	EmergencyPricePaise int64 `env:"EMERGENCY_PRICE_PAISE" envDefault:"2900"`
	PremiumDurationDays int   `env:"PREMIUM_DURATION_DAYS" envDefault:"30"`

	JWTSecret     string `env:"JWT_SECRET"`
	FeedbackInbox string `env:"FEEDBACK_INBOX"`
}

var (
	cfg  Config
	once sync.Once
)

// Setup parses the configuration exactly once. Later calls are no-ops.
func Setup() error {
	var err error
	once.Do(func() {
		cfg, err = parse()
	})
	return err
}

// Get returns the parsed configuration. Setup must have run first.
func Get() *Config {
	return &cfg
}

func parse() (Config, error) {
	var c Config
	err := env.ParseWithOptions(&c, env.Options{Environment: mergedEnviron()})
	if err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// mergedEnviron layers the values loaded from the .env file over the process
// environment, matching the lookup order of env.GetEnv.
func mergedEnviron() map[string]string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range appenv.Env {
		merged[k] = v
	}
	return merged
}
