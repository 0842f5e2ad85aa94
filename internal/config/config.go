package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the process reads from the environment. A local
// .env file is merged in when present; real environment variables win.
type Config struct {
	Port           int
	DatabaseURL    string
	CORSOrigins    []string
	ReservationTTL time.Duration
	LockTimeout    time.Duration
	SweepInterval  time.Duration
	RoundingMode   string
	// PriceDriftAbort rejects order creation when the recomputed price no
	// longer matches the cart's frozen price. Off by default: the frozen
	// price is charged and the order is flagged instead.
	PriceDriftAbort bool
	FewThreshold    int
	LogLevel        string
}

func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", 8080)
	v.SetDefault("RESERVATION_TTL", "30m")
	v.SetDefault("LOCK_TIMEOUT", "5s")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("ROUNDING_MODE", "line")
	v.SetDefault("PRICE_DRIFT_ABORT", false)
	v.SetDefault("FEW_THRESHOLD", 10)
	v.SetDefault("LOG_LEVEL", "info")

	return Config{
		Port:            v.GetInt("PORT"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		CORSOrigins:     v.GetStringSlice("CORS_ORIGINS"),
		ReservationTTL:  v.GetDuration("RESERVATION_TTL"),
		LockTimeout:     v.GetDuration("LOCK_TIMEOUT"),
		SweepInterval:   v.GetDuration("SWEEP_INTERVAL"),
		RoundingMode:    v.GetString("ROUNDING_MODE"),
		PriceDriftAbort: v.GetBool("PRICE_DRIFT_ABORT"),
		FewThreshold:    v.GetInt("FEW_THRESHOLD"),
		LogLevel:        v.GetString("LOG_LEVEL"),
	}
}
