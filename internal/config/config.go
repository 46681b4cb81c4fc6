package config

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"bevops-backend/internal/alerts"
	"bevops-backend/internal/cleaning"
)

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type FirebaseConfig struct {
	CredentialsBase64 string `mapstructure:"credentials_base64"`
	CredentialsFile   string `mapstructure:"credentials_file"`
}

// PolicyConfig holds the business thresholds for alerts and the cleaning queue
type PolicyConfig struct {
	Alerts   alerts.Policy   `mapstructure:"alerts"`
	Cleaning cleaning.Policy `mapstructure:"cleaning"`
	// NominalStock is the baseline for low stock warnings on allocation
	NominalStock int `mapstructure:"nominal_stock"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Policy   PolicyConfig   `mapstructure:"policy"`
}

var envBindings = map[string]string{
	"server.port":                 "PORT",
	"database.url":                "DATABASE_URL",
	"jwt.secret":                  "APP_JWT_SECRET",
	"redis.url":                   "REDIS_URL",
	"firebase.credentials_base64": "FIREBASE_CREDENTIALS_BASE64",
	"firebase.credentials_file":   "FIREBASE_CREDENTIALS_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("firebase.credentials_file", "./firebase-service-account.json")

	a := alerts.DefaultPolicy()
	v.SetDefault("policy.alerts.overdue_error_days", a.OverdueErrorDays)
	v.SetDefault("policy.alerts.overdue_critical_days", a.OverdueCriticalDays)
	v.SetDefault("policy.alerts.default_inventory_threshold", a.DefaultInventoryThreshold)
	v.SetDefault("policy.alerts.near_capacity_percent", a.NearCapacityPercent)
	v.SetDefault("policy.alerts.deposit_per_unit", a.DepositPerUnit)
	v.SetDefault("policy.alerts.deposit_warning_amount", a.DepositWarningAmount)
	v.SetDefault("policy.alerts.deposit_error_amount", a.DepositErrorAmount)
	v.SetDefault("policy.alerts.shelf_life_days", a.ShelfLifeDays)
	v.SetDefault("policy.alerts.expiry_warning_days", a.ExpiryWarningDays)

	c := cleaning.DefaultPolicy()
	v.SetDefault("policy.cleaning.clean_window_days", c.CleanWindowDays)
	v.SetDefault("policy.cleaning.backlog_hours", c.BacklogHours)
	v.SetDefault("policy.cleaning.dwell_normal_days", c.DwellNormalDays)
	v.SetDefault("policy.cleaning.dwell_high_days", c.DwellHighDays)

	v.SetDefault("policy.nominal_stock", 100)
}

// Load reads .env, then an optional bevops.yaml from dir, then the environment.
// Environment wins over the file.
func Load(dir string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("bevops")
	v.SetConfigType("yaml")

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		log.Println("⚠️  bevops.yaml not found, using defaults and environment")
	} else {
		log.Printf("✅ Config file loaded: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
