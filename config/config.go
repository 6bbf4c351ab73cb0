package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided
// via the config file or the environment.
type AppConfig struct {
	AppPort     string
	BaseURL     string
	JWTSecret   string
	SessionHrs  int
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// GitHub OAuth login
	GitHubClientID     string
	GitHubClientSecret string
	OAuthRedirectBase  string
	// Rate limiting for auth routes
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for caching, token blacklist and abuse counters
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Registration security
	RegisterCaptchaEnabled     bool
	RegisterMaxPerIPPerDay     int
	RegisterAttemptCooldownSec int
	RegisterTempBanMinutes     int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during
// boot. Precedence: config/config.json -> defaults -> environment overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

type jsonConfig struct {
	AppPort                    string   `json:"app_port"`
	BaseURL                    string   `json:"base_url"`
	JWTSecret                  string   `json:"jwt_secret"`
	SessionHrs                 int      `json:"session_hours"`
	DatabaseURI                string   `json:"database_uri"`
	DBHost                     string   `json:"db_host"`
	DBPort                     string   `json:"db_port"`
	DBUser                     string   `json:"db_user"`
	DBPassword                 string   `json:"db_password"`
	DBName                     string   `json:"db_name"`
	GitHubClientID             string   `json:"github_client_id"`
	GitHubClientSecret         string   `json:"github_client_secret"`
	OAuthRedirectBase          string   `json:"oauth_redirect_base"`
	RateLimitPerMinute         int      `json:"rate_limit_per_minute"`
	AllowedOrigins             []string `json:"allowed_origins"`
	GinMode                    string   `json:"gin_mode"`
	GinPath                    string   `json:"gin_path"`
	RedisHost                  string   `json:"redis_host"`
	RedisPort                  int      `json:"redis_port"`
	RedisDB                    int      `json:"redis_db"`
	RedisPassword              string   `json:"redis_password"`
	LogLevel                   string   `json:"log_level"`
	LogPath                    string   `json:"log_path"`
	LogMaxSizeMB               int      `json:"log_max_size_mb"`
	LogMaxBackups              int      `json:"log_max_backups"`
	LogMaxAgeDays              int      `json:"log_max_age_days"`
	LogCompress                bool     `json:"log_compress"`
	RegisterCaptchaEnabled     bool     `json:"register_captcha_enabled"`
	RegisterMaxPerIPPerDay     int      `json:"register_max_per_ip_per_day"`
	RegisterAttemptCooldownSec int      `json:"register_attempt_cooldown_sec"`
	RegisterTempBanMinutes     int      `json:"register_temp_ban_minutes"`
}

// loadJSONConfig reads the JSON file into out if present. Returns an error
// only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw jsonConfig
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	out.AppPort = raw.AppPort
	out.BaseURL = raw.BaseURL
	out.JWTSecret = raw.JWTSecret
	out.SessionHrs = raw.SessionHrs
	out.DatabaseURI = raw.DatabaseURI
	out.DBHost = raw.DBHost
	out.DBPort = raw.DBPort
	out.DBUser = raw.DBUser
	out.DBPassword = raw.DBPassword
	out.DBName = raw.DBName
	out.GitHubClientID = raw.GitHubClientID
	out.GitHubClientSecret = raw.GitHubClientSecret
	out.OAuthRedirectBase = raw.OAuthRedirectBase
	out.RateLimitPerMinute = raw.RateLimitPerMinute
	out.AllowedOrigins = raw.AllowedOrigins
	out.GinMode = raw.GinMode
	out.GinPath = raw.GinPath
	out.RedisHost = raw.RedisHost
	out.RedisPort = raw.RedisPort
	out.RedisDB = raw.RedisDB
	out.RedisPassword = raw.RedisPassword
	out.LogLevel = raw.LogLevel
	out.LogPath = raw.LogPath
	out.LogMaxSizeMB = raw.LogMaxSizeMB
	out.LogMaxBackups = raw.LogMaxBackups
	out.LogMaxAgeDays = raw.LogMaxAgeDays
	out.LogCompress = raw.LogCompress
	out.RegisterCaptchaEnabled = raw.RegisterCaptchaEnabled
	out.RegisterMaxPerIPPerDay = raw.RegisterMaxPerIPPerDay
	out.RegisterAttemptCooldownSec = raw.RegisterAttemptCooldownSec
	out.RegisterTempBanMinutes = raw.RegisterTempBanMinutes
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.AppPort
	}
	if c.SessionHrs <= 0 {
		c.SessionHrs = 72
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "inkwell"
	}
	if c.DBName == "" {
		c.DBName = "inkwell"
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = 30
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 20
	}
	if c.RegisterTempBanMinutes == 0 {
		c.RegisterTempBanMinutes = 60
	}
}

func applyEnvOverrides(c *AppConfig) {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.SessionHrs = getEnvInt("SESSION_HOURS", c.SessionHrs)
	c.DatabaseURI = getEnv("DATABASE_URI", c.DatabaseURI)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.GitHubClientID = getEnv("GITHUB_CLIENT_ID", c.GitHubClientID)
	c.GitHubClientSecret = getEnv("GITHUB_CLIENT_SECRET", c.GitHubClientSecret)
	c.OAuthRedirectBase = getEnv("OAUTH_REDIRECT_BASE", c.OAuthRedirectBase)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				origins = append(origins, s)
			}
		}
		if len(origins) > 0 {
			c.AllowedOrigins = origins
		}
	}
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.GinPath = getEnv("GIN_LOG_PATH", c.GinPath)
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnvInt("REDIS_PORT", c.RedisPort)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	c.LogCompress = getEnvBool("LOG_COMPRESS", c.LogCompress)
	c.RegisterCaptchaEnabled = getEnvBool("REGISTER_CAPTCHA_ENABLED", c.RegisterCaptchaEnabled)
	c.RegisterMaxPerIPPerDay = getEnvInt("REGISTER_MAX_PER_IP_PER_DAY", c.RegisterMaxPerIPPerDay)
	c.RegisterAttemptCooldownSec = getEnvInt("REGISTER_ATTEMPT_COOLDOWN_SEC", c.RegisterAttemptCooldownSec)
	c.RegisterTempBanMinutes = getEnvInt("REGISTER_TEMP_BAN_MINUTES", c.RegisterTempBanMinutes)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
