package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	DeepSeek ModelConfig    `mapstructure:"deepseek"`
	Gemini   ModelConfig    `mapstructure:"gemini"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	App      AppConfig      `mapstructure:"app"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// CORSOrigins 为空时回显请求的 Origin
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

// LLMConfig 选择 NL 理解服务的实现
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type ModelConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type WhatsAppConfig struct {
	VerifyToken     string `mapstructure:"verify_token"`
	AccessToken     string `mapstructure:"access_token"`
	PhoneNumberID   string `mapstructure:"phone_number_id"`
	GraphAPIVersion string `mapstructure:"graph_api_version"`
	BaseURL         string `mapstructure:"base_url"`
	// AppSecret 非空时校验 X-Hub-Signature-256
	AppSecret      string `mapstructure:"app_secret"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type AppConfig struct {
	Timezone       string `mapstructure:"timezone"`
	CategoriesFile string `mapstructure:"categories_file"`
}

const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

// LoadConfig 读取配置文件
func LoadConfig() (*Config, error) {
	// .env 不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // 配置文件名 (不带扩展名)
	v.SetConfigType("yaml")   // 文件类型
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// 支持环境变量覆盖 (例如在 Docker 中)
	// 比如设置环境变量 FINCHAT_DEEPSEEK_API_KEY 可以覆盖 yaml 里的值
	v.SetEnvPrefix("FINCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("llm.provider", ProviderDeepSeek)
	v.SetDefault("llm.timeout_seconds", 20)

	v.SetDefault("deepseek.api_key", "")
	v.SetDefault("deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("deepseek.model", "deepseek-chat")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash-latest")

	v.SetDefault("whatsapp.verify_token", "")
	v.SetDefault("whatsapp.access_token", "")
	v.SetDefault("whatsapp.phone_number_id", "")
	v.SetDefault("whatsapp.graph_api_version", "v19.0")
	v.SetDefault("whatsapp.base_url", "https://graph.facebook.com")
	v.SetDefault("whatsapp.app_secret", "")
	v.SetDefault("whatsapp.timeout_seconds", 15)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("app.timezone", "America/Sao_Paulo")
	v.SetDefault("app.categories_file", "")
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderDeepSeek, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider 不支持: %q", c.LLM.Provider)
	}
	if c.LLM.TimeoutSeconds < 1 || c.LLM.TimeoutSeconds > 300 {
		return fmt.Errorf("llm.timeout_seconds 必须在 1 到 300 之间, got: %d", c.LLM.TimeoutSeconds)
	}
	if c.WhatsApp.TimeoutSeconds < 1 || c.WhatsApp.TimeoutSeconds > 60 {
		return fmt.Errorf("whatsapp.timeout_seconds 必须在 1 到 60 之间, got: %d", c.WhatsApp.TimeoutSeconds)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format 必须是 text 或 json, got: %s", c.Log.Format)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone 无效: %w", err)
	}
	return nil
}

// Location 业务上的"本月"按这个时区计算
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) WhatsAppTimeout() time.Duration {
	return time.Duration(c.WhatsApp.TimeoutSeconds) * time.Second
}
