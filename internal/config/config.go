package config

import (
	"fmt"
	"strings"

	"github.com/pos-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Backend  BackendConfig  `mapstructure:"backend"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Cart     CartConfig     `mapstructure:"cart"`
	QR       QRConfig       `mapstructure:"qr"`
}

// ServerConfig 终端服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabaseConfig 本地存储数据库配置
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string `mapstructure:"dsn"`    // 数据库连接串
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// BackendConfig 零售后端配置
type BackendConfig struct {
	BaseURL            string `mapstructure:"base_url"`             // 后端 API 地址
	Token              string `mapstructure:"token"`                // 服务端调用令牌（可选，请求可覆盖）
	TimeoutMS          int    `mapstructure:"timeout_ms"`           // 单次请求超时
	MerchantName       string `mapstructure:"merchant_name"`        // 二维码收款展示名
	SuggestionsEnabled bool   `mapstructure:"suggestions_enabled"`  // 是否调用后端拆分建议接口
	RemoteValidate     bool   `mapstructure:"remote_validate"`      // 是否调用后端拆分校验接口
}

// JWTConfig 收银员令牌配置
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
}

// CartConfig 购物车配置
type CartConfig struct {
	RegisterKey string `mapstructure:"register_key"`  // 收银台存储键
	PollSeconds int    `mapstructure:"poll_seconds"`  // 外部变更轮询间隔
}

// QRConfig 二维码支付配置
type QRConfig struct {
	ExpireSeconds int `mapstructure:"expire_seconds"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")   // 如果从 cmd/terminal 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8090")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "terminal.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/terminal.db")
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "pos")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	viper.SetDefault("backend.base_url", "http://127.0.0.1:8080/api/v1")
	viper.SetDefault("backend.token", "")
	viper.SetDefault("backend.timeout_ms", 15000)
	viper.SetDefault("backend.merchant_name", "POS Terminal")
	viper.SetDefault("backend.suggestions_enabled", true)
	viper.SetDefault("backend.remote_validate", false)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("cart.register_key", "register-1")
	viper.SetDefault("cart.poll_seconds", 5)
	viper.SetDefault("qr.expire_seconds", 300)

	// 环境变量支持（server.port -> SERVER_PORT）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
