package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host            string        // 监听地址，默认 "0.0.0.0"
	Port            int           // 监听端口，默认 8080
	ShutdownTimeout time.Duration // 优雅关闭等待时间，默认 10 秒
	MaxBodyBytes    int64         // 请求体大小上限，默认 10MB
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到标准输出
	MaxSizeMB   int    // 单个日志文件最大体积
	MaxBackups  int    // 保留的旧日志文件数量
	MaxAgeDays  int    // 旧日志保留天数
}

// DatabaseConfig 定义数据库连接配置
type DatabaseConfig struct {
	Type            string        // 数据库类型: "postgres"、"mysql"、"sqlite"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 配置，用于通知去重和多实例事件转发
type RedisConfig struct {
	Enabled  bool   // 是否启用 Redis
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// AIConfig 定义分类与回复建议的静态配置
type AIConfig struct {
	Signature string // 回复建议的署名，默认 "[Your Name]"
}

// NotificationConfig 定义通知投递配置
type NotificationConfig struct {
	Workers   int           // 投递协程数
	QueueSize int           // 投递队列长度
	RateLimit float64       // 每秒最多投递次数
	Burst     int           // 突发投递数量
	Timeout   time.Duration // 单次 HTTP 投递超时
	DedupeTTL time.Duration // 同一邮件同一渠道的去重窗口
}

// SyncConfig 定义邮件同步配置
type SyncConfig struct {
	Mode     string        // 同步方式: "simulated" 或 "imap"
	Interval time.Duration // 后台同步间隔，0 表示关闭后台同步
	Timeout  time.Duration // 单个账户单次同步超时
}

// SMTPConfig 定义外发邮件的 SMTP 配置，Host 为空时不真正投递
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // 默认发件地址
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server       ServerConfig
	CORS         CORSConfig
	Log          LogConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	AI           AIConfig
	Notification NotificationConfig
	Sync         SyncConfig
	SMTP         SMTPConfig
}

// Addr 返回 HTTP 监听地址
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: ONEBOX_，例如 ONEBOX_SERVER_PORT、ONEBOX_DATABASE_TYPE
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("onebox")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	durations := map[string]time.Duration{}
	for _, key := range []string{
		"server.shutdown_timeout",
		"database.conn_max_lifetime",
		"notification.timeout",
		"notification.dedupe_ttl",
		"sync.interval",
		"sync.timeout",
	} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = d
	}

	corsOrigins := parseList(v.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ShutdownTimeout: durations["server.shutdown_timeout"],
			MaxBodyBytes:    v.GetInt64("server.max_body_bytes"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
			MaxSizeMB:   v.GetInt("log.max_size_mb"),
			MaxBackups:  v.GetInt("log.max_backups"),
			MaxAgeDays:  v.GetInt("log.max_age_days"),
		},
		Database: DatabaseConfig{
			Type:            strings.ToLower(v.GetString("database.type")),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: durations["database.conn_max_lifetime"],
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		AI: AIConfig{
			Signature: v.GetString("ai.signature"),
		},
		Notification: NotificationConfig{
			Workers:   v.GetInt("notification.workers"),
			QueueSize: v.GetInt("notification.queue_size"),
			RateLimit: v.GetFloat64("notification.rate_limit"),
			Burst:     v.GetInt("notification.burst"),
			Timeout:   durations["notification.timeout"],
			DedupeTTL: durations["notification.dedupe_ttl"],
		},
		Sync: SyncConfig{
			Mode:     strings.ToLower(v.GetString("sync.mode")),
			Interval: durations["sync.interval"],
			Timeout:  durations["sync.timeout"],
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("database.type", "") // 默认为空，使用内存存储
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ai.signature", "[Your Name]")
	v.SetDefault("notification.workers", 4)
	v.SetDefault("notification.queue_size", 256)
	v.SetDefault("notification.rate_limit", 5)
	v.SetDefault("notification.burst", 10)
	v.SetDefault("notification.timeout", "10s")
	v.SetDefault("notification.dedupe_ttl", "24h")
	v.SetDefault("sync.mode", "simulated")
	v.SetDefault("sync.interval", "5m")
	v.SetDefault("sync.timeout", "1m")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "user@example.com")
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Database.Type {
	case "", "memory", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database.type: %s (supported: postgres, mysql, sqlite)", c.Database.Type)
	}
	if c.Database.Type != "" && c.Database.Type != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.type is %s", c.Database.Type)
	}
	switch c.Sync.Mode {
	case "simulated", "imap":
	default:
		return fmt.Errorf("unsupported sync.mode: %s (supported: simulated, imap)", c.Sync.Mode)
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must not be negative")
	}
	if c.Notification.Workers <= 0 {
		return fmt.Errorf("notification.workers must be positive")
	}
	if c.Notification.RateLimit <= 0 {
		return fmt.Errorf("notification.rate_limit must be positive")
	}
	return nil
}

// parseList 将逗号分隔的字符串解析为字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 文件不存在时静默跳过；已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
