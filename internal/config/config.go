package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Log      LogConfig               `mapstructure:"log"`
	SSH      SSHConfig               `mapstructure:"ssh"`
	Database DatabaseConfig          `mapstructure:"database"`
	Storage  StorageConfig           `mapstructure:"storage"`
	ASA      ASAConfig               `mapstructure:"asa"`
	Devices  map[string]DeviceConfig `mapstructure:"devices"`
	Simulate SimulateConfig          `mapstructure:"simulate"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SSHConfig SSH 会话配置
type SSHConfig struct {
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
	PromptTimeout     time.Duration `mapstructure:"prompt_timeout"`
	QuietPeriod       time.Duration `mapstructure:"quiet_period"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	MaxSessions       int           `mapstructure:"max_sessions"`
	Concurrent        int           `mapstructure:"concurrent"`
	// ConcurrencyProfile 并发档位（S/M/L/XL），设置后覆盖 Concurrent
	ConcurrencyProfile string `mapstructure:"concurrency_profile"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite 配置
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig 命令输出归档配置
type StorageConfig struct {
	// Backend local 或 minio
	Backend string             `mapstructure:"backend"`
	Prefix  string             `mapstructure:"prefix"`
	Local   LocalStorageConfig `mapstructure:"local"`
	Minio   MinioConfig        `mapstructure:"minio"`
}

// LocalStorageConfig 本地归档目录
type LocalStorageConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	MkdirIfMissing bool   `mapstructure:"mkdir_if_missing"`
}

// MinioConfig MinIO 配置
type MinioConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// ASAConfig ASA 平台默认值
type ASAConfig struct {
	EnablePassword string   `mapstructure:"enable_password"`
	Encodings      []string `mapstructure:"output_encoding_fallback"`
}

// DeviceConfig 设备清单条目
type DeviceConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	EnablePassword string `mapstructure:"enable_password"`
	Platform       string `mapstructure:"platform"`
}

// SimulateConfig 内置模拟器
type SimulateConfig struct {
	Enable     bool   `mapstructure:"enable"`
	ConfigPath string `mapstructure:"config_path"`
}

var globalConfig *Config

var concurrencyProfiles = map[string]int{
	"S":  8,  // 2c4g
	"M":  16, // 4c8g
	"L":  32, // 8c16g
	"XL": 64, // 16c32g
}

// Load 加载配置文件；configPath 为空时按默认目录查找
func Load(configPath string) (*Config, error) {
	viper.Reset()
	viper.SetConfigType("yaml")

	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("../configs")
		viper.AddConfigPath("../../configs")
	}

	// 环境变量覆盖，例如 NETDEV_SSH_COMMAND_TIMEOUT
	viper.SetEnvPrefix("NETDEV")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = replaceEnvVars(config)
	applyConcurrencyProfile(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &config
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", 60*time.Second)
	viper.SetDefault("server.write_timeout", 300*time.Second)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "console")
	viper.SetDefault("log.file_path", "./logs/netdev.log")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age", 30)

	viper.SetDefault("ssh.connect_timeout", 10*time.Second)
	viper.SetDefault("ssh.command_timeout", 60*time.Second)
	viper.SetDefault("ssh.prompt_timeout", 10*time.Second)
	viper.SetDefault("ssh.quiet_period", 100*time.Millisecond)
	viper.SetDefault("ssh.keep_alive_interval", 30*time.Second)
	viper.SetDefault("ssh.idle_timeout", 10*time.Minute)
	viper.SetDefault("ssh.cleanup_interval", 30*time.Second)
	viper.SetDefault("ssh.max_sessions", 100)
	viper.SetDefault("ssh.concurrent", 8)

	viper.SetDefault("database.sqlite.path", "./data/netdev.db")
	viper.SetDefault("database.sqlite.max_idle_conns", 5)
	viper.SetDefault("database.sqlite.max_open_conns", 1)
	viper.SetDefault("database.sqlite.conn_max_lifetime", time.Hour)

	viper.SetDefault("storage.backend", "local")
	viper.SetDefault("storage.prefix", "outputs")
	viper.SetDefault("storage.local.base_dir", "./data/outputs")
	viper.SetDefault("storage.local.mkdir_if_missing", true)

	viper.SetDefault("simulate.enable", false)
	viper.SetDefault("simulate.config_path", "simulate/simulate.yaml")
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case "", "local", "minio":
	default:
		return fmt.Errorf("invalid storage.backend %q", c.Storage.Backend)
	}
	for name, d := range c.Devices {
		if strings.TrimSpace(d.Host) == "" {
			return fmt.Errorf("device %q: host is required", name)
		}
	}
	return nil
}

// Device 按名称查找设备清单
func (c *Config) Device(name string) (DeviceConfig, bool) {
	d, ok := c.Devices[name]
	return d, ok
}

// EnablePasswordFor 设备未配置 enable 密码时回落到 asa.enable_password
func (c *Config) EnablePasswordFor(d DeviceConfig) string {
	if d.EnablePassword != "" {
		return d.EnablePassword
	}
	return c.ASA.EnablePassword
}

// replaceEnvVars 展开 ${VAR} 形式的密码，避免明文写入配置文件
func replaceEnvVars(config Config) Config {
	config.ASA.EnablePassword = expandEnv(config.ASA.EnablePassword)
	config.Storage.Minio.AccessKey = expandEnv(config.Storage.Minio.AccessKey)
	config.Storage.Minio.SecretKey = expandEnv(config.Storage.Minio.SecretKey)
	for name, d := range config.Devices {
		d.Password = expandEnv(d.Password)
		d.EnablePassword = expandEnv(d.EnablePassword)
		config.Devices[name] = d
	}
	return config
}

func expandEnv(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(v, "${"), "}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}
	return v
}

func applyConcurrencyProfile(cfg *Config) {
	p := strings.ToUpper(strings.TrimSpace(cfg.SSH.ConcurrencyProfile))
	if p == "" {
		return
	}
	if after, ok := strings.CutPrefix(p, "CONCURRENCY-"); ok {
		p = after
	}
	if n, ok := concurrencyProfiles[p]; ok {
		cfg.SSH.Concurrent = n
	}
}
