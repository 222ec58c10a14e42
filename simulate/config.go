package simulate

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 模拟 ASA 设备配置
type Config struct {
	Listen       string            `mapstructure:"listen" yaml:"listen"`
	Hostname     string            `mapstructure:"hostname" yaml:"hostname"`
	Username     string            `mapstructure:"username" yaml:"username"`
	Password     string            `mapstructure:"password" yaml:"password"`
	EnableSecret string            `mapstructure:"enable_secret" yaml:"enable_secret"`
	Mode         string            `mapstructure:"mode" yaml:"mode"`
	Contexts     []string          `mapstructure:"contexts" yaml:"contexts"`
	LoginContext string            `mapstructure:"login_context" yaml:"login_context"`
	IdleTimeout  time.Duration     `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxConn      int               `mapstructure:"max_conn" yaml:"max_conn"`
	HostKeyFile  string            `mapstructure:"host_key_file" yaml:"host_key_file"`
	OutputDir    string            `mapstructure:"output_dir" yaml:"output_dir"`
	Outputs      map[string]string `mapstructure:"outputs" yaml:"outputs"`
	// BannerLines 登录后、首个提示符前输出的空行数
	BannerLines int `mapstructure:"banner_lines" yaml:"banner_lines"`
}

const (
	ModeSingle   = "single"
	ModeMultiple = "multiple"
)

// DefaultConfig 单模式、回环地址随机端口
func DefaultConfig() Config {
	return Config{
		Listen:       "127.0.0.1:0",
		Hostname:     "ciscoasa",
		Username:     "admin",
		Password:     "admin",
		EnableSecret: "cisco",
		Mode:         ModeSingle,
	}
}

// Multiple 多上下文模式
func (c Config) Multiple() bool {
	return c.Mode == ModeMultiple
}

func (c Config) hasContext(name string) bool {
	for _, n := range c.Contexts {
		if n == name {
			return true
		}
	}
	return false
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Hostname == "" {
		return fmt.Errorf("simulate: hostname is required")
	}
	switch c.Mode {
	case ModeSingle, ModeMultiple:
	default:
		return fmt.Errorf("simulate: invalid mode %q", c.Mode)
	}
	if c.LoginContext != "" {
		if !c.Multiple() {
			return fmt.Errorf("simulate: login_context requires multiple mode")
		}
		if !c.hasContext(c.LoginContext) {
			return fmt.Errorf("simulate: login_context %q is not in contexts", c.LoginContext)
		}
	}
	return nil
}

// LoadConfig 读取模拟器 YAML 配置，缺省字段取 DefaultConfig
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	def := DefaultConfig()
	v.SetDefault("listen", def.Listen)
	v.SetDefault("hostname", def.Hostname)
	v.SetDefault("username", def.Username)
	v.SetDefault("password", def.Password)
	v.SetDefault("enable_secret", def.EnableSecret)
	v.SetDefault("mode", def.Mode)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read simulate config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simulate config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
