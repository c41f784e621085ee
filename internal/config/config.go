// 包 config：汇总默认值、配置文件、环境变量三层配置，得出唯一的监听地址与运行参数
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"myip/internal/resolver"
)

const (
	DefaultPath        = "config.yml"
	DefaultBindAddress = "127.0.0.1:8080"
)

// ErrInvalidBindAddress 表示监听地址不是合法的 ip:port。
var ErrInvalidBindAddress = errors.New("invalid bind address")

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enable bool `yaml:"enable"`
}

type TLSConfig struct {
	Enable   bool   `yaml:"enable"`
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Config：进程配置
// 约束：BindAddress 必须是 ip:port 字面量（不做主机名解析）；Policy 为空时使用默认策略。
type Config struct {
	BindAddress       string          `yaml:"bind_address"`
	Policy            string          `yaml:"policy"`
	ReadHeaderTimeout time.Duration   `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration   `yaml:"shutdown_timeout"`
	Log               LogConfig       `yaml:"log"`
	Metrics           MetricsConfig   `yaml:"metrics"`
	TLS               TLSConfig       `yaml:"tls"`
	Telemetry         TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		BindAddress:       DefaultBindAddress,
		Policy:            resolver.NamePeer,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		Log:               LogConfig{Level: "info", Format: "text"},
		TLS: TLSConfig{
			CertPath: "data/certs/server.crt",
			KeyPath:  "data/certs/server.key",
		},
		Telemetry: TelemetryConfig{ServiceName: "myip"},
	}
}

// 文档注释：读取 YAML 配置文件并覆盖到 cfg
// 约束：文件不存在时静默跳过并返回 false；文件存在但无法解析属于致命错误。
// 文件中未出现的键保持 cfg 原值。
func LoadFile(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return true, nil
}

// 文档注释：用环境变量覆盖配置
// 环境变量：
// ADDR                          监听地址 ip:port
// RESOLVE_POLICY                解析策略 peer|loopback
// LOG_LEVEL / LOG_FORMAT        日志级别与格式
// METRICS_ENABLE=true           暴露 /metrics
// TLS_ENABLE / TLS_CERT_PATH / TLS_KEY_PATH
// OTEL_EXPORTER_OTLP_ENDPOINT / OTEL_EXPORTER_OTLP_INSECURE
// 约束：未设置或为空的变量不覆盖；布尔值解析失败返回错误。
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("env %s: %w", key, err))
			return
		}
		*dst = b
	}

	str("ADDR", &cfg.BindAddress)
	str("RESOLVE_POLICY", &cfg.Policy)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	boolean("METRICS_ENABLE", &cfg.Metrics.Enable)
	boolean("TLS_ENABLE", &cfg.TLS.Enable)
	str("TLS_CERT_PATH", &cfg.TLS.CertPath)
	str("TLS_KEY_PATH", &cfg.TLS.KeyPath)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	boolean("OTEL_EXPORTER_OTLP_INSECURE", &cfg.Telemetry.Insecure)
	return errors.Join(errs...)
}

// ParseBindAddress 把 ip:port 字面量解析为监听地址。
func ParseBindAddress(s string) (netip.AddrPort, error) {
	ap, err := netip.ParseAddrPort(strings.TrimSpace(s))
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w %q: %v", ErrInvalidBindAddress, s, err)
	}
	return ap, nil
}

// Resolved：校验后的启动参数，交给监听器与路由使用
type Resolved struct {
	Addr   netip.AddrPort
	Policy resolver.Policy
}

// Validate 校验监听地址、解析策略与 TLS 参数。
func (c Config) Validate() (Resolved, error) {
	addr, err := ParseBindAddress(c.BindAddress)
	if err != nil {
		return Resolved{}, err
	}
	p, err := resolver.Parse(c.Policy)
	if err != nil {
		return Resolved{}, err
	}
	if c.TLS.Enable && (c.TLS.CertPath == "" || c.TLS.KeyPath == "") {
		return Resolved{}, errors.New("tls enabled but cert_path or key_path is empty")
	}
	return Resolved{Addr: addr, Policy: p}, nil
}
