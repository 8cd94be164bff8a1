package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	Server  ServerConfig   `mapstructure:"server"`
	MySQL   MySQLConfig    `mapstructure:"mysql"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Lmstfy  LmstfyConfig   `mapstructure:"lmstfy"`
	Workers []WorkerConfig `mapstructure:"workers"`
	Engine  EngineConfig   `mapstructure:"engine"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig HTTP 服务配置（apiserver）
type ServerConfig struct {
	Port        string        `mapstructure:"port"`
	MaxWait     time.Duration `mapstructure:"max_wait"`     // Smart Wait 上限
	CallbackTTR time.Duration `mapstructure:"callback_ttr"` // 回调消费 TTR
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Namespace     string `mapstructure:"namespace"`
	Token         string `mapstructure:"token"`
	Queue         string `mapstructure:"queue"`          // apiserver 发布预测任务的队列
	CallbackQueue string `mapstructure:"callback_queue"` // apiserver 消费回调的队列
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name"`
	QueueName     string           `mapstructure:"queue_name"`
	CallbackQueue string           `mapstructure:"callback_queue"` // 回调队列名称
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// EngineConfig 预测引擎配置（模板、模型、策略）
type EngineConfig struct {
	TemplateDir       string             `mapstructure:"template_dir"`
	ModelDir          string             `mapstructure:"model_dir"`
	WorkRoot          string             `mapstructure:"work_root"`
	CleanupWorkDir    bool               `mapstructure:"cleanup_work_dir"`
	TopN              int                `mapstructure:"top_n"`
	Parallelism       int                `mapstructure:"parallelism"`
	StrictAttribution bool               `mapstructure:"strict_attribution"`
	FullFamily        string             `mapstructure:"full_family"`
	Templates         []TemplateConfig   `mapstructure:"templates"`
	Antibiotics       []AntibioticConfig `mapstructure:"antibiotics"`
	Metadata          MetadataConfig     `mapstructure:"metadata"`
}

// TemplateConfig 特征模板文件
type TemplateConfig struct {
	Family string `mapstructure:"family"`
	File   string `mapstructure:"file"`
}

// AntibioticConfig 单个抗生素的模型对
type AntibioticConfig struct {
	Name          string `mapstructure:"name"`
	FullModel     string `mapstructure:"full_model"`
	PartialModel  string `mapstructure:"partial_model"`
	PartialFamily string `mapstructure:"partial_family"`
}

// MetadataConfig 报告中的模型元信息
type MetadataConfig struct {
	PipelineVersion string `mapstructure:"pipeline_version"`
	TrainedDate     string `mapstructure:"trained_date"`
	TrainingSamples int    `mapstructure:"training_samples"`
	CardVersion     string `mapstructure:"card_version"`
	ReferenceGenome string `mapstructure:"reference_genome"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖：AMR_MYSQL_DSN → mysql.dsn
	v.SetEnvPrefix("AMR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults 默认值
func setDefaults(v *viper.Viper) {
	// 未出现在 YAML 中的键也需要注册，AutomaticEnv 才会在 Unmarshal 时生效
	v.SetDefault("mysql.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("lmstfy.token", "")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_wait", 30*time.Second)
	v.SetDefault("server.callback_ttr", 30*time.Second)
	v.SetDefault("engine.top_n", 5)
	v.SetDefault("engine.parallelism", 3)
	v.SetDefault("engine.full_family", "full")
	v.SetDefault("engine.work_root", "/app/work")
	v.SetDefault("engine.cleanup_work_dir", true)
}

// ValidateWorker 验证 Worker 配置
func (c *Config) ValidateWorker() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	for i, w := range c.Workers {
		if w.QueueName == "" {
			return fmt.Errorf("workers[%d].queue_name is required", i)
		}
		if w.Processor.Threads <= 0 || w.Subscriber.Threads <= 0 {
			return fmt.Errorf("workers[%d] threads must be positive", i)
		}
	}
	return c.ValidateEngine()
}

// ValidateServer 验证 apiserver 配置（mysql.dsn 为空时使用进程内存储）
func (c *Config) ValidateServer() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy host is required")
	}
	if c.Lmstfy.Queue == "" || c.Lmstfy.CallbackQueue == "" {
		return fmt.Errorf("lmstfy queue and callback_queue are required")
	}
	if c.Server.MaxWait < 0 {
		return fmt.Errorf("server.max_wait must not be negative")
	}
	return nil
}

// ValidateEngine 验证引擎配置
func (c *Config) ValidateEngine() error {
	e := c.Engine
	if e.TopN <= 0 {
		return fmt.Errorf("engine.top_n must be positive")
	}
	if len(e.Templates) == 0 {
		return fmt.Errorf("engine.templates is required")
	}
	families := make(map[string]bool, len(e.Templates))
	for _, t := range e.Templates {
		if t.Family == "" || t.File == "" {
			return fmt.Errorf("engine.templates entries need family and file")
		}
		if families[t.Family] {
			return fmt.Errorf("engine.templates: duplicate family %q", t.Family)
		}
		families[t.Family] = true
	}
	if !families[e.FullFamily] {
		return fmt.Errorf("engine.full_family %q has no template", e.FullFamily)
	}
	if len(e.Antibiotics) == 0 {
		return fmt.Errorf("engine.antibiotics is required")
	}
	seen := make(map[string]bool, len(e.Antibiotics))
	for _, a := range e.Antibiotics {
		if a.Name == "" || a.FullModel == "" || a.PartialModel == "" {
			return fmt.Errorf("engine.antibiotics entries need name, full_model and partial_model")
		}
		if seen[a.Name] {
			return fmt.Errorf("engine.antibiotics: duplicate antibiotic %q", a.Name)
		}
		seen[a.Name] = true
		if !families[a.PartialFamily] {
			return fmt.Errorf("engine.antibiotics[%s]: partial_family %q has no template", a.Name, a.PartialFamily)
		}
	}
	return nil
}
