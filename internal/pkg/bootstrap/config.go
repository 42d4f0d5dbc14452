// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pinhub/internal/pkg/logger"
)

// Config 是进程级配置。在 Init 中加载一次，之后作为不可变值
// 传入各个组件的构造函数，业务逻辑内部不允许读取环境变量。
type Config struct {
	App struct {
		BaseURL       string        `yaml:"base_url"`       // 对外可达地址，用于拼 notify/return URL
		AdminUsers    []string      `yaml:"admin_users"`    // 管理员用户名（大小写不敏感）
		GroupFee      float64       `yaml:"group_fee"`      // 发布一个拼团的费用
		GroupReward   float64       `yaml:"group_reward"`   // 成团后每人的奖励
		ExpiryHours   int           `yaml:"expiry_hours"`   // 拼团有效时长（小时）
		SweepInterval time.Duration `yaml:"sweep_interval"` // 到期清理轮询周期
		ProofRule     string        `yaml:"proof_rule"`     // 凭证自动筛查的 CEL 规则，空表示不启用
	} `yaml:"app"`

	Gateway struct {
		MerchantID    string        `yaml:"merchant_id"`
		MerchantKey   string        `yaml:"merchant_key"`
		PayURL        string        `yaml:"pay_url"`
		RefundURL     string        `yaml:"refund_url"`
		RefundTimeout time.Duration `yaml:"refund_timeout"`
	} `yaml:"gateway"`

	Infra struct {
		Mysql struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
		Zookeeper struct {
			Addrs []string `yaml:"addrs"`
		} `yaml:"zookeeper"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Enable    bool   `yaml:"enable"`
			Addrs     string `yaml:"addrs"`
			Namespace string `yaml:"namespace"`
			Group     string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var currentConfig *Config

// Init 加载配置文件并应用环境变量覆盖。必须在进程启动时调用一次。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "configs/config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			logger.Logger.Fatal().Err(err).Str("path", path).Msg("failed to parse config file")
		}
	} else {
		logger.Logger.Warn().Str("path", path).Msg("config file not found, using defaults and env")
	}

	applyEnvOverrides(cfg)
	currentConfig = cfg
}

// GetCurrentConfig 返回进程配置。Init 之前调用会直接退出。
func GetCurrentConfig() *Config {
	if currentConfig == nil {
		logger.Logger.Fatal().Msg("bootstrap.Init must be called before GetCurrentConfig")
	}
	return currentConfig
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.BaseURL = "http://localhost:8080"
	cfg.App.AdminUsers = []string{"admin"}
	cfg.App.GroupFee = 4
	cfg.App.GroupReward = 2
	cfg.App.ExpiryHours = 24
	cfg.App.SweepInterval = 5 * time.Minute
	cfg.Gateway.PayURL = "https://credit.linux.do/epay/pay/submit.php"
	cfg.Gateway.RefundURL = "https://credit.linux.do/epay/api.php"
	cfg.Gateway.RefundTimeout = 10 * time.Second
	cfg.Infra.Mysql.Host = "localhost"
	cfg.Infra.Mysql.Port = 3306
	cfg.Infra.Mysql.User = "root"
	cfg.Infra.Mysql.Database = "pinhub"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.Topic = "group-lifecycle-events"
	cfg.Infra.Zookeeper.Addrs = []string{"localhost:2181"}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.Addrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.App.BaseURL, "BASE_URL")
	setString(&cfg.Gateway.MerchantID, "MERCHANT_ID")
	setString(&cfg.Gateway.MerchantKey, "MERCHANT_KEY")
	setString(&cfg.Gateway.PayURL, "PAY_URL")
	setString(&cfg.Gateway.RefundURL, "REFUND_URL")
	setString(&cfg.Infra.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	setString(&cfg.Infra.Nacos.Addrs, "NACOS_SERVER_ADDRS")
	setString(&cfg.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	setString(&cfg.Infra.Nacos.Group, "NACOS_GROUP")
	setString(&cfg.Infra.Mysql.Host, "MYSQL_HOST")
	setString(&cfg.Infra.Mysql.User, "MYSQL_USER")
	setString(&cfg.Infra.Mysql.Password, "MYSQL_PASSWORD")
	setString(&cfg.Infra.Mysql.Database, "MYSQL_DATABASE")

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("ZK_ADDRS"); ok {
		cfg.Infra.Zookeeper.Addrs = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("ADMIN_USERS"); ok {
		var admins []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				admins = append(admins, u)
			}
		}
		if len(admins) > 0 {
			cfg.App.AdminUsers = admins
		}
	}
	setFloat(&cfg.App.GroupFee, "GROUP_FEE")
	setFloat(&cfg.App.GroupReward, "GROUP_REWARD")
	if v, ok := os.LookupEnv("GROUP_EXPIRY_HOURS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.ExpiryHours = n
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
