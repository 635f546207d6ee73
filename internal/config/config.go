package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/asyncdoc/internal/topic"
)

const defaultConfigRelPath = ".asyncdoc/config.yaml"

type MQTTConfig struct {
	BrokerURL string   `yaml:"broker_url"`
	ClientID  string   `yaml:"client_id"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Topics    []string `yaml:"topics"`
	QoS       int      `yaml:"qos"`
}

type GeneratorConfig struct {
	ChannelMode      string `yaml:"channel_mode"`
	Dialect          string `yaml:"dialect"`
	IncludeExamples  bool   `yaml:"include_examples"`
	CollisionPolicy  string `yaml:"collision_policy"`
	MinParamVariants int    `yaml:"min_param_variants"`
}

type InfoConfig struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type ServerEndpoint struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Protocol    string `yaml:"protocol"`
	Description string `yaml:"description"`
}

type FilterConfig struct {
	IgnoreTopics   []string `yaml:"ignore_topics"`
	IgnorePrefixes []string `yaml:"ignore_prefixes"`
}

type SanitizeConfig struct {
	Fields      []string `yaml:"fields"`
	Replacement string   `yaml:"replacement"`
}

type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	MQTT          MQTTConfig       `yaml:"mqtt"`
	Generator     GeneratorConfig  `yaml:"generator"`
	Substitutions []topic.Rule     `yaml:"substitutions"`
	Info          InfoConfig       `yaml:"info"`
	Servers       []ServerEndpoint `yaml:"servers"`
	Filter        FilterConfig     `yaml:"filter"`
	Sanitize      SanitizeConfig   `yaml:"sanitize"`
	Output        OutputConfig     `yaml:"output"`
	Server        ServerConfig     `yaml:"server"`
	Log           LogConfig        `yaml:"log"`
}

// Load loads YAML config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.MQTT.BrokerURL == "" {
		c.MQTT.BrokerURL = "tcp://127.0.0.1:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "asyncdoc"
	}
	if len(c.MQTT.Topics) == 0 {
		c.MQTT.Topics = []string{"#"}
	}
	if c.Generator.ChannelMode == "" {
		c.Generator.ChannelMode = "verbose"
	}
	if c.Generator.Dialect == "" {
		c.Generator.Dialect = "a"
	}
	if c.Generator.CollisionPolicy == "" {
		c.Generator.CollisionPolicy = "merge"
	}
	if c.Generator.MinParamVariants == 0 {
		c.Generator.MinParamVariants = topic.DefaultMinVariants
	}
	if c.Info.Title == "" {
		c.Info.Title = "Sampled API"
	}
	if c.Info.Version == "" {
		c.Info.Version = "0.1.0"
	}
	if len(c.Filter.IgnorePrefixes) == 0 {
		c.Filter.IgnorePrefixes = []string{"$SYS/"}
	}
	if len(c.Sanitize.Fields) == 0 {
		c.Sanitize.Fields = []string{"password", "secret", "token", "api_key", "access_token", "credential"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{"yaml", "json"}
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.Generator.ChannelMode {
	case "verbose", "parameterized":
	default:
		return fmt.Errorf("generator.channel_mode must be verbose or parameterized, got %q", c.Generator.ChannelMode)
	}
	switch c.Generator.Dialect {
	case "a", "b":
	default:
		return fmt.Errorf("generator.dialect must be a or b, got %q", c.Generator.Dialect)
	}
	switch c.Generator.CollisionPolicy {
	case "merge", "suffix":
	default:
		return fmt.Errorf("generator.collision_policy must be merge or suffix, got %q", c.Generator.CollisionPolicy)
	}
	for i, rule := range c.Substitutions {
		if rule.Parameter == "" {
			return fmt.Errorf("substitutions[%d]: parameter name cannot be empty", i)
		}
		if rule.LevelIndex < 0 {
			return fmt.Errorf("substitutions[%d]: level_index cannot be negative", i)
		}
	}
	return nil
}

// ValidateGenerate enforces generate-specific requirements.
func (c *Config) ValidateGenerate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir cannot be empty")
	}
	return ensureWritableDir(c.Output.Dir)
}

// ValidateListen enforces live-capture requirements.
func (c *Config) ValidateListen() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.MQTT.BrokerURL) == "" {
		return errors.New("mqtt.broker_url cannot be empty")
	}
	if len(c.MQTT.Topics) == 0 {
		return errors.New("mqtt.topics cannot be empty")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) {
	setString(&c.MQTT.BrokerURL, "ASYNCDOC_MQTT_BROKER_URL")
	setString(&c.MQTT.ClientID, "ASYNCDOC_MQTT_CLIENT_ID")
	setString(&c.MQTT.Username, "ASYNCDOC_MQTT_USERNAME")
	setString(&c.MQTT.Password, "ASYNCDOC_MQTT_PASSWORD")
	setString(&c.Generator.ChannelMode, "ASYNCDOC_CHANNEL_MODE")
	setString(&c.Generator.Dialect, "ASYNCDOC_DIALECT")
	setString(&c.Generator.CollisionPolicy, "ASYNCDOC_COLLISION_POLICY")
	setString(&c.Output.Dir, "ASYNCDOC_OUTPUT_DIR")
	setString(&c.Server.Host, "ASYNCDOC_SERVER_HOST")
	setInt(&c.Server.Port, "ASYNCDOC_SERVER_PORT")
	setString(&c.Log.Level, "ASYNCDOC_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
