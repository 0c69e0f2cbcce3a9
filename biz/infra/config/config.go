package config

import (
	"os"
	"time"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/core/stores/cache"
)

var config *Config

type Auth struct {
	SecretKey    string
	AccessExpire int64 `json:",default=604800"` // 秒
}

type Mongo struct {
	URL string
	DB  string
}

// Redis 消息总线使用的redis, 与Cache分开配置
type Redis struct {
	Addrs    []string
	Password string `json:",optional"`
}

type Bus struct {
	ClientId        string `json:",default=docflow-core-api"`
	GroupId         string `json:",default=docflow-core-api"`
	QuestionTopic   string `json:",default=docflow-question"`
	AnswerTopic     string `json:",default=docflow-answer"`
	MaxRetries      uint64 `json:",default=5"`
	MaxPayloadBytes int    `json:",default=52428800"` // 50MB
}

type Answer struct {
	Deadline     time.Duration `json:",default=30s"`
	HistoryLimit int           `json:",default=20"`
}

type Metrics struct {
	ListenOn string `json:",default=:9091"`
	Path     string `json:",default=/metrics"`
}

type Config struct {
	service.ServiceConf
	ListenOn string
	Auth     Auth
	Mongo    Mongo
	Cache    cache.CacheConf
	Redis    Redis
	Bus      Bus
	Answer   Answer
	Metrics  Metrics
}

func NewConfig() (*Config, error) {
	c := new(Config)
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "etc/config.yaml"
	}
	err := conf.Load(path, c)
	if err != nil {
		return nil, err
	}
	err = c.SetUp()
	if err != nil {
		return nil, err
	}
	config = c
	return config, nil
}

func GetConfig() *Config {
	return config
}
