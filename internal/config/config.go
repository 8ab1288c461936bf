package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type TelegramConfig struct {
	ApiKey        string  `yaml:"api_key" env-default:""`
	Channel       int64   `yaml:"channel" env-default:"0"`
	ChannelName   string  `yaml:"channel_name" env-default:""`
	OperatorGroup int64   `yaml:"operator_group" env-default:"0"`
	AdminIds      []int64 `yaml:"admin_ids"`
	CardNumber    string  `yaml:"card_number" env-default:""`
}

type MySqlConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:""`
	Prefix   string `yaml:"prefix" env-default:""`
	Location string `yaml:"location" env-default:"UTC"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:""`
}

type FeedbackConfig struct {
	WindowDays int `yaml:"window_days" env-default:"3"`
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	MySql    MySqlConfig    `yaml:"mysql"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Listen   Listen         `yaml:"listen"`
	ApiToken string         `yaml:"api_token" env-default:""`
	Env      string         `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
