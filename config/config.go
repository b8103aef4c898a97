package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config はアプリケーションの設定情報を保持する構造体です。
// `config.yaml`（カレントディレクトリ）と環境変数 URIAGE_* から読み込みます。
type Config struct {
	Port        int    `mapstructure:"port"`
	DBPath      string `mapstructure:"dbPath"`
	DownloadDir string `mapstructure:"downloadDir"`
	// 楽天RMSのポータルダウンロード用認証情報
	RMSUserID   string `mapstructure:"rmsUserId"`
	RMSPassword string `mapstructure:"rmsPassword"`
}

// Load reads config.yaml and environment overrides. A missing file is not
// an error (first startup); missing keys fall back to defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("port", 8080)
	v.SetDefault("dbPath", "./uriage.db")
	v.SetDefault("downloadDir", "./download")

	v.SetEnvPrefix("URIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
