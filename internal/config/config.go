package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // 指定があればDSNとして最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string // sslmode（disable）

	OrderTxTimeout time.Duration // 注文トランザクションの上限時間

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	cfg.PostgresPort = pgPort

	txSecs, err := atoiDefault("ORDER_TX_TIMEOUT_SECONDS", 5)
	if err != nil {
		return Config{}, err
	}
	if txSecs <= 0 {
		return Config{}, fmt.Errorf("ORDER_TX_TIMEOUT_SECONDS must be > 0")
	}
	cfg.OrderTxTimeout = time.Duration(txSecs) * time.Second

	//必須チェック（DATABASE_URLがあれば個別のPOSTGRES_*は不要）
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
