package postgres

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Params holds PostgreSQL connection settings.
// Parsed from core.AdapterConfig.Params using mapstructure. Ignored when
// core.AdapterConfig.Path holds a connection string.
type Params struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

func parseParams(raw map[string]any) (*Params, error) {
	params := &Params{}
	if len(raw) == 0 {
		return params, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           params,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid postgres params: %w", err)
	}
	return params, nil
}

// buildPostgresDSN constructs a PostgreSQL connection string. A non-empty
// cfg.Path is used as-is.
func buildPostgresDSN(cfg core.AdapterConfig, params *Params) string {
	if strings.TrimSpace(cfg.Path) != "" {
		return cfg.Path
	}

	host := params.Host
	if host == "" {
		host = "localhost"
	}

	port := params.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, params.Database, sslmode)

	if params.User != "" {
		dsn += fmt.Sprintf(" user=%s", params.User)
	}
	if params.Password != "" {
		dsn += fmt.Sprintf(" password=%s", params.Password)
	}

	return dsn
}
