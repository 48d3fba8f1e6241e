package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	DefaultAppID = "default-app-id"
	defaultBlob  = "{}"

	defaultRedisAddr = "localhost:6379"
)

// ErrNotDefined is returned when the backend configuration blob resolves to
// an empty mapping. Resolution fails fast instead of letting the first
// backend call surface the problem.
var ErrNotDefined = errors.New("configuration is not defined")

// Config is the resolved startup configuration. It is built once by Resolve
// and passed explicitly into the session and subscriber constructors; nothing
// in the client reads ambient globals.
type Config struct {
	AppID     string
	AuthToken string // pre-issued sign-in token, may be empty

	RedisAddr string
	MySQLDSN  string

	// Raw keeps every key from the blob, including ones this client does not
	// interpret.
	Raw map[string]string
}

// Resolve parses the backend configuration blob and applies defaults. The
// blob must be a JSON object with at least one key.
func Resolve(appID, blob, authToken string) (*Config, error) {
	if appID == "" {
		appID = DefaultAppID
	}
	if blob == "" {
		blob = defaultBlob
	}

	raw := make(map[string]string)
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("parse backend config: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotDefined
	}

	cfg := &Config{
		AppID:     appID,
		AuthToken: authToken,
		RedisAddr: defaultRedisAddr,
		MySQLDSN:  raw["mysqlDSN"],
		Raw:       raw,
	}
	if addr := raw["redisAddr"]; addr != "" {
		cfg.RedisAddr = addr
	}
	return cfg, nil
}

// FromEnv resolves configuration from the conventional environment
// variables, with flag values (when non-empty) taking precedence.
func FromEnv(appID, blob, authToken string) (*Config, error) {
	if appID == "" {
		appID = os.Getenv("APP_ID")
	}
	if blob == "" {
		blob = os.Getenv("BACKEND_CONFIG")
	}
	if authToken == "" {
		authToken = os.Getenv("INITIAL_AUTH_TOKEN")
	}
	return Resolve(appID, blob, authToken)
}

// CollectionPath is the namespaced path of the shared items collection.
func (c *Config) CollectionPath() string {
	return fmt.Sprintf("artifacts/%s/public/data/inventoryItems", c.AppID)
}
