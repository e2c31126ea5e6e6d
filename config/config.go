package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath             = "."
	defaultPortalBaseURL    = "https://developer.apple.com"
	defaultDevicePageSize   = 100
	defaultPortalTimeout    = 30 * time.Second
	defaultSecurityCodeWait = 1200 * time.Second
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// Redis backs the ephemeral cache and the pub/sub bus. When absent the
	// service falls back to the in-process cache (single-node deployments
	// and tests).
	Redis *RedisConfig `json:"redis" yaml:"redis"`

	// Portal configures the developer-portal HTTP client.
	Portal PortalConfig `json:"portal" yaml:"portal"`

	// Signer configures mobileconfig signing via the external openssl binary.
	Signer *SignerConfig `json:"signer" yaml:"signer"`

	// Assets configures where enrollment artifacts live and how they are
	// addressed from the outside.
	Assets AssetsConfig `json:"assets" yaml:"assets"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// RedisConfig defines the connection to the cache/pub-sub bus.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// PortalConfig defines developer-portal client settings.
type PortalConfig struct {
	// BaseURL is overridable for tests; production always talks to Apple.
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// DevicePageSize is the page size used when listing registered devices.
	// The portal caps registrations at 100 per account, so one page suffices.
	DevicePageSize int `json:"devicePageSize" yaml:"devicePageSize"`

	// RequestTimeout bounds every portal HTTP call.
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`

	// SecurityCodeWait bounds the blocking wait for an SMS security code.
	SecurityCodeWait time.Duration `json:"securityCodeWait" yaml:"securityCodeWait"`
}

// SignerConfig defines key material for signing mobileconfig payloads.
type SignerConfig struct {
	SignerCert   string `json:"signerCert" yaml:"signerCert"`
	SignerKey    string `json:"signerKey" yaml:"signerKey"`
	CAChain      string `json:"caChain" yaml:"caChain"`
	KeyPassword  string `json:"keyPassword" yaml:"keyPassword"`
	TemplatePath string `json:"templatePath" yaml:"templatePath"`
	SignedPath   string `json:"signedPath" yaml:"signedPath"`
}

// AssetsConfig defines artifact storage and public addressing.
type AssetsConfig struct {
	// EntryURL is the public base URL of this service, used when building
	// callback and download URLs handed to the packaging pipeline.
	EntryURL string `json:"entryUrl" yaml:"entryUrl"`

	// IncomeDir is where packaged ipa files are written and served from.
	IncomeDir string `json:"incomeDir" yaml:"incomeDir"`

	// StoreURL is where enrolled devices are redirected after registration.
	StoreURL string `json:"storeUrl" yaml:"storeUrl"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: PORTAL_BASEURL -> portal.baseUrl (not portal.baseurl)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if cfg.Portal.BaseURL == "" {
		cfg.Portal.BaseURL = defaultPortalBaseURL
	}
	if cfg.Portal.DevicePageSize <= 0 {
		cfg.Portal.DevicePageSize = defaultDevicePageSize
	}
	if cfg.Portal.RequestTimeout <= 0 {
		cfg.Portal.RequestTimeout = defaultPortalTimeout
	}
	if cfg.Portal.SecurityCodeWait <= 0 {
		cfg.Portal.SecurityCodeWait = defaultSecurityCodeWait
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
