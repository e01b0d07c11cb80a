package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/dohr-michael/arena/internal/config"
	"github.com/dohr-michael/arena/internal/secrets"
)

// driverEnv lists the environment variables consulted per driver when the
// provider config carries no key.
var driverEnv = map[string][]string{
	"anthropic": {"ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"mistral":   {"MISTRAL_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// ResolveAuth resolves the API key for a provider.
// Resolution order: api_key (literal or ${VAR}) → driver default env.
// Values wrapped as ENC[age:...] are decrypted with keyring; a nil keyring
// leaves them undecryptable.
func ResolveAuth(cfg config.ProviderConfig, keyring *secrets.Keyring) (string, error) {
	reveal := func(v string) (string, error) {
		if !secrets.IsEncrypted(v) {
			return v, nil
		}
		if keyring == nil {
			return "", fmt.Errorf("encrypted api key for driver %q but no age key configured", cfg.Driver)
		}
		plain, err := keyring.Reveal(v)
		if err != nil {
			return "", fmt.Errorf("decrypt api key: %w", err)
		}
		return plain, nil
	}

	if key := expandVar(cfg.Auth.APIKey); key != "" {
		return reveal(key)
	}

	driver := strings.ToLower(cfg.Driver)
	vars, ok := driverEnv[driver]
	if !ok {
		return "", fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}
	for _, name := range vars {
		if key := os.Getenv(name); key != "" {
			return reveal(key)
		}
	}
	return "", fmt.Errorf("%s not set", strings.Join(vars, " or "))
}

// expandVar resolves a "${VAR}" reference; other values are returned trimmed.
func expandVar(v string) string {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		return os.Getenv(trimmed[2 : len(trimmed)-1])
	}
	return trimmed
}
