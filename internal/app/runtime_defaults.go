package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/comunitree/pkg/crypto"
)

const (
	jwtSecretBytes = 48
	defaultIssuer  = "comunitree"
)

// ApplyRuntimeDefaults fills settings the server cannot start without when the loaded
// configuration leaves them blank. The returned set names each key that was filled in; values
// are never included.
//
// A generated JWT secret lives only as long as the process, so tokens issued before a restart
// are rejected afterwards.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	filled := map[string]bool{}

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		filled["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.Auth.JWT.Issuer) == "" {
		cfg.Auth.JWT.Issuer = defaultIssuer
		filled["auth.jwt.issuer"] = true
	}

	return filled, nil
}
