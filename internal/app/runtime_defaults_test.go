package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRuntimeDefaultsFillsBlankAuthSettings(t *testing.T) {
	cfg := &Config{}

	filled, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"auth.jwt.secret": true, "auth.jwt.issuer": true}, filled)
	require.Len(t, cfg.Auth.JWT.Secret, 64)
	require.Equal(t, "comunitree", cfg.Auth.JWT.Issuer)
}

func TestApplyRuntimeDefaultsKeepsConfiguredValues(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.JWT.Secret = "configured-secret"
	cfg.Auth.JWT.Issuer = "tree-house"

	filled, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, filled)
	require.Equal(t, "configured-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "tree-house", cfg.Auth.JWT.Issuer)
}

func TestApplyRuntimeDefaultsTreatsWhitespaceSecretAsBlank(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.JWT.Secret = "   "
	cfg.Auth.JWT.Issuer = "comunitree"

	filled, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.True(t, filled["auth.jwt.secret"])
	require.False(t, filled["auth.jwt.issuer"])
	require.NotEqual(t, "   ", cfg.Auth.JWT.Secret)
}

func TestApplyRuntimeDefaultsRejectsNilConfig(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	require.EqualError(t, err, "config is nil")
}
