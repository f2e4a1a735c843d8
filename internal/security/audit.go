// Package security reviews the runtime configuration for settings that weaken a deployment.
package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/comunitree/internal/app"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	minSecretBytes         = 32
	recommendedSecretBytes = 48
	maxRecommendedTTL      = 7 * 24 * time.Hour
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a per-status count.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Findings returns the checks that did not pass.
func (r Result) Findings() []Check {
	var out []Check
	for _, check := range r.Checks {
		if check.Status != StatusPass {
			out = append(out, check)
		}
	}
	return out
}

// Audit evaluates cfg. generated lists configuration keys that were filled in at runtime.
func Audit(cfg *app.Config, generated map[string]bool, now time.Time) Result {
	var checks []Check
	if cfg == nil {
		checks = []Check{{
			ID:          "config_loaded",
			Status:      StatusFail,
			Message:     "Configuration not loaded.",
			Remediation: "Load configuration before running the security audit.",
		}}
	} else {
		secretGenerated := generated["auth.jwt.secret"]
		checks = []Check{
			checkJWTSecret(cfg.Auth.JWT.Secret, secretGenerated),
			checkTokenTTL(cfg.Auth.JWT.TTL),
			checkCORS(cfg.Server.CORSOrigins),
			checkRateLimit(cfg.Server.RateLimit),
			checkHSTS(cfg.Server.HSTS),
		}
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{CheckedAt: now.UTC(), Checks: checks, Summary: summary}
}

func checkJWTSecret(secret string, generated bool) Check {
	length := len(strings.TrimSpace(secret))
	switch {
	case length == 0:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: fmt.Sprintf("Provide a random signing secret of at least %d bytes.", minSecretBytes),
		}
	case generated:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     "JWT signing secret was generated at start-up; issued tokens stop working after a restart.",
			Remediation: "Set COMUNITREE_AUTH_JWT_SECRET to a persistent random value.",
			Details:     map[string]any{"length": length},
		}
	case length < minSecretBytes:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: fmt.Sprintf("Use a randomly generated secret of at least %d bytes.", minSecretBytes),
		}
	case length < recommendedSecretBytes:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to %d+ bytes.", length, recommendedSecretBytes),
			Remediation: fmt.Sprintf("Increase the length of COMUNITREE_AUTH_JWT_SECRET to at least %d bytes.", recommendedSecretBytes),
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      "jwt_secret_strength",
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func checkTokenTTL(ttl time.Duration) Check {
	if ttl > maxRecommendedTTL {
		return Check{
			ID:          "access_token_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Access token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommendedTTL),
			Remediation: "Reduce auth.jwt.access_token_ttl; tokens cannot be revoked before they expire.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}
	return Check{ID: "access_token_ttl", Status: StatusPass, Message: fmt.Sprintf("Access token TTL is %s.", ttl)}
}

func checkCORS(origins []string) Check {
	configured := 0
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			configured = 0
			break
		}
		if origin != "" {
			configured++
		}
	}
	if configured == 0 {
		return Check{
			ID:          "cors_origins",
			Status:      StatusWarn,
			Message:     "Cross-origin requests are accepted from any origin.",
			Remediation: "List the web client origins in server.cors_origins.",
		}
	}
	return Check{
		ID:      "cors_origins",
		Status:  StatusPass,
		Message: fmt.Sprintf("%d allowed origins configured.", configured),
	}
}

func checkRateLimit(cfg app.RateLimitConfig) Check {
	if !cfg.Enabled || cfg.Requests <= 0 {
		return Check{
			ID:          "rate_limit",
			Status:      StatusWarn,
			Message:     "API rate limiting is disabled.",
			Remediation: "Enable server.rate_limit to slow credential stuffing against /api/auth/login.",
		}
	}
	return Check{
		ID:      "rate_limit",
		Status:  StatusPass,
		Message: fmt.Sprintf("API limited to %d requests per %s.", cfg.Requests, cfg.Window),
	}
}

func checkHSTS(enabled bool) Check {
	if !enabled {
		return Check{
			ID:          "hsts",
			Status:      StatusWarn,
			Message:     "Strict-Transport-Security header is not sent.",
			Remediation: "Enable server.hsts when the API is served over HTTPS.",
		}
	}
	return Check{ID: "hsts", Status: StatusPass, Message: "Strict-Transport-Security enabled."}
}
