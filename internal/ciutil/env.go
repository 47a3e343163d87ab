package ciutil

import (
	"net/url"
	"os"
	"strings"
)

// Environment variables used for CI detection.
const (
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
)

// CI provider names reported by Provider.
const (
	ProviderGitHubActions = "github_actions"
	ProviderGitLab        = "gitlab"
)

// IsCI reports whether CI is set to "true" or "1".
func IsCI() bool {
	return isTrue(os.Getenv(EnvCI))
}

// IsGitHubActions returns true if the current environment is GitHub Actions.
func IsGitHubActions() bool {
	return isTrue(os.Getenv(EnvGitHubActions))
}

// IsGitLabCI returns true if the current environment is GitLab CI.
func IsGitLabCI() bool {
	return isTrue(os.Getenv(EnvGitLabCI))
}

// Provider names the CI provider, or returns "" when none is detected.
func Provider() string {
	switch {
	case IsGitHubActions():
		return ProviderGitHubActions
	case IsGitLabCI():
		return ProviderGitLab
	default:
		return ""
	}
}

func isTrue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1"
}

// MaskSensitiveValue masks credentials in values such as service URLs and
// API keys so they can be logged.
func MaskSensitiveValue(value string) string {
	if strings.Contains(value, "://") {
		if u, err := url.Parse(value); err == nil && u.User != nil {
			if _, hasPassword := u.User.Password(); hasPassword {
				u.User = url.UserPassword(u.User.Username(), "****")
				return strings.Replace(u.String(), "%2A%2A%2A%2A", "****", 1)
			}
		}
		return value
	}

	// Values that might be tokens or keys
	lower := strings.ToLower(value)
	if len(value) > 8 && (strings.Contains(lower, "key") ||
		strings.Contains(lower, "token") ||
		strings.Contains(lower, "secret")) {
		return value[:4] + "****" + value[len(value)-4:]
	}

	return value
}
