package config

import "strings"

// Deployment environments
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// normalizeEnvironment lowercases env; empty means development
func normalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return EnvDevelopment
	}
	return env
}

// productionLike reports whether env must run against real infrastructure
func productionLike(env string) bool {
	switch normalizeEnvironment(env) {
	case EnvStaging, EnvProduction:
		return true
	}
	return false
}
