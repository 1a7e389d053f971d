package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsProductionLike reports whether the environment enforces production configuration rules.
func IsProductionLike(environment string) bool {
	return environment == EnvStaging || environment == EnvProduction
}
