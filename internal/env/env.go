package env

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)
