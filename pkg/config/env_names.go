package config

// EnvPrefix namespaces every environment variable this service reads.
const EnvPrefix = "HIRELOCAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "HIRELOCAL_DB_DSN"
	EnvDBHost = "HIRELOCAL_DB_HOST"
	EnvDBUser = "HIRELOCAL_DB_USER"
	EnvDBName = "HIRELOCAL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
