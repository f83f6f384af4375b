package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "kiosk"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "KIOSK_DB_DSN"
	EnvDBHost = "KIOSK_DB_HOST"
	EnvDBUser = "KIOSK_DB_USER"
	EnvDBName = "KIOSK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
