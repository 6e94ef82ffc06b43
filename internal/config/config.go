package config

type Config interface {
	EnvConfig
	RoutesConfig
	RealtimeConfig
	WorkerConfig
	FederatedConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetLogLevel() string
	GetRequestTimeout() string
}

type mainConfig struct {
	EnvVars
	Routes
	Realtime
	Worker
	Federated
}

func New() Config {
	return mainConfig{}
}
