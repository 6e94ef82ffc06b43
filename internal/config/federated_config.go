package config

type FederatedConfig interface {
	GetGoogleIssuer() string
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
}

type Federated struct{}

var _ FederatedConfig = Federated{}

func (Federated) GetGoogleIssuer() string {
	return "https://accounts.google.com"
}

func (Federated) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (Federated) GetGoogleClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

func (Federated) GetGoogleRedirectURL() string {
	return GetEnv("GOOGLE_REDIRECT_URL", "http://localhost:8085/callback")
}
