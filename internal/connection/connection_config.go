package connection

// Connect types understood by the backend Connect functions.
const (
	ConnectTypeCredential       = "withCredential"
	ConnectTypeEnv              = "withEnv"
	ConnectTypeConnectionString = "withConnectionString"
)

// AuthConfig carries how a backend connection authenticates: a connect
// type plus the matching credential material.
type AuthConfig struct {
	connectType      string
	accessKey        string
	secretKey        string
	connectionString string
}

func NewAuthConfig() *AuthConfig {
	return &AuthConfig{}
}

func (a *AuthConfig) GetConnectType() string {
	return a.connectType
}

func (a *AuthConfig) GetAccessKey() string {
	return a.accessKey
}

func (a *AuthConfig) GetSecretKey() string {
	return a.secretKey
}

func (a *AuthConfig) GetConnectionString() string {
	return a.connectionString
}

func (a *AuthConfig) SetConnectType(connectType string) {
	a.connectType = connectType
}

func (a *AuthConfig) SetAccessKey(accessKey string) {
	a.accessKey = accessKey
}

func (a *AuthConfig) SetSecretKey(secretKey string) {
	a.secretKey = secretKey
}

func (a *AuthConfig) SetConnectionString(connectionString string) {
	a.connectionString = connectionString
}
