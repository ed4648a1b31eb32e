package auth

// Config holds auth configuration
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
}
