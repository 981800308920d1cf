package app

import "github.com/charlesng35/notifier/internal/auth"

// TokenConfig converts AuthConfig into the parameters expected by the token service.
func (c AuthConfig) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		Audience:       c.JWT.Audience,
		AccessTokenTTL: c.JWT.TTL,
		Leeway:         c.JWT.Leeway,
	}
}
