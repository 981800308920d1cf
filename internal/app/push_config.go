package app

import (
	"strings"

	"github.com/charlesng35/notifier/internal/push"
)

// Credentials converts the push section into firebase credentials. A disabled
// push section yields empty credentials.
func (c PushConfig) Credentials() push.Credentials {
	if !c.Enabled {
		return push.Credentials{}
	}
	return push.Credentials{
		ProjectID:       strings.TrimSpace(c.ProjectID),
		CredentialsFile: strings.TrimSpace(c.CredentialsFile),
		CredentialsJSON: strings.TrimSpace(c.CredentialsJSON),
		ClientEmail:     strings.TrimSpace(c.ClientEmail),
		PrivateKey:      c.PrivateKey,
		PrivateKeyID:    strings.TrimSpace(c.PrivateKeyID),
		ClientID:        strings.TrimSpace(c.ClientID),
	}
}
