package affiliate

import (
	"fmt"
	"os"
	"strings"
)

// Credentials identify the application to the provider. AppID is sent on the
// wire; Secret only ever keys the HMAC.
type Credentials struct {
	AppID  string
	Secret string
}

// String redacts the secret so credentials are safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AppID:%s Secret:[redacted]}", c.AppID)
}

// Source looks up named configuration values.
type Source interface {
	Lookup(name string) (string, bool)
}

// EnvSource reads from the process environment.
type EnvSource struct{}

// Lookup implements Source.
func (EnvSource) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapSource reads from a fixed map.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Sources chains several sources; for each name the first source holding a
// non-empty value wins.
type Sources []Source

// Lookup implements Source.
func (s Sources) Lookup(name string) (string, bool) {
	for _, src := range s {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(name); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// CredentialNames lists, in priority order, the configuration names checked
// for each credential.
type CredentialNames struct {
	AppID  []string
	Secret []string
}

// DefaultCredentialNames returns the names used by existing deployments.
func DefaultCredentialNames() CredentialNames {
	return CredentialNames{
		AppID:  []string{"SHOPEE_APP_ID", "ID_do_aplicativo_da_SHOPEE"},
		Secret: []string{"SHOPEE_API_KEY", "CHAVE_API_SHOPEE"},
	}
}

// ResolveCredentials checks names in order and returns the first present,
// non-empty value for each credential. It fails with ErrConfiguration
// unless both values are found.
func ResolveCredentials(src Source, names CredentialNames) (Credentials, error) {
	appID, appOK := firstValue(src, names.AppID)
	secret, secretOK := firstValue(src, names.Secret)

	var missing []string
	if !appOK {
		missing = append(missing, "app id (tried "+strings.Join(names.AppID, ", ")+")")
	}
	if !secretOK {
		missing = append(missing, "secret (tried "+strings.Join(names.Secret, ", ")+")")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf(
			"%w: missing credentials: %s",
			ErrConfiguration,
			strings.Join(missing, "; "),
		)
	}

	return Credentials{AppID: appID, Secret: secret}, nil
}

func firstValue(src Source, names []string) (string, bool) {
	if src == nil {
		return "", false
	}
	for _, name := range names {
		if v, ok := src.Lookup(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}
