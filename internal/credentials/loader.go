// Package credentials resolves the service account, bucket and project the
// upload pipeline runs as.
package credentials

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/oauth2/google"

	"github.com/andresuchdata/roadreport-upload/internal/config"
	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

// CloudPlatformScope grants full access to Google Cloud APIs.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

const serviceAccountType = "service_account"

// Loader reads credentials from the GCS section of the configuration it was
// built with. It is safe for concurrent use; every Load parses afresh.
type Loader struct {
	cfg config.GCSConfig
}

func NewLoader(cfg config.GCSConfig) *Loader {
	return &Loader{cfg: cfg}
}

func (l *Loader) Load() (*domain.Credentials, error) {
	if l.cfg.ProjectID == "" || strings.TrimSpace(l.cfg.KeyFile) == "" || l.cfg.Bucket == "" {
		return nil, domain.NewError(domain.KindMissingConfiguration, "Missing Google Cloud configuration", nil)
	}

	keyJSON, err := withServiceAccountType([]byte(l.cfg.KeyFile))
	if err != nil {
		return nil, domain.NewError(domain.KindMalformedCredential, "Malformed service account key", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(keyJSON, CloudPlatformScope)
	if err != nil {
		return nil, domain.NewError(domain.KindMalformedCredential, "Malformed service account key", err)
	}
	if jwtCfg.Email == "" {
		return nil, domain.NewError(domain.KindMalformedCredential, "Malformed service account key: missing client_email", nil)
	}
	if len(bytes.TrimSpace(jwtCfg.PrivateKey)) == 0 {
		return nil, domain.NewError(domain.KindMalformedCredential, "Malformed service account key: missing private_key", nil)
	}

	tokenURL := jwtCfg.TokenURL
	if l.cfg.TokenURL != "" {
		tokenURL = l.cfg.TokenURL
	}

	return &domain.Credentials{
		Account: domain.ServiceAccountCredential{
			Email:        jwtCfg.Email,
			PrivateKey:   unescapeNewlines(jwtCfg.PrivateKey),
			PrivateKeyID: jwtCfg.PrivateKeyID,
			Scope:        CloudPlatformScope,
			TokenURL:     tokenURL,
		},
		ProjectID: l.cfg.ProjectID,
		Bucket:    l.cfg.Bucket,
	}, nil
}

// withServiceAccountType marks a key without a "type" field as a service
// account key. Only client_email and private_key are required; an explicit
// non-service-account type is still rejected by the parser.
func withServiceAccountType(raw []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	var keyType string
	if v, ok := fields["type"]; ok {
		if err := json.Unmarshal(v, &keyType); err != nil {
			return raw, nil
		}
	}
	if keyType != "" {
		return raw, nil
	}

	fields["type"] = json.RawMessage(`"` + serviceAccountType + `"`)
	return json.Marshal(fields)
}

// unescapeNewlines undoes the `\n` escaping keys pick up when they are pasted
// into a single-line environment variable.
func unescapeNewlines(pem []byte) []byte {
	return bytes.ReplaceAll(pem, []byte(`\n`), []byte("\n"))
}
