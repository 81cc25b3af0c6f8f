// internal/domain/upload.go
package domain

import "time"

// UploadRequest is one parsed submission. It lives for a single invocation.
type UploadRequest struct {
	Payload        []byte
	DestinationKey string
	ContentType    string
	Size           int64
	// ClientFilename is the name the browser attached to the file part.
	ClientFilename string
}

// ServiceAccountCredential is the subset of a service-account key file the
// token minter needs.
type ServiceAccountCredential struct {
	Email        string
	PrivateKey   []byte // PEM
	PrivateKeyID string
	Scope        string
	TokenURL     string
}

// Credentials is what the credential loader resolves for one invocation.
type Credentials struct {
	Account   ServiceAccountCredential
	ProjectID string
	Bucket    string
}

// AssertionHeader is the JOSE header of a signed assertion.
type AssertionHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// AssertionClaims is the JWT-bearer claim set. Exp is always IssuedAt+3600.
type AssertionClaims struct {
	Iss   string `json:"iss"`
	Scope string `json:"scope"`
	Aud   string `json:"aud"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp"`
}

// SignedAssertion is a signed JWT in both parsed and compact form.
type SignedAssertion struct {
	Header    AssertionHeader
	Claims    AssertionClaims
	Signature []byte
	Compact   string
}

// AccessToken is a bearer token minted for exactly one upload.
type AccessToken struct {
	Value     string
	TokenType string
	Expiry    time.Time
}

// UploadResult describes a stored object.
type UploadResult struct {
	URL        string
	Key        string
	Bucket     string
	Size       int64
	Generation int64
}

// AuditRecord is one row of the upload log.
type AuditRecord struct {
	ID         string    `json:"id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	FileSize   int64     `json:"file_size" db:"file_size"`
	FileType   string    `json:"file_type" db:"file_type"`
	UploadURL  string    `json:"upload_url" db:"upload_url"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}
