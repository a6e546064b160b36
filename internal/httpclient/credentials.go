package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is per-request material merged into the outgoing call by the
// executor. A nil *Credentials means "no credentials".
type Credentials struct {
	Header map[string]string
	Query  map[string]string
}

// CredentialProvider produces credentials for a request. It must not mutate the request.
type CredentialProvider interface {
	Provide(ctx context.Context, req *Request) (*Credentials, error)
}

// CredentialProviderFunc adapts a function to CredentialProvider.
type CredentialProviderFunc func(ctx context.Context, req *Request) (*Credentials, error)

// Provide calls f.
func (f CredentialProviderFunc) Provide(ctx context.Context, req *Request) (*Credentials, error) {
	return f(ctx, req)
}

// NoCredentials is the provider used when none is configured.
var NoCredentials CredentialProvider = CredentialProviderFunc(func(context.Context, *Request) (*Credentials, error) {
	return nil, nil
})

// StaticHeader attaches the same header to every request, e.g. an API key.
type StaticHeader struct {
	Name  string
	Value string
}

// Provide implements CredentialProvider.
func (s StaticHeader) Provide(ctx context.Context, req *Request) (*Credentials, error) {
	if s.Name == "" {
		return nil, nil
	}
	return &Credentials{Header: map[string]string{s.Name: s.Value}}, nil
}

// BearerToken attaches a fixed "Authorization: Bearer" header.
func BearerToken(token string) StaticHeader {
	return StaticHeader{Name: "Authorization", Value: "Bearer " + token}
}

// JWTBearer signs a short-lived HS256 token for every request. The token
// audience is the request host.
type JWTBearer struct {
	Issuer string
	Secret []byte
	TTL    time.Duration // default: 1m

	now func() time.Time
}

// Provide implements CredentialProvider.
func (j *JWTBearer) Provide(ctx context.Context, req *Request) (*Credentials, error) {
	if len(j.Secret) == 0 {
		return nil, errors.New("jwt bearer: empty secret")
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("jwt bearer: invalid url: %w", err)
	}

	now := time.Now
	if j.now != nil {
		now = j.now
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	issuedAt := now()
	claims := jwt.RegisteredClaims{
		Issuer:    j.Issuer,
		Audience:  jwt.ClaimStrings{u.Host},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	if err != nil {
		return nil, fmt.Errorf("jwt bearer: failed to sign token: %w", err)
	}

	return &Credentials{Header: map[string]string{"Authorization": "Bearer " + token}}, nil
}
