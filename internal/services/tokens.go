package services

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
)

// TokenConfig points the verifier at the external identity provider. When
// JWKSURL is empty the issuer's openid-configuration document is used to
// discover it.
type TokenConfig struct {
	Issuer   string        `env:"ISSUER,required"`
	Audience string        `env:"AUDIENCE"`
	JWKSURL  string        `env:"JWKS_URL"`
	Skew     time.Duration `env:"CLOCK_SKEW" envDefault:"60s"`
	JWKSTTL  time.Duration `env:"JWKS_TTL" envDefault:"6h"`
}

// TokenVerifier checks a bearer token's signature and claims against the
// configured issuer and returns the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*requestdata.Identity, error)
}

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type tokenVerifier struct {
	cfg        TokenConfig
	log        *logger.Logger
	httpClient *http.Client
	parser     *jwt.Parser

	mu        sync.RWMutex
	keys      map[string]crypto.PublicKey
	jwksURL   string
	fetchedAt time.Time
}

func NewTokenVerifier(cfg TokenConfig, baseLog *logger.Logger) TokenVerifier {
	if cfg.Skew <= 0 {
		cfg.Skew = 60 * time.Second
	}
	if cfg.JWKSTTL <= 0 {
		cfg.JWKSTTL = 6 * time.Hour
	}
	return &tokenVerifier{
		cfg:        cfg,
		log:        baseLog.With("service", "TokenVerifier"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "ES256"}),
			jwt.WithoutClaimsValidation(),
		),
		keys: map[string]crypto.PublicKey{},
	}
}

func (v *tokenVerifier) Verify(ctx context.Context, rawToken string) (*requestdata.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	token, err := v.parser.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing kid header")
		}
		return v.keyForKid(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", ErrTokenInvalid)
	}

	if err := v.validateTimeClaims(claims); err != nil {
		return nil, err
	}
	if iss, _ := claims["iss"].(string); strings.TrimRight(iss, "/") != strings.TrimRight(v.cfg.Issuer, "/") {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}
	if v.cfg.Audience != "" && !audContains(claims["aud"], v.cfg.Audience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrTokenInvalid)
	}

	identity := identityFromClaims(claims)
	if identity.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrTokenInvalid)
	}
	return identity, nil
}

// exp is mandatory; nbf and a future iat are rejected beyond the configured
// skew. Providers encode these as numbers, json numbers or strings.
func (v *tokenVerifier) validateTimeClaims(claims jwt.MapClaims) error {
	now := time.Now()

	exp, ok := parseNumericTime(claims["exp"])
	if !ok {
		return fmt.Errorf("%w: missing exp claim", ErrTokenInvalid)
	}
	if now.After(exp.Add(v.cfg.Skew)) {
		return fmt.Errorf("%w: expired at %s", ErrTokenExpired, exp.Format(time.RFC3339))
	}

	if nbf, ok := parseNumericTime(claims["nbf"]); ok && now.Add(v.cfg.Skew).Before(nbf) {
		return fmt.Errorf("%w: not valid before %s", ErrTokenInvalid, nbf.Format(time.RFC3339))
	}
	if iat, ok := parseNumericTime(claims["iat"]); ok && iat.After(now.Add(v.cfg.Skew)) {
		return fmt.Errorf("%w: issued in the future", ErrTokenInvalid)
	}
	return nil
}

func (v *tokenVerifier) keyForKid(ctx context.Context, kid string) (crypto.PublicKey, error) {
	v.mu.RLock()
	key, known := v.keys[kid]
	stale := time.Since(v.fetchedAt) > v.cfg.JWKSTTL
	v.mu.RUnlock()

	if known && !stale {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		// Fall back to a stale key rather than failing every request
		// while the provider is unreachable.
		if known {
			v.log.Warn("jwks refresh failed, using cached key", "kid", kid, "error", err)
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, known = v.keys[kid]
	if !known {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (v *tokenVerifier) refreshKeys(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// Another request may have refreshed while we waited on the lock.
	if time.Since(v.fetchedAt) < time.Minute && len(v.keys) > 0 {
		return nil
	}

	if v.jwksURL == "" {
		url := strings.TrimSpace(v.cfg.JWKSURL)
		if url == "" {
			discovered, err := v.discoverJWKSURL(ctx)
			if err != nil {
				return err
			}
			url = discovered
		}
		v.jwksURL = url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := map[string]crypto.PublicKey{}
	for _, k := range doc.Keys {
		pub, err := k.publicKey()
		if err != nil {
			v.log.Warn("skipping unusable jwk", "kid", k.Kid, "kty", k.Kty, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("jwks contained no usable keys")
	}

	v.keys = keys
	v.fetchedAt = time.Now()
	v.log.Debug("jwks refreshed", "key_count", len(keys))
	return nil
}

func (v *tokenVerifier) discoverJWKSURL(ctx context.Context) (string, error) {
	url := strings.TrimRight(v.cfg.Issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build discovery request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch openid configuration: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch openid configuration: status %d", resp.StatusCode)
	}

	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode openid configuration: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", fmt.Errorf("openid configuration has no jwks_uri")
	}
	return doc.JWKSURI, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (k jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		return rsaFromModExp(k.N, k.E)
	case "EC":
		return ecdsaFromXY(k.Crv, k.X, k.Y)
	default:
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
}

func rsaFromModExp(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

func ecdsaFromXY(crv, x, y string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve %q", crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(x)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}, nil
}

func parseNumericTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	default:
		return time.Time{}, false
	}
}

func audContains(aud interface{}, want string) bool {
	switch t := aud.(type) {
	case string:
		return t == want
	case []interface{}:
		for _, entry := range t {
			if s, ok := entry.(string); ok && s == want {
				return true
			}
		}
	case []string:
		for _, s := range t {
			if s == want {
				return true
			}
		}
	}
	return false
}

// identityFromClaims applies the provider-tolerant extraction rules: email
// from email, then primary_email, then the first emails entry; display name
// from name, then given_name+family_name, then preferred_username or
// nickname, then the email local part.
func identityFromClaims(claims jwt.MapClaims) *requestdata.Identity {
	sub, _ := claims["sub"].(string)

	email := stringClaim(claims, "email")
	if email == "" {
		email = stringClaim(claims, "primary_email")
	}
	if email == "" {
		if arr, ok := claims["emails"].([]interface{}); ok && len(arr) > 0 {
			if s, ok := arr[0].(string); ok {
				email = strings.TrimSpace(s)
			}
		}
	}

	name := stringClaim(claims, "name")
	if name == "" {
		given := stringClaim(claims, "given_name")
		family := stringClaim(claims, "family_name")
		name = strings.TrimSpace(given + " " + family)
	}
	if name == "" {
		name = stringClaim(claims, "preferred_username")
	}
	if name == "" {
		name = stringClaim(claims, "nickname")
	}
	if name == "" && email != "" {
		name = email[:strings.IndexByte(email+"@", '@')]
	}

	return &requestdata.Identity{
		Subject: strings.TrimSpace(sub),
		Email:   email,
		Name:    name,
		Claims:  claims,
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}
