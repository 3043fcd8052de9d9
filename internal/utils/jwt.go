package utils // package utils provides helpers for token creation, parsing and hashing

import (
	"crypto/rand"    // secure random generation for the refresh jti
	"crypto/sha256"  // SHA-256 hashing of refresh tokens before storage
	"encoding/hex"   // hex encoding for hashes and random ids
	"encoding/json"  // json.Number for lossless numeric claims
	"strconv"        // numeric claim parsing
	"time"           // expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// leeway is the clock-skew tolerance applied to exp/iat checks when parsing.
// Chosen once here so every verification site behaves the same.
const leeway = 10 * time.Second

// Token type markers carried in the "typ" claim. An access token can never
// be presented where a refresh token is expected, or vice versa, even though
// both are signed with the same key.
const (
	typAccess  = "access"
	typRefresh = "refresh"
)

// AccessToken is a signed, short-lived JWT proving recent authentication.
// The Token field contains the serialized JWT; Exp its UTC expiration.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a signed, long-lived JWT exchanged for a new token pair.
// Only the SHA-256 hash of the serialized token is persisted server-side.
type RefreshToken struct {
	Token string
	Exp   time.Time
}

// AccessClaims is the verified payload of an access token.
type AccessClaims struct {
	UserID uint64
	Role   string
}

// NewAccessToken builds and signs an HS256 JWT for a user. The JWT carries
// subject (sub), role, token type (typ), expiration (exp) and issued-at (iat).
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"typ":  typAccess,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 JWT carrying only the subject.
// A random jti makes every token unique, so two tokens minted for the same
// user in the same second still hash to distinct storage rows.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (RefreshToken, error) {
	jti, err := randomHex(16)
	if err != nil {
		return RefreshToken{}, err
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": typRefresh,
		"jti": jti,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, expiry and token type. It reports
// false on every failure mode (malformed, bad signature, expired, wrong
// type); callers treat false as "no session".
func ParseAccessToken(secret, raw string) (AccessClaims, bool) {
	claims, ok := parse(secret, raw, typAccess)
	if !ok {
		return AccessClaims{}, false
	}
	uid, ok := claimUint64(claims, "sub")
	if !ok {
		return AccessClaims{}, false
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return AccessClaims{}, false
	}
	return AccessClaims{UserID: uid, Role: role}, true
}

// ParseRefreshToken verifies signature, expiry and token type and returns
// the owning user id. Storage-level expiry and revocation are checked
// separately by the token repository.
func ParseRefreshToken(secret, raw string) (uint64, bool) {
	claims, ok := parse(secret, raw, typRefresh)
	if !ok {
		return 0, false
	}
	return claimUint64(claims, "sub")
}

func parse(secret, raw, wantTyp string) (jwt.MapClaims, bool) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(leeway), jwt.WithExpirationRequired(),
		jwt.WithJSONNumber())
	if err != nil || !tok.Valid {
		return nil, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	if typ, _ := claims["typ"].(string); typ != wantTyp {
		return nil, false
	}
	return claims, true
}

// claimUint64 reads a numeric claim. The parser is configured with
// json.Number so user ids above 2^53 survive the round trip; float64 would
// silently round them. String subjects are not accepted because this
// service never issues them.
func claimUint64(claims jwt.MapClaims, key string) (uint64, bool) {
	n, ok := claims[key].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// HashRefreshToken returns the SHA-256 hash of the serialized refresh token
// as a hex string. Storing only the hash prevents a leaked database from
// yielding usable sessions.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
