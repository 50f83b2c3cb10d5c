package login

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the minimal JWT-like payload.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Exp  int64  `json:"exp"`
	Jti  string `json:"jti"`
}

// Signer issues and checks HS256 session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if secret == "" {
		secret = "dev-insecure-secret"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

var tokenHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

func (s *Signer) mac(unsigned string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(unsigned))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// Sign returns the token and its unix expiry.
func (s *Signer) Sign(userID, role string) (string, int64, error) {
	exp := s.now().Add(s.ttl).Unix()
	pb, err := json.Marshal(Claims{Sub: userID, Role: role, Exp: exp, Jti: generateJTI()})
	if err != nil {
		return "", 0, err
	}
	unsigned := tokenHeader + "." + base64.RawURLEncoding.EncodeToString(pb)
	return unsigned + "." + s.mac(unsigned), exp, nil
}

func (s *Signer) Parse(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(s.mac(parts[0]+"."+parts[1])), []byte(parts[2])) {
		return Claims{}, ErrInvalidToken
	}
	pb, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var cl Claims
	if err := json.Unmarshal(pb, &cl); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if cl.Sub == "" || cl.Exp < s.now().Unix() {
		return Claims{}, ErrInvalidToken
	}
	return cl, nil
}

func generateJTI() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405")
	}
	return hex.EncodeToString(b)
}

// Middleware requires a valid bearer token and exposes userId and role to the
// handlers behind it. It also sets X-Token-Expires-At.
func (s *Signer) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token == "" || token == strings.TrimSpace(auth) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}
		cl, err := s.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.Set("userId", cl.Sub)
		c.Set("role", cl.Role)
		c.Writer.Header().Set("X-Token-Expires-At", strconv.FormatInt(cl.Exp, 10))
		c.Next()
	}
}
