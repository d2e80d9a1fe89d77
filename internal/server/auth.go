package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/rpc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "taskdeck"
	tokenAudience = "taskdeck-clients"
	principalKey  = "principal"
)

// Claims represents the JWT claims
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims to a gateway principal
func (c *Claims) Principal() rpc.Principal {
	return rpc.Principal{UserID: c.UserID, Email: c.Email, Roles: c.Roles}
}

// Auth issues and checks HMAC-signed tokens
type Auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuth creates an authenticator. ttl <= 0 defaults to 24h.
func NewAuth(secret string, ttl time.Duration) (*Auth, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateToken generates a JWT token for the given principal
func (a *Auth) GenerateToken(p rpc.Principal, name string) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Name:   name,
		Roles:  p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// middleware requires a valid token in the Authorization header or, for
// websocket clients that cannot set headers, the token query parameter
func (a *Auth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			abortWith(c, rpc.Errorf(rpc.CodeUnauthenticated, "authorization token is required"))
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			abortWith(c, rpc.Errorf(rpc.CodeUnauthenticated, "invalid or expired token"))
			return
		}

		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

func principalOf(c *gin.Context) rpc.Principal {
	p, _ := c.MustGet(principalKey).(rpc.Principal)
	return p
}

// statusFor maps gateway codes onto HTTP statuses
func statusFor(code string) int {
	switch code {
	case rpc.CodeInvalidArgument:
		return http.StatusBadRequest
	case rpc.CodeUnauthenticated:
		return http.StatusUnauthorized
	case rpc.CodePermissionDenied:
		return http.StatusForbidden
	case rpc.CodeNotFound:
		return http.StatusNotFound
	case rpc.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	var e *rpc.Error
	if !errors.As(err, &e) {
		e = rpc.Errorf(rpc.CodeInternal, "%v", err)
	}
	c.AbortWithStatusJSON(statusFor(e.Code), e)
}
