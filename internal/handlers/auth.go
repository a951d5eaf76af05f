package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/config"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID   = "user_id"
	ctxIdentity = "identity"

	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	headerUserName = "X-User-Name"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*services.Identity, error)
}

// TokenIssuer is implemented by authenticators that mint their own tokens at login.
type TokenIssuer interface {
	Issue(id *services.Identity) (string, time.Time, error)
}

// NewAuthenticator picks the identity collaborator for cfg.Mode
func NewAuthenticator(cfg config.AuthConfig, clock func() time.Time) (Authenticator, error) {
	switch cfg.Mode {
	case "", "token":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in token auth mode")
		}
		return NewTokenAuthenticator(cfg.JWTSecret, cfg.JWTTTL, clock), nil
	case "header":
		return HeaderAuthenticator{}, nil
	case "casdoor":
		if cfg.CasdoorEndpoint == "" || cfg.CasdoorCertificate == "" {
			return nil, fmt.Errorf("CASDOOR_ENDPOINT and CASDOOR_CERTIFICATE are required in casdoor auth mode")
		}
		return NewCasdoorAuthenticator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}

// ===== TOKEN =====

type tokenClaims struct {
	Role models.UserRole `json:"role"`
	Name string          `json:"name"`
	jwt.RegisteredClaims
}

// TokenAuthenticator signs and verifies HS256 session tokens.
type TokenAuthenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenAuthenticator(secret string, ttl time.Duration, clock func() time.Time) *TokenAuthenticator {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if clock == nil {
		clock = time.Now
	}
	return &TokenAuthenticator{secret: []byte(secret), ttl: ttl, now: clock}
}

func (a *TokenAuthenticator) Issue(id *services.Identity) (string, time.Time, error) {
	issuedAt := a.now()
	expiresAt := issuedAt.Add(a.ttl)

	claims := &tokenClaims{
		Role: id.Role,
		Name: id.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (*services.Identity, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claims := &tokenClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &services.Identity{UserID: claims.Subject, FullName: claims.Name, Role: claims.Role}, nil
}

// ===== HEADER =====

// HeaderAuthenticator trusts identity headers set by an upstream gateway.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (*services.Identity, error) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return nil, ErrMissingCredentials
	}
	role := models.UserRole(strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole))))
	if role != models.RoleAdmin {
		role = models.RoleStudent
	}
	return &services.Identity{
		UserID:   userID,
		FullName: strings.TrimSpace(r.Header.Get(headerUserName)),
		Role:     role,
	}, nil
}

// ===== CASDOOR =====

// CasdoorAuthenticator validates bearer tokens issued by a Casdoor instance.
type CasdoorAuthenticator struct {
	client *casdoorsdk.Client
}

func NewCasdoorAuthenticator(cfg config.AuthConfig) *CasdoorAuthenticator {
	return &CasdoorAuthenticator{
		client: casdoorsdk.NewClient(
			cfg.CasdoorEndpoint,
			cfg.CasdoorClientID,
			cfg.CasdoorClientSecret,
			cfg.CasdoorCertificate,
			cfg.CasdoorOrganization,
			cfg.CasdoorApplication,
		),
	}
}

func (a *CasdoorAuthenticator) Authenticate(r *http.Request) (*services.Identity, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := a.client.ParseJwtToken(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Name == "" {
		return nil, ErrInvalidToken
	}

	role := models.RoleStudent
	if claims.IsAdmin {
		role = models.RoleAdmin
	}
	name := claims.DisplayName
	if name == "" {
		name = claims.Name
	}
	return &services.Identity{UserID: claims.Name, FullName: name, Role: role}, nil
}

// ===== MIDDLEWARE =====

// Authenticate stores the caller's identity in the gin context or aborts with 401
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := auth.Authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}
		c.Set(ctxIdentity, identity)
		c.Set(ctxUserID, identity.UserID)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated caller has role
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := currentIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}
		if identity.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
			})
			return
		}
		c.Next()
	}
}
