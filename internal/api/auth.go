package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const userContextKey = "user"

// TokenIssuer signs and checks HS256 bearer tokens carrying the user id as subject.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

func (t *TokenIssuer) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates the token and returns the user id in its subject.
func (t *TokenIssuer) Parse(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return 0, errors.New("token does not contain a valid 'sub' claim")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token subject %q: %w", sub, err)
	}
	return id, nil
}

// AuthMiddleware resolves the bearer token to a current user. The role is
// always read from the user record, never trusted from the token.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			JSONError(c, http.StatusUnauthorized, "Unauthorized", "missing or invalid Authorization header")
			return
		}

		userID, err := h.tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			JSONError(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				JSONError(c, http.StatusUnauthorized, "Unauthorized", "user not found")
				return
			}
			h.respondError(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireRole lets through only users with one of the roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			JSONError(c, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		JSONError(c, http.StatusForbidden, "Forbidden", "role "+string(user.Role)+" cannot access this resource")
	}
}

func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
