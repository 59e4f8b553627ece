package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"backend/internal/model"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const principalKey = "principal"

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	// access_token: 24h, refresh_token: 7 days
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// --- Principal resolution ---

// principalCacheEntry stores a resolved principal with TTL so role and
// group membership lookups do not hit the database on every request.
type principalCacheEntry struct {
	principal model.Principal
	expiresAt time.Time
}

var (
	principalCache    sync.Map // userID string -> principalCacheEntry
	principalCacheTTL = 5 * time.Minute
)

// authDB holds the database reference for principal queries — set via InitAuthMiddleware
var authDB *gorm.DB

// InitAuthMiddleware sets the DB reference used to resolve principals.
func InitAuthMiddleware(db *gorm.DB) {
	authDB = db
}

// ClearPrincipalCache evicts a cached principal (or all if id is empty).
// Called after admin edits to roles, groups or approver assignment.
func ClearPrincipalCache(userID string) {
	if userID == "" {
		principalCache.Range(func(key, _ interface{}) bool {
			principalCache.Delete(key)
			return true
		})
	} else {
		principalCache.Delete(userID)
	}
}

func resolvePrincipal(userID uuid.UUID) (model.Principal, error) {
	key := userID.String()
	if entry, ok := principalCache.Load(key); ok {
		cached := entry.(principalCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.principal, nil
		}
	}

	var user model.User
	if err := authDB.Preload("Roles").Preload("Groups").First(&user, "id = ?", userID).Error; err != nil {
		return model.Principal{}, err
	}

	principal := model.Principal{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Tier:       model.TierFromRoles(user.Roles),
		GroupIDs:   user.GroupIDs(),
		ApproverID: user.ApproverID,
	}

	principalCache.Store(key, principalCacheEntry{
		principal: principal,
		expiresAt: time.Now().Add(principalCacheTTL),
	})

	return principal, nil
}

func extractToken(c *gin.Context) (string, bool) {
	// Try cookie first, fallback to Authorization header
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth validates the JWT and resolves the caller into a Principal
// (tier + group memberships) stored on the gin context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return GetJWTSecret(), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
			return
		}

		principal, err := resolvePrincipal(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unknown user"))
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireTier gates a route to principals at or above the given tier.
// Must run after RequireAuth.
func RequireTier(min model.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if principal.Tier < min {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the resolved principal set by RequireAuth.
func CurrentPrincipal(c *gin.Context) (model.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return model.Principal{}, false
	}
	principal, ok := v.(model.Principal)
	return principal, ok
}
