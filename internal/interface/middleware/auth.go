package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/lowzingo/members-api/pkg/helpers"
	"github.com/lowzingo/members-api/pkg/response"
)

// Auth validates the access token and ensures an active session exists in
// Redis. It sets userID, userEmail, and isAdmin in the Gin context on
// success. The token's session id must match the one stored for the user,
// so a refresh rotation invalidates older tokens.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			c.Abort()
			return
		}

		key := "user:session:" + claims.UserID
		data, err := rdb.HGetAll(c.Request.Context(), key).Result()
		if err != nil || len(data) == 0 {
			response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
			c.Abort()
			return
		}
		if sid, ok := data["sid"]; ok && sid != claims.SessionID {
			response.Error[any](c, http.StatusUnauthorized, "session superseded", nil)
			c.Abort()
			return
		}

		isAdmin, _ := strconv.ParseBool(data["is_admin"])
		c.Set("userID", data["user_id"])
		c.Set("userName", data["name"])
		c.Set("userEmail", data["email"])
		c.Set("isAdmin", isAdmin)
		c.Next()
	}
}

// AdminOnly gates a route group to admin sessions. Must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("isAdmin") {
			response.Error[any](c, http.StatusForbidden, "admin access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
