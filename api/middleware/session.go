package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "traffic_session"
	sessionKey    = "session_id"
)

// Session 为每个浏览器会话分配稳定的 ID
//
// 依次读取 X-Session-ID 请求头和 cookie，都没有时生成新 ID 并写回 cookie。
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				id = cookie
			}
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
		}

		c.Set(sessionKey, id)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

// SessionID 当前请求的会话 ID
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
