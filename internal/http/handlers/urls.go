package handlers

import (
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/http/middleware"
)

const (
	boatsPath = "/boats"
	loadsPath = "/loads"
)

func requestScheme(c *gin.Context) string {
	if scheme := c.GetString(middleware.SchemeKey); scheme != "" {
		return scheme
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

// collectionURL is the absolute URL of a collection as seen by the caller.
func collectionURL(c *gin.Context, path string) string {
	return requestScheme(c) + "://" + c.Request.Host + path
}

func nextURL(c *gin.Context, path, cursor string) string {
	if cursor == "" {
		return ""
	}
	return collectionURL(c, path) + "?cursor=" + url.QueryEscape(cursor)
}
