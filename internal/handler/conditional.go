package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// notModified reports whether the client's If-Modified-Since already covers
// updatedAt. Last-Modified is second-granular, so the comparison floors both
// sides to whole seconds; a malformed header is treated as absent.
func notModified(c *gin.Context, updatedAt time.Time) bool {
	raw := c.GetHeader("If-Modified-Since")
	if raw == "" {
		return false
	}
	since, err := http.ParseTime(raw)
	if err != nil {
		return false
	}
	return updatedAt.Unix() <= since.Unix()
}

// writeNotModified answers a poll whose snapshot the client already holds.
func writeNotModified(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusNotModified)
}

// writeSnapshot sends a full snapshot with the revalidation headers the
// polling clients key off of. The body is the bare projection, not the
// command envelope.
func writeSnapshot(c *gin.Context, updatedAt time.Time, body interface{}) {
	c.Header("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	c.Header("Cache-Control", "no-store, no-cache")
	c.JSON(http.StatusOK, body)
}

// writeGone terminates a poll permanently. The body stays empty so clients
// key off the status code alone.
func writeGone(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusGone)
}
