package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"deal-chain.backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	// LockDuration is the time the key is held while the request runs
	LockDuration = 30 * time.Second
	// RetentionDuration is how long a completed response is replayable
	RetentionDuration = 24 * time.Hour
)

const processingMarker = "processing"

var (
	redisGet   = redis.Get
	redisSet   = redis.Set
	redisSetNX = redis.SetNX
	redisDel   = redis.Del
)

type responseRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a request repeats an
// Idempotency-Key. Keys are scoped to the authenticated principal. Requests
// without the header, or without a Redis client, pass through untouched.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || redis.GetClient() == nil {
			c.Next()
			return
		}

		principalID := ""
		if principal, ok := GetPrincipal(c); ok {
			principalID = principal.ID
		}
		storageKey := fmt.Sprintf("idempotency:%s:%s", principalID, key)

		ctx := c.Request.Context()
		val, err := redisGet(ctx, storageKey)
		if err == nil {
			if val == processingMarker {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error": "Request already in progress",
				})
				return
			}
			status, body := splitStoredResponse(val)
			c.Header("Content-Type", "application/json")
			c.Header("X-Idempotency-Hit", "true")
			c.String(status, body)
			c.Abort()
			return
		}

		ok, err := redisSetNX(ctx, storageKey, processingMarker, LockDuration)
		if err != nil {
			// Redis down: serve the request rather than block writes.
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "Request already in progress",
			})
			return
		}

		recorder := &responseRecorder{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			stored := strconv.Itoa(status) + "\n" + recorder.body.String()
			_ = redisSet(ctx, storageKey, stored, RetentionDuration)
		} else {
			// Failed requests may be retried with the same key.
			_ = redisDel(ctx, storageKey)
		}
	}
}

func splitStoredResponse(val string) (int, string) {
	parts := strings.SplitN(val, "\n", 2)
	if len(parts) != 2 {
		return http.StatusOK, val
	}
	status, err := strconv.Atoi(parts[0])
	if err != nil {
		return http.StatusOK, val
	}
	return status, parts[1]
}
