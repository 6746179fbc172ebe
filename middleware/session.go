package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"babelbeam/pipeline"
	apperrors "babelbeam/pkg/errors"
)

const (
	SessionCookieName = "session_id"
	SessionTimeout    = 24 * time.Hour

	sessionIDKey    = "sessionID"
	sessionStateKey = "sessionState"
	sessionStoreKey = "sessionStore"
)

// SessionStore keeps the pipeline state of every browser session.
type SessionStore interface {
	// Load returns the state of id and refreshes its expiry. ok is false for
	// unknown or expired sessions.
	Load(ctx context.Context, id string) (st pipeline.State, ok bool, err error)
	Save(ctx context.Context, id string, st pipeline.State) error
	Delete(ctx context.Context, id string) error
}

// generateSessionID returns a random session ID
func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		h := sha256.New()
		h.Write([]byte(time.Now().String()))
		h.Write([]byte(os.Getenv("HOSTNAME")))
		h.Write([]byte(fmt.Sprintf("%d", os.Getpid())))
		return hex.EncodeToString(h.Sum(nil))
	}
	return hex.EncodeToString(b)
}

// SessionMiddleware makes sure every request has a session and puts its
// state on the context.
func SessionMiddleware(store SessionStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = SessionTimeout
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sessionID, _ := c.Cookie(SessionCookieName)

		var (
			st  pipeline.State
			ok  bool
			err error
		)
		if sessionID != "" {
			st, ok, err = store.Load(ctx, sessionID)
			if err != nil {
				abortSession(c, logger, apperrors.NewSessionError("failed to load session", "load", sessionID, err))
				return
			}
		}

		if !ok {
			sessionID = generateSessionID()
			st = pipeline.NewState()
			if err := store.Save(ctx, sessionID, st); err != nil {
				abortSession(c, logger, apperrors.NewSessionError("failed to create session", "create", sessionID, err))
				return
			}

			isSecure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(
				SessionCookieName,
				sessionID,
				int(ttl.Seconds()),
				"/",
				"",
				isSecure,
				true, // httpOnly
			)
		}

		c.Set(sessionIDKey, sessionID)
		c.Set(sessionStateKey, st)
		c.Set(sessionStoreKey, store)

		c.Next()
	}
}

func abortSession(c *gin.Context, logger *zap.Logger, err *apperrors.SessionError) {
	logger.Error("Session store failure",
		zap.String("operation", err.Operation),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(err.StatusCode, gin.H{"error": "Session storage is unavailable. Please try again."})
}

// GetSessionID returns the session ID from the context
func GetSessionID(c *gin.Context) string {
	sessionID, exists := c.Get(sessionIDKey)
	if !exists {
		return ""
	}
	if id, ok := sessionID.(string); ok {
		return id
	}
	return ""
}

// GetState returns the session state loaded for this request.
func GetState(c *gin.Context) pipeline.State {
	if v, exists := c.Get(sessionStateKey); exists {
		if st, ok := v.(pipeline.State); ok {
			return st
		}
	}
	return pipeline.NewState()
}

// EndSession deletes the request's session from the store and expires the
// cookie. The next request starts a fresh session.
func EndSession(c *gin.Context) error {
	sessionID := GetSessionID(c)
	v, exists := c.Get(sessionStoreKey)
	store, ok := v.(SessionStore)
	if sessionID == "" || !exists || !ok {
		return apperrors.NewSessionError("no session on request", "delete", sessionID, nil)
	}

	if err := store.Delete(c.Request.Context(), sessionID); err != nil {
		return apperrors.NewSessionError("failed to delete session", "delete", sessionID, err)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
	c.Set(sessionStateKey, pipeline.NewState())
	return nil
}

// SaveState stores st as the new state of the request's session.
func SaveState(c *gin.Context, st pipeline.State) error {
	sessionID := GetSessionID(c)
	v, exists := c.Get(sessionStoreKey)
	store, ok := v.(SessionStore)
	if sessionID == "" || !exists || !ok {
		return apperrors.NewSessionError("no session on request", "save", sessionID, nil)
	}

	if err := store.Save(c.Request.Context(), sessionID, st); err != nil {
		return apperrors.NewSessionError("failed to save session", "save", sessionID, err)
	}
	c.Set(sessionStateKey, st)
	return nil
}
