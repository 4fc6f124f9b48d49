package auth

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// committingWriter runs commit exactly once, right before the response
// headers go out. Anything a handler stores in the session before its first
// write therefore still reaches the cookie.
type committingWriter struct {
	gin.ResponseWriter
	once   sync.Once
	commit func(http.ResponseWriter)
}

func (w *committingWriter) flushSession() {
	w.once.Do(func() { w.commit(w.ResponseWriter) })
}

func (w *committingWriter) WriteHeader(code int) {
	w.flushSession()
	w.ResponseWriter.WriteHeader(code)
}

func (w *committingWriter) WriteHeaderNow() {
	w.flushSession()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *committingWriter) Write(b []byte) (int, error) {
	w.flushSession()
	return w.ResponseWriter.Write(b)
}

func (w *committingWriter) WriteString(s string) (int, error) {
	w.flushSession()
	return w.ResponseWriter.WriteString(s)
}

func (w *committingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// SessionLoadSave is the gin counterpart of scs LoadAndSave. It must run before
// anything that reads the AuthState of the visitor.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			log.Printf("[SESSION] Failed to load session: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &committingWriter{
			ResponseWriter: c.Writer,
			commit: func(rw http.ResponseWriter) {
				switch sm.Status(ctx) {
				case scs.Modified:
					token, expiry, err := sm.Commit(ctx)
					if err != nil {
						log.Printf("[SESSION] Failed to save session: %v", err)
						return
					}
					sm.WriteSessionCookie(ctx, rw, token, expiry)
				case scs.Destroyed:
					sm.WriteSessionCookie(ctx, rw, "", time.Time{})
				}
			},
		}
		c.Writer = w

		c.Next()

		// Handlers that never wrote anything still get their cookie
		w.flushSession()
	}
}
