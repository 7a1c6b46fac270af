// Package auth gates the dashboard behind access tokens issued by the
// external identity service.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"go.uber.org/zap"
)

// ErrNoToken is returned when a request carries no access token.
var ErrNoToken = errors.New("missing access token")

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid or expired access token")

// Claims are the access token fields the dashboard reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config configures the gate.
type Config struct {
	// Disabled lets every request through as an anonymous user.
	Disabled bool
	Secret   string
	// CookieName defaults to sb-access-token.
	CookieName string
	// SignInURL is where GET /auth sends the browser. Empty serves a notice.
	SignInURL    string
	SecureCookie bool
}

// SignOutHook runs after the session cookie is cleared.
type SignOutHook func(ctx context.Context) error

// Gate verifies sessions and serves the session endpoints.
type Gate struct {
	cfg       Config
	logger    *zap.Logger
	onSignOut SignOutHook
	now       func() time.Time
}

type contextKey struct{}

// NewGate creates a Gate. onSignOut may be nil.
func NewGate(logger *zap.Logger, cfg Config, onSignOut SignOutHook) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = constants.DefaultSessionCookie
	}
	return &Gate{cfg: cfg, logger: logger, onSignOut: onSignOut, now: time.Now}
}

// Verify parses and validates an HS256 access token. Tokens without an
// expiry are rejected.
func (g *Gate) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}
	if g.cfg.Secret == "" {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(g.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: token has no expiry", ErrInvalidToken)
	}
	return claims, nil
}

// Token extracts the access token from the session cookie or the
// Authorization header.
func (g *Gate) Token(r *http.Request) string {
	if cookie, err := r.Cookie(g.cfg.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Authenticate returns the claims of the request's session.
func (g *Gate) Authenticate(r *http.Request) (*Claims, error) {
	if g.cfg.Disabled {
		return &Claims{Role: "anonymous"}, nil
	}
	return g.Verify(g.Token(r))
}

// FromContext returns the claims stored by the middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

// RequirePage redirects requests without a valid session to the sign-in page.
func (g *Gate) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authenticate(r)
		if err != nil {
			g.logger.Debug("redirecting unauthenticated request",
				zap.String("op", "auth.RequirePage"),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Redirect(w, r, constants.AuthPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}

// RequireAPI answers 401 for requests without a valid session.
func (g *Gate) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authenticate(r)
		if err != nil {
			g.logger.Debug("rejecting unauthenticated request",
				zap.String("op", "auth.RequireAPI"),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}

// HandleSession exchanges an access token from the identity client for a
// session cookie.
func (g *Gate) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := g.Verify(body.AccessToken)
	if err != nil {
		g.logger.Warn("rejected session token",
			zap.String("op", "auth.HandleSession"),
			zap.Error(err),
		)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    body.AccessToken,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	g.logger.Info("session started",
		zap.String("op", "auth.HandleSession"),
		zap.String("subject", claims.Subject),
	)
	writeJSON(w, http.StatusOK, map[string]string{"subject": claims.Subject, "email": claims.Email})
}

// HandleSignOut clears the session cookie, runs the sign-out hook and sends
// the browser to the sign-in page.
func (g *Gate) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// The hook only runs for a verified session; the cookie is expired either way.
	claims, authErr := g.Authenticate(r)

	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if authErr != nil {
		g.logger.Info("sign-out without a valid session",
			zap.String("op", "auth.HandleSignOut"),
			zap.Error(authErr),
		)
		http.Redirect(w, r, constants.AuthPath, http.StatusSeeOther)
		return
	}

	if g.onSignOut != nil {
		if err := g.onSignOut(r.Context()); err != nil {
			g.logger.Error("sign-out cleanup failed",
				zap.String("op", "auth.HandleSignOut"),
				zap.Error(err),
			)
		}
	}

	g.logger.Info("session ended",
		zap.String("op", "auth.HandleSignOut"),
		zap.String("email", claims.Email),
	)
	http.Redirect(w, r, constants.AuthPath, http.StatusSeeOther)
}

var signInPage = template.Must(template.New("signin").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<main>
<h1>Sign in required</h1>
<p>Sign in with your identity provider, then return to this page.</p>
{{if .}}<p><a href="{{.}}">Continue to sign in</a></p>{{end}}
</main>
</body>
</html>
`))

// HandleSignIn sends the browser to the identity provider, or shows a notice
// when none is configured.
func (g *Gate) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if g.cfg.SignInURL != "" {
		http.Redirect(w, r, g.cfg.SignInURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := signInPage.Execute(w, g.cfg.SignInURL); err != nil {
		g.logger.Error("failed to render sign-in page",
			zap.String("op", "auth.HandleSignIn"),
			zap.Error(err),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
