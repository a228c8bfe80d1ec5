package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

// AuthConfig включает Bearer-аутентификацию API. Пустой токен при
// включенной аутентификации отклоняет все запросы, а не пропускает их.
type AuthConfig struct {
	Enabled     bool
	BearerToken string
}

// Auth защищает endpoint статическим Bearer-токеном.
func Auth(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ValidateRequestAuth(r, cfg); err != nil {
				log.Warn("Unauthorized request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="node-health-monitor"`)
				WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ValidateRequestAuth проверяет токен запроса вне middleware-цепочки —
// WebSocket handler вызывает ее напрямую до upgrade.
func ValidateRequestAuth(r *http.Request, cfg AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}

	expected := strings.TrimSpace(cfg.BearerToken)
	if expected == "" {
		return ErrUnauthorized
	}

	token := requestToken(r)
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ErrUnauthorized
	}

	return nil
}

// requestToken достает токен из Authorization header, а для WebSocket —
// из query-параметра: браузерный new WebSocket() не умеет слать заголовки.
func requestToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}

	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// WriteJSON пишет JSON-ответ с указанным статусом.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
