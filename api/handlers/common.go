package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"

	"github.com/go-chi/chi/v5"
)

const (
	SessionCookieName = "props_session"
	CSRFCookieName    = "props_csrf"

	maxJSONBody = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func parseInt64Default(raw string, def int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func parseIntDefault(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func pathID(r *http.Request, key string) int64 {
	return parseInt64Default(urlParam(r, key), 0)
}

func sessionFrom(r *http.Request) *store.SessionRecord {
	val := r.Context().Value(auth.SessionContextKey)
	if val == nil {
		return nil
	}
	sr, _ := val.(*store.SessionRecord)
	return sr
}

func currentUser(r *http.Request, users store.UsersStore) (*store.User, []string, error) {
	sr := sessionFrom(r)
	if sr == nil {
		return nil, nil, errors.New("no session")
	}
	return users.FindByUsername(r.Context(), sr.Username)
}

// writeLimitError answers a plan-limit denial with 402 and the decision; it reports
// whether err was one.
func writeLimitError(w http.ResponseWriter, err error) bool {
	var le *subscription.LimitError
	if !errors.As(err, &le) {
		return false
	}
	writeJSON(w, http.StatusPaymentRequired, map[string]any{
		"error":    "limits.reached",
		"decision": le.Decision,
	})
	return true
}

// showScope resolves the caller's standing in the show named by {show_id}.
type showScope struct {
	users  store.UsersStore
	shows  store.ShowsStore
	policy *rbac.Policy
}

func (sc showScope) access(w http.ResponseWriter, r *http.Request) (*store.User, *auth.ShowAccess, bool) {
	user, roles, err := currentUser(r, sc.users)
	if err != nil || user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, nil, false
	}
	showID := pathID(r, "show_id")
	if showID <= 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil, nil, false
	}
	acc, err := auth.ResolveShowAccess(r.Context(), sc.shows, sc.policy, user, roles, showID)
	switch {
	case errors.Is(err, auth.ErrShowNotFound):
		http.Error(w, "shows.notFound", http.StatusNotFound)
		return nil, nil, false
	case errors.Is(err, auth.ErrShowForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, nil, false
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return user, acc, true
}

func (sc showScope) require(w http.ResponseWriter, r *http.Request, action jobroles.Action) (*store.User, *auth.ShowAccess, bool) {
	user, acc, ok := sc.access(w, r)
	if !ok {
		return nil, nil, false
	}
	if !acc.Can(action) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, nil, false
	}
	return user, acc, true
}

func clientIP(r *http.Request, cfg *config.AppConfig) string {
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}
	ip = strings.TrimSpace(ip)
	if cfg == nil || !isTrustedProxy(ip, cfg.Security.TrustedProxies) {
		return ip
	}
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if candidate := extractClientIPFromXFF(xff, cfg.Security.TrustedProxies); candidate != "" {
			return candidate
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if parsed := net.ParseIP(realIP); parsed != nil {
			return parsed.String()
		}
	}
	return ip
}

func isSecureRequest(r *http.Request, cfg *config.AppConfig) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if cfg == nil {
		return false
	}
	if cfg.TLSEnabled {
		return true
	}
	remoteIP, _, _ := net.SplitHostPort(r.RemoteAddr)
	if remoteIP == "" {
		remoteIP = strings.TrimSpace(r.RemoteAddr)
	}
	if !isTrustedProxy(strings.TrimSpace(remoteIP), cfg.Security.TrustedProxies) {
		return false
	}
	xffProto := strings.ToLower(strings.TrimSpace(strings.SplitN(r.Header.Get("X-Forwarded-Proto"), ",", 2)[0]))
	return xffProto == "https"
}

func extractClientIPFromXFF(xff string, trusted []string) string {
	parts := strings.Split(xff, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		parsed := net.ParseIP(strings.TrimSpace(parts[i]))
		if parsed == nil {
			continue
		}
		val := parsed.String()
		if !isTrustedProxy(val, trusted) {
			return val
		}
	}
	return ""
}

func isTrustedProxy(ip string, trusted []string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	for _, raw := range trusted {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if strings.Contains(val, "/") {
			if _, block, err := net.ParseCIDR(val); err == nil && block.Contains(parsed) {
				return true
			}
			continue
		}
		if parsed.Equal(net.ParseIP(val)) {
			return true
		}
	}
	return false
}
