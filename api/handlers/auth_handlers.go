package handlers

import (
	"net/http"
	"strings"
	"time"

	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/utils"
)

type AuthHandler struct {
	cfg            *config.AppConfig
	users          store.UsersStore
	sessionManager *auth.SessionManager
	policy         *rbac.Policy
	audits         store.AuditStore
	logger         *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sm *auth.SessionManager, policy *rbac.Policy, audits store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessionManager: sm, policy: policy, audits: audits, logger: logger}
}

func (h *AuthHandler) pepper() string {
	if h.cfg == nil {
		return ""
	}
	return h.cfg.Pepper
}

func userDTO(user *store.User, roles []string, policy *rbac.Policy) auth.UserDTO {
	eff := auth.CalculateEffectiveAccess(roles, policy)
	return auth.UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		FullName:    user.FullName,
		Email:       user.Email,
		Roles:       eff.Roles,
		Active:      user.Active,
		Plan:        user.Plan,
		LastLoginAt: user.LastLoginAt,
		Permissions: eff.Permissions,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred auth.Credentials
	if err := decodeJSON(r, &cred); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cred.Username = strings.ToLower(strings.TrimSpace(cred.Username))
	if err := utils.ValidateUsername(cred.Username); err != nil {
		http.Error(w, "invalid username", http.StatusBadRequest)
		return
	}
	user, roles, err := h.users.FindByUsername(r.Context(), cred.Username)
	if err != nil || user == nil || !user.Active || !user.PasswordSet {
		_ = h.audits.Log(r.Context(), cred.Username, "auth.login_failed", "user missing, inactive or without password")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	ok, err := auth.VerifyPassword(cred.Password, h.pepper(), &auth.PasswordHash{Hash: user.PasswordHash, Salt: user.Salt})
	if err != nil || !ok {
		_ = h.audits.Log(r.Context(), cred.Username, "auth.login_failed", "invalid password")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	now := time.Now().UTC()
	sess, err := h.sessionManager.Create(r.Context(), user, roles, clientIP(r, h.cfg), r.UserAgent())
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("auth login session create failed for %s: %v", user.Username, err)
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.users.TouchLogin(r.Context(), user.ID, now)
	user.LastLoginAt = &now
	_ = h.audits.Log(r.Context(), user.Username, "auth.login_success", "")
	cookieSecure := isSecureRequest(r, h.cfg)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    sess.CSRFToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":       userDTO(user, roles, h.policy),
		"csrf_token": sess.CSRFToken,
		"expires_at": sess.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor := ""
	if sr := sessionFrom(r); sr != nil {
		actor = sr.Username
		_ = h.sessionManager.Destroy(r.Context(), sr.ID, actor)
	}
	cookieSecure := isSecureRequest(r, h.cfg)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	_ = h.audits.Log(r.Context(), actor, "auth.logout", "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	user, roles, err := currentUser(r, h.users)
	if err != nil || user == nil || sr == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":       userDTO(user, roles, h.policy),
		"csrf_token": sr.CSRFToken,
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	var payload struct {
		Current  string `json:"current_password"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user, _, err := h.users.Get(r.Context(), sr.UserID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := utils.ValidatePassword(payload.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ok, _ := auth.VerifyPassword(payload.Current, h.pepper(), &auth.PasswordHash{Hash: user.PasswordHash, Salt: user.Salt})
	if !ok {
		http.Error(w, "accounts.currentPasswordInvalid", http.StatusBadRequest)
		return
	}
	ph, err := auth.HashPassword(payload.Password, h.pepper())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, ph.Hash, ph.Salt); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), sr.Username, "auth.password_changed", "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
