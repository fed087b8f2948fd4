package bootstrap

import (
	"context"
	"database/sql"
	"strings"

	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/store"
	"props-bible/core/utils"
)

// AdminRole is the platform role of the seeded administrator. It grants every action,
// including manage_settings, which opens every show.
const AdminRole = jobroles.OwnerRoleID

// EnsureDefaultAdmin ensures admin user exists.
func EnsureDefaultAdmin(ctx context.Context, db *sql.DB, cfg *config.AppConfig, logger *utils.Logger) error {
	us := store.NewUsersStore(db)
	return EnsureDefaultAdminWithStore(ctx, us, cfg, logger)
}

// EnsureDefaultAdminWithStore is EnsureDefaultAdmin over an existing store.
func EnsureDefaultAdminWithStore(ctx context.Context, us store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) error {
	username := strings.ToLower(strings.TrimSpace(cfg.DefaultAdmin.Username))
	if username == "" {
		username = "admin"
	}
	existing, roles, err := us.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		if updated, next := ensureRole(roles, AdminRole); updated {
			if err := us.SetRoles(ctx, existing.ID, next); err != nil && logger != nil {
				logger.Warnf("default admin role update failed: %v", err)
			}
		}
		return nil
	}
	password := cfg.DefaultAdmin.Password
	passwordSet := password != ""
	if !passwordSet {
		// placeholder; login is refused until an operator sets one via propsctl
		random, err := utils.RandToken(32)
		if err != nil {
			return err
		}
		password = random
	}
	ph, err := auth.HashPassword(password, cfg.Pepper)
	if err != nil {
		return err
	}
	plan := cfg.Limits.DefaultPlan
	if plan == "" {
		plan = "free"
	}
	u := &store.User{
		Username:     username,
		FullName:     "Administrator",
		Email:        strings.TrimSpace(cfg.DefaultAdmin.Email),
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		PasswordSet:  passwordSet,
		Active:       true,
		Plan:         plan,
	}
	_, err = us.Create(ctx, u, []string{AdminRole})
	if err == nil && logger != nil {
		if passwordSet {
			logger.Printf("default admin %q created", username)
		} else {
			logger.Warnf("default admin %q created without password; set one with propsctl create-user", username)
		}
	}
	return err
}

func ensureRole(current []string, role string) (bool, []string) {
	for _, r := range current {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return false, current
		}
	}
	next := append([]string{}, current...)
	next = append(next, role)
	return true, next
}
