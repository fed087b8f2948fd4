package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"

	"gopkg.in/yaml.v3"
)

const usage = "commands: create-user, export-roles, import-roles, reconcile-counters"

// rolesFile is the on-disk shape of export-roles / import-roles.
type rolesFile struct {
	Roles []jobroles.Role `yaml:"roles"`
}

func Run() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		return
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLoggerTo(os.Stdout, cfg.AppEnv)
	db, err := openDB(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := Exec(context.Background(), os.Args[1:], cfg, db, logger, os.Stdout); err != nil {
		logger.Fatalf("%s: %v", os.Args[1], err)
	}
}

func openDB(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// Exec runs one subcommand against an already migrated database.
func Exec(ctx context.Context, args []string, cfg *config.AppConfig, db *sql.DB, logger *utils.Logger, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "create-user":
		fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
		username := fs.String("u", "", "username")
		password := fs.String("p", "", "password")
		email := fs.String("e", "", "email")
		roles := fs.String("r", "", "comma separated global roles")
		plan := fs.String("plan", "", "subscription plan")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		id, err := createUser(ctx, cfg, db, *username, *password, *email, splitRoles(*roles), *plan)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "user created id=%d\n", id)
	case "export-roles":
		fs := flag.NewFlagSet("export-roles", flag.ContinueOnError)
		path := fs.String("o", "", "output file (stdout when empty)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		w := out
		if *path != "" {
			f, err := os.Create(*path)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		n, err := exportRoles(ctx, store.NewRolesStore(db), w)
		if err != nil {
			return err
		}
		if *path != "" {
			fmt.Fprintf(out, "exported %d roles to %s\n", n, *path)
		}
	case "import-roles":
		fs := flag.NewFlagSet("import-roles", flag.ContinueOnError)
		path := fs.String("i", "", "input file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *path == "" {
			return errors.New("-i is required")
		}
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer f.Close()
		created, updated, err := importRoles(ctx, store.NewRolesStore(db), f, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "roles imported created=%d updated=%d\n", created, updated)
	case "reconcile-counters":
		users := store.NewUsersStore(db)
		svc := subscription.NewService(users, store.NewCountersStore(db), cfg.Limits.DefaultPlan, logger)
		rec, err := subscription.NewReconciler(svc, users, cfg.Limits.ReconcileCron, logger)
		if err != nil {
			return err
		}
		res, err := rec.RunOnce(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "owners=%d changed=%d errors=%d\n", res.Owners, res.Changed, res.Errors)
	default:
		return fmt.Errorf("unknown command %q; %s", args[0], usage)
	}
	return nil
}

func createUser(ctx context.Context, cfg *config.AppConfig, db *sql.DB, username, password, email string, roles []string, plan string) (int64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if err := utils.ValidateUsername(username); err != nil {
		return 0, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return 0, err
	}
	email, err := utils.NormalizeEmail(email)
	if err != nil {
		return 0, err
	}
	if plan == "" {
		plan = cfg.Limits.DefaultPlan
	}
	if !subscription.IsKnownPlan(plan) {
		return 0, fmt.Errorf("unknown plan %q", plan)
	}
	rs := store.NewRolesStore(db)
	for _, r := range roles {
		if jobroles.IsBuiltIn(r) {
			continue
		}
		role, err := rs.Get(ctx, r)
		if err != nil {
			return 0, err
		}
		if role == nil {
			return 0, fmt.Errorf("%w: %s", jobroles.ErrUnknownRole, r)
		}
	}
	ph, err := auth.HashPassword(password, cfg.Pepper)
	if err != nil {
		return 0, err
	}
	return store.NewUsersStore(db).Create(ctx, &store.User{
		Username:     username,
		Email:        email,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		PasswordSet:  true,
		Active:       true,
		Plan:         plan,
	}, roles)
}

func exportRoles(ctx context.Context, rs store.RolesStore, w io.Writer) (int, error) {
	custom, err := rs.ListCustom(ctx)
	if err != nil {
		return 0, err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rolesFile{Roles: custom}); err != nil {
		return 0, err
	}
	return len(custom), enc.Close()
}

// importRoles creates missing custom roles and overwrites existing ones in place.
// Built-in ids are refused.
func importRoles(ctx context.Context, rs store.RolesStore, r io.Reader, now time.Time) (created, updated int, err error) {
	var file rolesFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, fmt.Errorf("decode: %w", err)
	}
	for _, in := range file.Roles {
		id := strings.ToLower(strings.TrimSpace(in.ID))
		if id == "" {
			role, err := jobroles.NewCustomRole(jobroles.CustomRoleInput{
				Name:        in.Name,
				Description: in.Description,
				Permissions: in.Permissions,
				BasedOn:     in.BasedOn,
				CreatedBy:   "import",
			}, now)
			if err != nil {
				return created, updated, err
			}
			id = role.ID
			in = role
		}
		if jobroles.IsBuiltIn(id) || !strings.HasPrefix(id, jobroles.CustomIDPrefix) {
			return created, updated, fmt.Errorf("%w: %s", jobroles.ErrBuiltInRole, id)
		}
		if res := jobroles.ValidatePermissions(in.Permissions); !res.Valid {
			return created, updated, &jobroles.ValidationError{Result: res}
		}
		current, err := rs.Get(ctx, id)
		if err != nil {
			return created, updated, err
		}
		if current == nil {
			role := in
			role.ID = id
			role.Category = jobroles.CategoryCustom
			role.IsCustom = true
			role.IsCustomizable = true
			role.Version = 1
			if role.Hierarchy <= 0 {
				role.Hierarchy = jobroles.DefaultCustomHierarchy
			}
			if role.CreatedAt.IsZero() {
				role.CreatedAt = now.UTC()
			}
			role.UpdatedAt = now.UTC()
			if err := rs.Create(ctx, role); err != nil {
				return created, updated, fmt.Errorf("%s: %w", id, err)
			}
			created++
			continue
		}
		name, desc := in.Name, in.Description
		next, err := jobroles.ApplyCustomUpdate(*current, jobroles.CustomRoleUpdate{
			Name:        &name,
			Description: &desc,
			Permissions: in.Permissions,
		}, now)
		if err != nil {
			return created, updated, err
		}
		if err := rs.Update(ctx, next, current.Version); err != nil {
			return created, updated, fmt.Errorf("%s: %w", id, err)
		}
		updated++
	}
	return created, updated, nil
}

func splitRoles(r string) []string {
	var res []string
	for _, part := range strings.Split(r, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			res = append(res, part)
		}
	}
	return res
}
