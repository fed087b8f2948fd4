package appbootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"props-bible/api"
	"props-bible/boards"
	boardshttp "props-bible/boards/http"
	boardsstore "props-bible/boards/store"
	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/bootstrap"
	"props-bible/core/invites"
	"props-bible/core/labels"
	"props-bible/core/mailer"
	"props-bible/core/objectstore"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
	"props-bible/props"
	propshttp "props-bible/props/http"
	propsstore "props-bible/props/store"
)

type Runtime struct {
	DB         *sql.DB
	Server     *api.Server
	Reconciler *subscription.Reconciler
	background api.BackgroundController
	cfg        *config.AppConfig
	logger     *utils.Logger

	mu       sync.Mutex
	bgCancel context.CancelFunc
}

type composition struct {
	serverDeps api.ServerDeps
	sessions   store.SessionStore
	reconciler *subscription.Reconciler
	workers    []api.BackgroundWorker
}

func InitRuntime(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*Runtime, error) {
	if err := ensureStorageDirs(cfg, logger); err != nil {
		return nil, fmt.Errorf("storage dirs: %w", err)
	}
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("db init: %w", err)
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	composition, err := composeRuntime(ctx, cfg, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("compose runtime: %w", err)
	}
	if err := bootstrap.EnsureDefaultAdmin(ctx, db, cfg, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	srv := api.NewServer(cfg, logger, composition.serverDeps)
	return &Runtime{
		DB:         db,
		Server:     srv,
		Reconciler: composition.reconciler,
		background: api.BuildBackgroundController(composition.sessions, logger, composition.workers...),
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// composeRuntime wires stores, services and module handlers for the HTTP server.
func composeRuntime(ctx context.Context, cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*composition, error) {
	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	roles := store.NewRolesStore(db)
	audits := store.NewAuditStore(db)
	shows := store.NewShowsStore(db)

	policy, err := rbac.NewPolicy(rbac.DefaultRoles())
	if err != nil {
		return nil, err
	}
	if err := rbac.EnsureBuiltInAndRefresh(ctx, roles, policy); err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}

	limits := subscription.NewService(users, store.NewCountersStore(db), cfg.Limits.DefaultPlan, logger)
	reconciler, err := subscription.NewReconciler(limits, users, cfg.Limits.ReconcileCron, logger)
	if err != nil {
		return nil, err
	}

	objects, err := objectstore.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	signer, err := invites.NewSigner(cfg.Invitations.SigningKey, cfg.Invitations.TTL)
	if err != nil {
		return nil, fmt.Errorf("invitations: %w", err)
	}
	invitesSvc := invites.NewService(invites.Deps{
		Invitations: store.NewInvitationsStore(db),
		Shows:       shows,
		Roles:       roles,
		Policy:      policy,
		Limits:      limits,
		Signer:      signer,
		Limiter:     invites.NewSendLimiter(cfg.Invitations.RatePerHour, cfg.Invitations.Burst),
		Mailer:      mailer.New(cfg.SMTP, logger),
		PublicURL:   cfg.Invitations.PublicURL,
		Logger:      logger,
	})

	labelGen := labels.NewGenerator(cfg.Labels)
	propsSvc := props.NewService(propsstore.NewStore(db), limits, objects, labelGen, cfg.Invitations.PublicURL, logger)
	boardsSvc := boards.NewService(boardsstore.NewStore(db), limits, logger)

	deps := api.ServerDeps{
		DB:             db,
		Users:          users,
		Sessions:       sessions,
		SessionManager: auth.NewSessionManager(cfg, sessions),
		Roles:          roles,
		Audits:         audits,
		Shows:          shows,
		Packing:        store.NewPackingStore(db),
		Shopping:       store.NewShoppingStore(db),
		Feedback:       store.NewFeedbackStore(db),
		Policy:         policy,
		Limits:         limits,
		Reconciler:     reconciler,
		Invites:        invitesSvc,
		Objects:        objects,
		Labels:         labelGen,
		Props:          propshttp.NewHandler(propsSvc, users, shows, policy, audits, cfg.Storage.UploadMaxBytes),
		PropsService:   propsSvc,
		Boards:         boardshttp.NewHandler(boardsSvc, users, shows, policy, audits),
	}
	return &composition{
		serverDeps: deps,
		sessions:   sessions,
		reconciler: reconciler,
		workers:    []api.BackgroundWorker{reconciler},
	}, nil
}

func (r *Runtime) StartBackground(ctx context.Context) {
	if r == nil || r.background == nil {
		return
	}
	r.mu.Lock()
	if r.bgCancel != nil {
		r.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.bgCancel = cancel
	r.mu.Unlock()
	r.background.Start(runCtx)
	if r.cfg != nil && r.cfg.Limits.ReconcileOnStart && r.Reconciler != nil {
		go func() {
			res, err := r.Reconciler.RunOnce(runCtx, time.Now().UTC())
			if err == nil && r.logger != nil {
				r.logger.Printf("startup reconcile owners=%d changed=%d errors=%d", res.Owners, res.Changed, res.Errors)
			}
		}()
	}
}

func (r *Runtime) StopBackground(ctx context.Context) error {
	if r == nil || r.background == nil {
		return nil
	}
	r.mu.Lock()
	cancel := r.bgCancel
	r.bgCancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return r.background.Stop(ctx)
}

func (r *Runtime) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
