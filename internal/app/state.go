// Package app assembles the client: one State per process, built from the
// resolved configuration and passed explicitly to every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/spendwise-dev/spendwise/internal/activity"
	"github.com/spendwise-dev/spendwise/internal/auth"
	"github.com/spendwise-dev/spendwise/internal/config"
	"github.com/spendwise-dev/spendwise/internal/events"
	"github.com/spendwise-dev/spendwise/internal/gateway"
	"github.com/spendwise-dev/spendwise/internal/logging"
	"github.com/spendwise-dev/spendwise/internal/mirror"
	"github.com/spendwise-dev/spendwise/internal/model"
	"github.com/spendwise-dev/spendwise/internal/notify"
	"github.com/spendwise-dev/spendwise/internal/settings"
	"github.com/spendwise-dev/spendwise/internal/store"
)

// Deps are optional collaborators. Zero values get production defaults.
type Deps struct {
	Logger     *logrus.Logger
	HTTPClient *http.Client
	Observers  []store.Observer
	Now        func() time.Time
}

// State is the whole client: session, backend client and stores.
type State struct {
	Config *config.Config
	Log    *logrus.Logger
	Prefs  settings.Preferences

	API          *gateway.Client
	Auth         *auth.Manager
	Transactions *store.TransactionStore
	Accounts     *store.AccountStore
	Budgets      *store.BudgetStore

	Activity *activity.Log
	Mirror   *mirror.Mirror    // nil when disabled
	Events   *events.Publisher // nil when no AMQP URL is configured
	Notifier *notify.Sender

	now func() time.Time
}

// New builds a State. It loads any saved session and preferences but makes
// no backend calls.
func New(cfg *config.Config, deps Deps) (*State, error) {
	log := deps.Logger
	if log == nil {
		log = logging.New(cfg.Log, os.Stderr)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	prefs, err := settings.Load(cfg.SettingsPath())
	if err != nil {
		return nil, err
	}

	s := &State{
		Config:   cfg,
		Log:      log,
		Prefs:    prefs,
		Auth:     auth.NewManager(cfg.SessionPath(), log),
		Activity: activity.New(cfg.StateDir, log),
		Notifier: notify.NewSender(cfg.SMTP, log),
		now:      now,
	}
	if _, err := s.Auth.Load(); err != nil {
		return nil, err
	}

	opts := []gateway.Option{
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithPageSize(cfg.API.PageSize),
		gateway.WithLogger(log),
		gateway.WithTokenSource(s.Auth),
		gateway.WithSessionExpiredHandler(s.sessionExpired),
	}
	if deps.HTTPClient != nil {
		opts = append(opts, gateway.WithHTTPClient(deps.HTTPClient))
	}
	s.API = gateway.NewClient(cfg.API.BaseURL, opts...)
	s.Auth.Bind(s.API)

	storeOpts := []store.Option{
		store.WithLogger(log),
		store.WithObserver(s.Activity),
	}
	if cfg.Mirror.Enabled {
		m, err := mirror.Open(cfg.MirrorPath())
		if err != nil {
			return nil, err
		}
		s.Mirror = m
		storeOpts = append(storeOpts, store.WithMirror(m))
	}
	if cfg.Events.AMQPURL != "" {
		pub, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange, log)
		if err != nil {
			log.WithError(err).Warn("change feed disabled")
		} else {
			s.Events = pub
			storeOpts = append(storeOpts, store.WithObserver(pub))
		}
	}
	for _, obs := range deps.Observers {
		storeOpts = append(storeOpts, store.WithObserver(obs))
	}

	s.Transactions = store.NewTransactionStore(s.API.Transactions(), s.API.Categories(), storeOpts...)
	s.Accounts = store.NewAccountStore(s.API.Accounts(), storeOpts...)
	s.Budgets = store.NewBudgetStore(s.API.Budgets(), s.Transactions, storeOpts...)
	return s, nil
}

// Close releases the mirror and the change feed.
func (s *State) Close() error {
	var errs []error
	if s.Events != nil {
		errs = append(errs, s.Events.Close())
	}
	if s.Mirror != nil {
		errs = append(errs, s.Mirror.Close())
	}
	return errors.Join(errs...)
}

// Today is the current calendar date.
func (s *State) Today() model.Date { return model.DateOf(s.now()) }

// Currency is the display currency from preferences.
func (s *State) Currency() string { return s.Prefs.Currency }

// RequireLogin fails unless a session is held.
func (s *State) RequireLogin() error {
	if !s.Auth.Authenticated() {
		return fmt.Errorf("%w: run 'spendwise login' first", auth.ErrNotLoggedIn)
	}
	return nil
}

// Initialize fetches every collection concurrently and waits for all of
// them. The first error is returned; collections that succeeded keep their
// fresh items. The attempt is recorded in the mirror.
func (s *State) Initialize(ctx context.Context) error {
	started := s.now()

	var g errgroup.Group
	g.Go(func() error { return s.Transactions.FetchAll(ctx) })
	g.Go(func() error { return s.Transactions.FetchCategories(ctx) })
	g.Go(func() error { return s.Accounts.FetchAll(ctx) })
	g.Go(func() error { return s.Budgets.FetchAll(ctx) })
	err := g.Wait()

	if errors.Is(err, gateway.ErrSessionExpired) {
		// Fetches that finished after the expiry hook may have refilled a
		// store or its snapshot.
		s.ResetStores()
		if cerr := s.clearMirror(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	s.recordSync(ctx, started, err)
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	s.Log.WithFields(logrus.Fields{
		"transactions": s.Transactions.Len(),
		"categories":   s.Transactions.Categories.Len(),
		"accounts":     s.Accounts.Len(),
		"budgets":      s.Budgets.Len(),
	}).Debug("initialized")
	return nil
}

func (s *State) recordSync(ctx context.Context, started time.Time, err error) {
	if s.Mirror == nil {
		return
	}
	run := mirror.SyncRun{StartedAt: started, FinishedAt: s.now(), OK: err == nil}
	if err != nil {
		run.Message = err.Error()
	}
	if rerr := s.Mirror.RecordSync(ctx, run); rerr != nil {
		s.Log.WithError(rerr).Warn("recording sync run")
	}
}

// Hydrate restores every collection from the mirror. It returns how many
// collections had a snapshot.
func (s *State) Hydrate(ctx context.Context) (int, error) {
	hydrators := []func(context.Context) (bool, error){
		s.Transactions.Hydrate,
		s.Transactions.Categories.Hydrate,
		s.Accounts.Hydrate,
		s.Budgets.Hydrate,
	}
	n := 0
	for _, h := range hydrators {
		ok, err := h(ctx)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Load fetches fresh data, falling back to the mirror when the backend is
// unreachable. stale is true when the mirror was used.
func (s *State) Load(ctx context.Context) (stale bool, err error) {
	err = s.Initialize(ctx)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, gateway.ErrSessionExpired) || s.Mirror == nil {
		return false, err
	}
	n, herr := s.Hydrate(ctx)
	if herr != nil || n == 0 {
		return false, err
	}
	s.Log.WithError(err).Warn("backend unreachable, showing last synced data")
	return true, nil
}

// ResetStores empties every store.
func (s *State) ResetStores() {
	s.Transactions.Reset()
	s.Accounts.Reset()
	s.Budgets.Reset()
}

// Logout clears the session, the stores and the mirror.
func (s *State) Logout(ctx context.Context) error {
	err := s.Auth.Logout()
	s.ResetStores()
	if s.Mirror != nil {
		err = errors.Join(err, s.clearMirror(ctx))
	}
	return err
}

// sessionExpired runs when a protected endpoint answers 401.
func (s *State) sessionExpired() {
	s.Auth.SessionExpired()
	s.ResetStores()
	if err := s.clearMirror(context.Background()); err != nil {
		s.Log.WithError(err).Error("clearing mirror after session expiry")
	}
}

// clearMirror drops every snapshot, retrying a few times so an expired
// user's data does not outlive the session.
func (s *State) clearMirror(ctx context.Context) error {
	if s.Mirror == nil {
		return nil
	}
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = s.Mirror.Clear(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}
	return err
}

// SavePrefs persists preferences and makes them current.
func (s *State) SavePrefs(p settings.Preferences) error {
	if err := settings.Save(s.Config.SettingsPath(), p); err != nil {
		return err
	}
	s.Prefs = p
	return nil
}

// SendBudgetAlerts mails budgets at or past their threshold when alerts are
// enabled in preferences and SMTP is configured.
func (s *State) SendBudgetAlerts() (int, error) {
	if !s.Prefs.Notifications.BudgetAlerts || !s.Notifier.Enabled() {
		return 0, nil
	}
	return s.Notifier.SendBudgetAlerts(s.Budgets.Alerts(), s.Currency())
}
