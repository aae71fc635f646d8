package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/gitops"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/logger"
	"github.com/cleared-dev/ledger/internal/rules"
	"github.com/cleared-dev/ledger/internal/runlog"
	"github.com/cleared-dev/ledger/internal/store"
)

// app is everything a command needs, wired from the repository's config.
type app struct {
	root     string
	cfg      *config.Config
	log      zerolog.Logger
	store    store.Store
	accounts *accounts.Directory
	rules    *rules.Store
	close    func() error
}

// openApp loads config, chart, rules and the store for the repository named
// by the global flags, and puts the logger in the command's context.
func openApp(cmd *cobra.Command, g *globalFlags) (*app, error) {
	root, err := filepath.Abs(g.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving repo path: %w", err)
	}
	if err := config.LoadDotEnv(g.envFile); err != nil {
		return nil, err
	}

	cfgPath := g.config
	if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(root, cfgPath)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	companyID := cfg.Company.ID

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	log = logger.WithCompany(log, companyID)
	cmd.SetContext(logger.WithContext(cmd.Context(), log))

	dir, err := accounts.Load(root, companyID)
	if err != nil {
		return nil, err
	}
	if code, ok := cfg.CashAccountCode(); ok {
		if err := dir.SetDefaultCashAccount(companyID, code); err != nil {
			return nil, fmt.Errorf("bank account %s: %w", code, err)
		}
	} else {
		log.Debug().Msg("no default bank account configured")
	}

	rs, err := rules.Load(root, companyID)
	if errors.Is(err, os.ErrNotExist) {
		rs, err = rules.NewStore(), nil
	}
	if err != nil {
		return nil, err
	}

	a := &app{root: root, cfg: cfg, log: log, accounts: dir, rules: rs, close: func() error { return nil }}
	switch cfg.Database.Driver {
	case config.DriverMemory:
		a.store = store.NewMemory()
	default:
		db, err := store.OpenSQLite(cfg.DBPath(root))
		if err != nil {
			return nil, err
		}
		a.store = db
		a.close = db.Close
	}

	periods, err := cfg.FiscalPeriods()
	if err != nil {
		a.close()
		return nil, err
	}
	for _, p := range periods {
		if err := a.store.SaveFiscalPeriod(cmd.Context(), p); err != nil {
			a.close()
			return nil, fmt.Errorf("saving fiscal period %s: %w", p.ID, err)
		}
	}

	log.Debug().Str("repo", root).Str("driver", cfg.Database.Driver).Msg("opened ledger")
	return a, nil
}

func (a *app) generator() *journal.Generator {
	return journal.NewGenerator(a.accounts, a.cfg.Posting.CreatedBy)
}

// record appends run-log entries and, in a git repository, commits the
// repository's text files. Failures are logged; the books are already
// written by then.
func (a *app) record(message string, entries ...runlog.Entry) {
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].Timestamp.IsZero() {
			entries[i].Timestamp = now
		}
		if entries[i].Company == "" {
			entries[i].Company = a.cfg.Company.ID
		}
	}
	if err := runlog.Append(a.root, entries); err != nil {
		a.log.Warn().Err(err).Msg("writing run log")
	}

	if !gitops.IsRepo(a.root) {
		return
	}
	hash, err := gitops.CommitAll(a.root, message, gitops.Author{Name: a.cfg.Posting.CreatedBy, Email: a.cfg.Posting.CreatedBy + "@ledger.local"})
	if err != nil {
		a.log.Warn().Err(err).Msg("committing ledger repository")
		return
	}
	if hash != "" {
		a.log.Debug().Str("commit", hash).Msg("committed")
	}
}
