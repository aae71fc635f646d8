package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/gitops"
	"github.com/cleared-dev/ledger/internal/rules"
)

type initOptions struct {
	companyID  string
	name       string
	entityType string
	git        bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			if opts.companyID == "" {
				opts.companyID = filepath.Base(absDir)
			}

			if err := runInit(absDir, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger for %s (%s) at %s\n", opts.name, opts.companyID, absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "company name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.companyID, "company-id", "", "company id (default: directory name)")
	cmd.Flags().StringVar(&opts.entityType, "entity-type", accounts.EntityLLCSingleMember, "entity type")
	cmd.Flags().BoolVar(&opts.git, "git", false, "initialize a git repository and commit the new files")

	return cmd
}

func runInit(dir string, opts initOptions) error {
	defaults, err := accounts.DefaultChart(opts.entityType)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	dirs := []string{
		"accounts",
		"rules",
		"logs",
		"data",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(opts.companyID, opts.name, opts.entityType)
	cfg.BankAccounts = []config.BankAccount{
		{Name: "Business Checking", Type: "checking", AccountCode: accounts.DefaultCashAccount, Default: true},
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	chart := accounts.NewDirectory()
	chart.Add(opts.companyID, defaults...)
	if err := chart.Save(dir, opts.companyID); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	if err := rules.NewStore().Save(dir, opts.companyID); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	gitignore := "data/\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !opts.git {
		return nil
	}
	if err := gitops.Init(dir); err != nil {
		return err
	}
	author := gitops.Author{Name: cfg.Posting.CreatedBy, Email: cfg.Posting.CreatedBy + "@ledger.local"}
	if _, err := gitops.CommitAll(dir, "init: "+opts.name, author); err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	return nil
}
