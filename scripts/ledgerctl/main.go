package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/carson-networks/ledger-rules/internal/config"
	"github.com/carson-networks/ledger-rules/internal/importer"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/operator"
	"github.com/carson-networks/ledger-rules/internal/service"
	"github.com/carson-networks/ledger-rules/internal/staging"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// app holds the wiring shared by every subcommand.
type app struct {
	env       *config.Config
	logger    *logrus.Logger
	storage   *storage.Storage
	delegator *operator.OperatorDelegator
	service   *service.Service
	importer  *importer.Importer
	stager    *staging.Stager
}

func newApp() (*app, error) {
	env, err := config.ProcessEnvironmentVariables()
	if err != nil {
		return nil, err
	}
	logger := logging.SetupLogging(env.LogLevel)

	store, err := storage.NewStorage(env)
	if err != nil {
		return nil, err
	}

	delegator := operator.NewOperatorDelegator(store, 1)
	delegator.Start()

	imp := importer.NewImporter(store, env, logger)
	stager := staging.NewStager(env.UploadDir, staging.GCSOpener{})
	return &app{
		env:       env,
		logger:    logger,
		storage:   store,
		delegator: delegator,
		importer:  imp,
		stager:    stager,
		service: service.NewService(service.Dependencies{
			Storage:   store,
			Processor: delegator,
			Importer:  imp,
			Stager:    stager,
			Logger:    logger,
		}),
	}, nil
}

func (a *app) close() {
	a.delegator.Stop()
	a.storage.Close()
}

// withApp builds the wiring for one command invocation.
func withApp(run func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return run(c, a)
	}
}

func scopeFlag(c *cli.Context) transaction.Scope {
	ids := c.Int64Slice("id")
	if len(ids) == 0 {
		return transaction.AllTransactions()
	}
	return transaction.ForIDs(ids...)
}

// importFile stages a local CSV and imports it synchronously. The importer
// removes the staged copy, never the original.
func importFile(ctx context.Context, a *app, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open csv")
	}
	staged, err := a.stager.StageReader(f)
	f.Close()
	if err != nil {
		return err
	}

	u, err := a.storage.Uploads.Create(ctx, filepath.Base(path))
	if err != nil {
		os.Remove(staged)
		return errors.Wrap(err, "create upload")
	}
	if err := a.importer.Import(ctx, u, staged); err != nil {
		return err
	}

	fmt.Printf("upload %s: %d rows, %d imported, %d rejected\n",
		u.ID, u.ProcessedRows, u.SuccessfulRows, u.FailedRows)
	for _, rowErr := range u.ErrorDetails {
		fmt.Printf("  row %d: %v\n", rowErr.Row, rowErr.Errors)
	}
	return nil
}

func main() {
	idFlag := &cli.Int64SliceFlag{Name: "id", Usage: "restrict to these transaction IDs (repeatable)"}

	cliApp := &cli.App{
		Name:  "ledgerctl",
		Usage: "operate the ledger outside the HTTP server",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "import a CSV file and classify its rows",
				ArgsUsage: "<file.csv>",
				Action: withApp(func(c *cli.Context, a *app) error {
					if c.NArg() != 1 {
						return cli.Exit("import expects exactly one file", 2)
					}
					return importFile(c.Context, a, c.Args().First())
				}),
			},
			{
				Name:  "apply-rules",
				Usage: "fill blank categories and flags from the active rules",
				Flags: []cli.Flag{idFlag},
				Action: withApp(func(c *cli.Context, a *app) error {
					updated, err := a.service.Rule.ApplyRulesBatch(c.Context, scopeFlag(c))
					if err != nil {
						return err
					}
					fmt.Printf("%d transactions updated\n", updated)
					return nil
				}),
			},
			{
				Name:  "reset-and-reapply",
				Usage: "clear automated categories and flags, then apply every active rule",
				Action: withApp(func(c *cli.Context, a *app) error {
					updated, err := a.service.Rule.ResetAndReapply(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("%d transactions updated\n", updated)
					return nil
				}),
			},
			{
				Name:  "detect-anomalies",
				Usage: "flag duplicates and recurring charges",
				Flags: []cli.Flag{idFlag},
				Action: withApp(func(c *cli.Context, a *app) error {
					result, err := a.service.Anomaly.DetectAnomalies(c.Context, scopeFlag(c))
					if err != nil {
						return err
					}
					fmt.Printf("%d duplicates, %d recurring\n", result.Duplicates, result.Recurring)
					return nil
				}),
			},
			{
				Name:      "seed-rules",
				Usage:     "create rules from a YAML file",
				ArgsUsage: "<rules.yaml>",
				Action: withApp(func(c *cli.Context, a *app) error {
					if c.NArg() != 1 {
						return cli.Exit("seed-rules expects exactly one file", 2)
					}
					f, err := os.Open(c.Args().First())
					if err != nil {
						return errors.Wrap(err, "open seed file")
					}
					defer f.Close()

					creates, err := parseSeedRules(f)
					if err != nil {
						return err
					}
					for _, create := range creates {
						created, err := a.service.Rule.CreateRule(c.Context, create)
						if err != nil {
							return errors.Wrapf(err, "create rule %s", create.Name)
						}
						a.logger.WithField("ruleID", created.ID.String()).WithField("name", created.Name).Info("ledgerctl.SeedRules.Created")
					}
					fmt.Printf("%d rules created\n", len(creates))
					return nil
				}),
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("ledgerctl")
	}
}
