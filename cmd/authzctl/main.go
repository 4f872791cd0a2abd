// Command authzctl evaluates permission checks against a YAML fixture and seeds
// fixtures into the database.
//
//	authzctl check --fixture campus.yaml --user asha --capability blogs --club robotics
//	authzctl seed --fixture campus.yaml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/upb/club-authz/config"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/internal/fixture"
	"github.com/upb/club-authz/internal/observability"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories/postgres"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const usage = `Usage: authzctl <command> [flags]

Commands:
  check   evaluate one permission check against a fixture
  seed    write a fixture into the configured database
`

// exitError carries a process exit code other than 1
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

// errDenied is returned by check when the decision is a denial
var errDenied = &exitError{code: 2, msg: "permission denied"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "authzctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "check":
		return runCheck(args[1:], stdout)
	case "seed":
		return runSeed(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// checkResult is printed by check
type checkResult struct {
	authz.Decision
	User    string    `json:"user"`
	At      time.Time `json:"at"`
	Warning string    `json:"warning,omitempty"`
}

func runCheck(args []string, stdout io.Writer) error {
	var fixturePath, userRef, capability, clubRef, boardRef, at string

	flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
	flagSet.StringVarP(&fixturePath, "fixture", "f", "", "path to the YAML fixture")
	flagSet.StringVarP(&userRef, "user", "u", "", "user key or id")
	flagSet.StringVarP(&capability, "capability", "c", "", "capability to check")
	flagSet.StringVar(&clubRef, "club", "", "club key or id")
	flagSet.StringVar(&boardRef, "board", "", "board key or id")
	flagSet.StringVar(&at, "at", "", "evaluate at this RFC 3339 instant (default: now)")
	if done, err := parseFlags(flagSet, args, stdout); done || err != nil {
		return err
	}
	if fixturePath == "" || userRef == "" || capability == "" {
		return errors.New("check: --fixture, --user and --capability are required")
	}

	now := time.Now().UTC()
	if at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("check: invalid --at: %w", err)
		}
		now = parsed
	}

	f, err := fixture.Load(fixturePath)
	if err != nil {
		return err
	}
	snap, err := f.Snapshot(userRef, now)
	if err != nil {
		return err
	}
	clubID, err := unitID(f, clubRef, models.UnitKindClub)
	if err != nil {
		return err
	}
	boardID, err := unitID(f, boardRef, models.UnitKindBoard)
	if err != nil {
		return err
	}

	evaluator := authz.NewEvaluator(zap.NewNop(), authz.WithClock(func() time.Time { return now }))
	decision, err := evaluator.Check(models.Capability(capability), snap, boardID, clubID)

	result := checkResult{Decision: decision, User: userRef, At: now}
	switch {
	case errors.Is(err, authz.ErrAmbiguousScope):
		result.Warning = err.Error()
	case err != nil:
		return err
	}

	if err := newEncoder(stdout).Encode(result); err != nil {
		return err
	}
	if !decision.Allowed {
		return errDenied
	}
	return nil
}

// newEncoder indents output written to a terminal
func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc
}

// parseFlags reports done when --help was requested and usage has been printed
func parseFlags(flagSet *pflag.FlagSet, args []string, out io.Writer) (bool, error) {
	flagSet.SetOutput(out)
	err := flagSet.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return true, nil
	}
	if err == nil && flagSet.NArg() > 0 {
		return false, fmt.Errorf("%s: unexpected argument %q", flagSet.Name(), flagSet.Arg(0))
	}
	return false, err
}

func unitID(f *fixture.Fixture, ref string, kind models.UnitKind) (*uuid.UUID, error) {
	if ref == "" {
		return nil, nil
	}
	unit, err := f.Unit(ref)
	if err != nil {
		return nil, err
	}
	if unit.Kind != kind {
		return nil, fmt.Errorf("%s is a %s, not a %s", ref, unit.Kind, kind)
	}
	id := unit.ID
	return &id, nil
}

func runSeed(ctx context.Context, args []string, stdout io.Writer) error {
	var fixturePath string
	var initSchema bool

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&fixturePath, "fixture", "f", "", "path to the YAML fixture")
	flagSet.BoolVar(&initSchema, "init-schema", false, "create tables before seeding")
	if done, err := parseFlags(flagSet, args, stdout); done || err != nil {
		return err
	}
	if fixturePath == "" {
		return errors.New("seed: --fixture is required")
	}

	f, err := fixture.Load(fixturePath)
	if err != nil {
		return err
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer factory.Close()

	if initSchema || cfg.Database.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			return err
		}
	}

	counts, err := fixture.Seed(ctx, factory.NewRepositories(), factory.GetTransactionManager(), f)
	if err != nil {
		return fmt.Errorf("seeding %s: %w", fixturePath, err)
	}

	logger.Info("fixture seeded",
		zap.String("fixture", fixturePath),
		zap.Int("units", counts.Units),
		zap.Int("privilege_types", counts.PrivilegeTypes),
		zap.Int("users", counts.Users),
		zap.Int("assignments", counts.Assignments))
	fmt.Fprintf(stdout, "seeded %d units, %d privilege types, %d users, %d assignments\n",
		counts.Units, counts.PrivilegeTypes, counts.Users, counts.Assignments)
	return nil
}
