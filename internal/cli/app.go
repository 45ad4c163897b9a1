package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"vitality-score/internal/adapters/repo"
	applog "vitality-score/internal/infra/log"
	"vitality-score/internal/usecase/score"
)

const (
	dirMode    = 0o700
	dataDir    = ".vitality"
	dbFileName = "scores.db"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
)

// Флаги создаются заново для каждого запуска.
const (
	debugFlagName  = "debug"
	dbFlagName     = "db"
	formatFlagName = "format"
)

// App состояние одного запуска scorectl.
type App struct {
	out     io.Writer
	log     zerolog.Logger
	now     func() time.Time
	format  string
	store   *repo.SQLite
	service *score.Service
}

// NewApp создаёт приложение, печатающее результаты в out.
func NewApp(out io.Writer) *App {
	return &App{
		out:    out,
		log:    applog.NewLoggerTo(zerolog.ConsoleWriter{Out: os.Stderr}, "prod"),
		now:    time.Now,
		format: formatJSON,
	}
}

// Execute запускает CLI с аргументами процесса.
func Execute() {
	app := NewApp(os.Stdout)
	if err := app.Command().Run(context.Background(), os.Args); err != nil {
		app.log.Error().Err(err).Msg("scorectl: ошибка выполнения")
		os.Exit(1)
	}
}

// Command собирает дерево команд.
func (a *App) Command() *urfave.Command {
	return &urfave.Command{
		Name:    "scorectl",
		Version: fmt.Sprintf("%s - (commit: %s)", version, commit),
		Usage:   "Local daily longevity scores and biological age calculators",
		Writer:  a.out,
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:  dbFlagName,
				Usage: "Path to the Sqlite database file (optional, defaults to $HOME/.vitality/scores.db)",
			},
			&urfave.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*urfave.Command{
			a.dailyCmd(),
			a.historyCmd(),
			a.bioageCmd(),
		},
		Before: a.before,
		After:  a.after,
	}
}

func (a *App) before(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
	if cmd.Bool(debugFlagName) {
		a.log = a.log.Level(zerolog.DebugLevel)
	}

	switch f := cmd.String(formatFlagName); f {
	case formatJSON, "":
		a.format = formatJSON
	case formatYAML, "yml":
		a.format = formatYAML
	default:
		return ctx, fmt.Errorf("unsupported format %q", f)
	}

	dbPath := cmd.String(dbFlagName)
	if dbPath == "" {
		dbPath = filepath.Join(a.homeDir(), dbFileName)
	}
	a.log.Debug().Str("path", dbPath).Msg("scorectl: открываем базу")

	store, err := repo.OpenSQLite(dbPath)
	if err != nil {
		return ctx, fmt.Errorf("opening database: %w", err)
	}
	a.store = store
	a.service = score.NewService(store, store, score.WithLogger(a.log), score.WithClock(a.now))
	return ctx, nil
}

func (a *App) after(context.Context, *urfave.Command) error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (a *App) homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		a.log.Debug().Err(err).Msg("scorectl: нет домашнего каталога, используем текущий")
		return "."
	}
	dirPath := filepath.Join(home, dataDir)
	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dirPath, dirMode); err != nil {
			a.log.Debug().Err(err).Str("dir", dirPath).Msg("scorectl: не удалось создать каталог")
			return home
		}
	}
	return dirPath
}

func (a *App) today() string {
	return a.now().UTC().Format("2006-01-02")
}

func (a *App) print(v any) error {
	if a.format == formatYAML {
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
