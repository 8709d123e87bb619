// Command ingest reads one MIME email on stdin, routes it to the matching
// supplier's parser, and persists the quotes it contains. Invoked once per
// delivered message by the mail transport agent.
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/altitude-energy/matrix-ingest/internal/config"
	"github.com/altitude-energy/matrix-ingest/internal/emailproc"
	"github.com/altitude-energy/matrix-ingest/internal/metrics"
	"github.com/altitude-energy/matrix-ingest/internal/objectstore"
	"github.com/altitude-energy/matrix-ingest/internal/persistence"
	"github.com/altitude-energy/matrix-ingest/internal/preprocess"
	"github.com/altitude-energy/matrix-ingest/pkg/logger"
)

// lockFile serializes concurrent invocations of this command: the mail
// transport agent may fork one process per message, but per-file
// transactional isolation assumes nothing else is writing to the external
// store at the same time.
const lockFile = "/var/lock/matrix-ingest.lock"

func main() {
	app := &cli.App{
		Name:  "ingest",
		Usage: "parse a supplier matrix price file delivered by email on stdin",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the INI configuration file",
				EnvVars: []string{"MATRIX_INGEST_CONFIG"},
				Value:   "/etc/matrix-ingest/config.ini",
			},
			&cli.StringFlag{
				Name:  "lock-file",
				Usage: "advisory lock path serializing concurrent runs",
				Value: lockFile,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("ingest run failed")
	}
}

func run(c *cli.Context) error {
	unlock, err := acquireLock(c.String("lock-file"))
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	ctx := context.Background()

	proc, closeAll, err := wireProcessor(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	if err := proc.Process(ctx, os.Stdin); err != nil {
		logger.Log.Error().Err(err).Msg("email processing failed")
		return err
	}
	return nil
}

// wireProcessor builds every dependency an emailproc.Processor needs and
// returns a closer that releases them in reverse acquisition order.
func wireProcessor(ctx context.Context, cfg *config.Config) (*emailproc.Processor, func(), error) {
	preprocess.SetOfficeConverterPath(cfg.Subprocess().OfficeConverterPath)

	primaryDB, err := cfg.PrimaryDB()
	if err != nil {
		return nil, nil, err
	}
	externalDB, err := cfg.ExternalDB()
	if err != nil {
		return nil, nil, err
	}
	gw, err := persistence.Open(primaryDB.DSN, externalDB.DSN)
	if err != nil {
		return nil, nil, err
	}

	storeCfg, err := cfg.ObjectStore()
	if err != nil {
		gw.Close()
		return nil, nil, err
	}
	store, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:  storeCfg.Endpoint,
		AccessKey: storeCfg.AccessKey,
		SecretKey: storeCfg.SecretKey,
		Bucket:    storeCfg.Bucket,
		UseSSL:    storeCfg.UseSSL,
	})
	if err != nil {
		gw.Close()
		return nil, nil, err
	}

	metricsCfg := cfg.Metrics()
	m, err := metrics.Dial(fmt.Sprintf("%s:%s", metricsCfg.Host, metricsCfg.Port))
	if err != nil {
		gw.Close()
		return nil, nil, err
	}

	proc := emailproc.NewProcessor(gw, store, m)
	closer := func() {
		m.Close()
		gw.Close()
	}
	return proc, closer, nil
}

// acquireLock takes an exclusive flock on path, creating it if necessary.
// A second concurrent invocation blocks until the first releases the lock
// instead of racing it for the same per-file transactions.
func acquireLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening lock file %q: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("ingest: locking %q: %w", path, err)
	}
	return func() {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}
