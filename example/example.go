package main

import "context"
import "flag"
import "fmt"
import "os"

import "github.com/go-kit/log"
import "github.com/go-kit/log/level"
import "github.com/prometheus/client_golang/prometheus"
import "gopkg.in/yaml.v3"

import "github.com/logan/reviewdb"
import "github.com/logan/reviewdb/frame"
import "github.com/logan/reviewdb/logging"

type config struct {
	Cassandra reviewdb.Config `yaml:"cassandra"`
	Log       logging.Config  `yaml:"log"`
	Keyspace  string          `yaml:"keyspace"`
	Table     string          `yaml:"table"`
}

func (cfg *config) RegisterFlags(f *flag.FlagSet) {
	cfg.Cassandra.RegisterFlags(f)
	cfg.Log.RegisterFlags(f)
	f.StringVar(&cfg.Keyspace, "keyspace", "shop", "Keyspace to store reviews in.")
	f.StringVar(&cfg.Table, "table", "products", "Table to store reviews in.")
}

// loadConfig parses flags, then applies the YAML file named by -config.file on top of them.
func loadConfig(args []string) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configFile := fs.String("config.file", "", "YAML file to load the configuration from.")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if *configFile == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(*configFile)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", *configFile, err)
	}
	return cfg, nil
}

func dialer(cfg *config, metrics *reviewdb.Metrics, logger log.Logger) (reviewdb.Dialer, error) {
	if cfg.Cassandra.Addresses == "" && cfg.Cassandra.BundlePath == "" {
		level.Info(logger).Log("msg", "no cluster configured, using an in-memory cluster")
		return reviewdb.FakeDialer(), nil
	}
	return reviewdb.NewCassandraDialer(cfg.Cassandra, metrics)
}

func run(ctx context.Context, cfg *config, logger log.Logger, metrics *reviewdb.Metrics) error {
	d, err := dialer(cfg, metrics, logger)
	if err != nil {
		return err
	}
	store := reviewdb.NewStore(d, reviewdb.Options{
		Logger:            logger,
		Metrics:           metrics,
		ReplicationFactor: cfg.Cassandra.ReplicationFactor,
	})

	if _, err := store.Schema.CreateKeyspace(ctx, cfg.Keyspace); err != nil {
		return err
	}
	records := []reviewdb.Record{
		{ProductName: reviewdb.String("Widget"), Price: reviewdb.String("10"), Rating: reviewdb.String("5"),
			Comment: reviewdb.String("does what it says")},
		{ProductName: reviewdb.String("Gadget"), Price: reviewdb.String("25"), Rating: reviewdb.String("2"),
			Comment: reviewdb.String("broke after a week")},
	}
	if err := store.InsertMany(ctx, cfg.Keyspace, cfg.Table, records).Err(); err != nil {
		return err
	}

	rows, err := store.FindFirst(ctx, cfg.Keyspace, cfg.Table, reviewdb.Filter{Column: "product_name", Value: "Widget"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Printf("Review %s:\n  %v\n", row.ID, row.Map())
	}

	rec, err := frame.Export(ctx, store, cfg.Keyspace, cfg.Table)
	if err != nil {
		return err
	}
	defer rec.Release()
	if err := frame.WriteCSV(os.Stdout, rec); err != nil {
		return err
	}

	diff, err := store.Schema.DiffTable(ctx, cfg.Keyspace, cfg.Table)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "schema checked", "diff", diff)

	_, err = store.Schema.DropTable(ctx, cfg.Keyspace, cfg.Table)
	return err
}

func main() {
	fail := func(err error) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(os.Args)
	if err != nil {
		fail(err)
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		fail(err)
	}
	defer closer.Close()

	metrics := reviewdb.NewMetrics(prometheus.DefaultRegisterer)
	if err := run(context.Background(), cfg, logger, metrics); err != nil {
		level.Error(logger).Log("msg", "example failed", "kind", reviewdb.Kind(err), "err", err)
		closer.Close()
		fail(err)
	}
}
