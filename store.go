package reviewdb

import "context"
import "time"

import "github.com/go-kit/log"
import "github.com/go-kit/log/level"
import "github.com/gocql/gocql"
import "github.com/prometheus/client_golang/prometheus"
import "go.uber.org/multierr"

// Options configure a Store and its SchemaManager. The zero value is usable.
type Options struct {
	Logger            log.Logger            // Defaults to a no-op logger.
	Registerer        prometheus.Registerer // Used to register Metrics when Metrics is nil.
	Metrics           *Metrics
	IDs               IDGenerator // Defaults to random UUIDs.
	ReplicationFactor int         // Replication factor of created keyspaces. Defaults to 1.
}

func (opts Options) withDefaults() Options {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(opts.Registerer)
	}
	if opts.IDs == nil {
		opts.IDs = NewIDGenerator()
	}
	if opts.ReplicationFactor <= 0 {
		opts.ReplicationFactor = 1
	}
	return opts
}

// Store reads and writes review records. Each operation opens its own session, lazily creates
// the keyspace and table it needs, and closes the session before returning.
type Store struct {
	Sessions *ConnectionManager
	Schema   *SchemaManager

	ids     IDGenerator
	logger  log.Logger
	metrics *Metrics
}

// NewStore returns a Store that opens its sessions with the given dialer.
func NewStore(dialer Dialer, opts Options) *Store {
	opts = opts.withDefaults()
	sessions := NewConnectionManager(dialer, opts.Logger, opts.Metrics)
	return &Store{
		Sessions: sessions,
		Schema:   NewSchemaManager(sessions, opts),
		ids:      opts.IDs,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Filter is a single column = value condition.
type Filter struct {
	Column string
	Value  string
}

// InsertResult is the outcome of inserting one record of a batch.
type InsertResult struct {
	Index int // position of the record in the input
	ID    gocql.UUID
	Err   error
}

// InsertResults lists the outcome of every record given to InsertMany, in input order.
type InsertResults []InsertResult

// Inserted returns the number of records that were stored.
func (rs InsertResults) Inserted() int {
	n := 0
	for _, r := range rs {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results of the records that were not stored.
func (rs InsertResults) Failed() InsertResults {
	var failed InsertResults
	for _, r := range rs {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err combines the errors of every failed record, or returns nil if all were stored.
func (rs InsertResults) Err() error {
	var err error
	for _, r := range rs {
		err = multierr.Append(err, r.Err)
	}
	return err
}

// InsertOne stores a record under a freshly generated id, creating the keyspace and table first
// if they are missing.
func (s *Store) InsertOne(ctx context.Context, keyspace, table string, record Record) (id gocql.UUID, err error) {
	defer s.metrics.instrument("insert_one", time.Now(), &err)
	if err = record.Validate(); err != nil {
		return gocql.UUID{}, err
	}
	t, err := reviewTable(keyspace, table)
	if err != nil {
		return gocql.UUID{}, err
	}
	session, err := s.Sessions.Acquire(ctx)
	if err != nil {
		return gocql.UUID{}, err
	}
	defer s.Sessions.Release(session)

	if err = s.Schema.ensure(ctx, session, t); err != nil {
		return gocql.UUID{}, err
	}
	return s.insert(ctx, session, t, record)
}

func (s *Store) insert(ctx context.Context, session Session, t *Table, record Record) (gocql.UUID, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return gocql.UUID{}, WrapError(ErrQuery, "generate id", err)
	}
	names, values := record.assigned()
	stmt := InsertInto(t.QualifiedName()).
		Keys(IDColumn).Keys(names...).
		Values(id).Values(values...).CQL()
	if err := session.Query(ctx, stmt).Exec(); err != nil {
		return gocql.UUID{}, wrapf(ErrQuery, err, "insert into %s", t.QualifiedName())
	}
	level.Debug(s.logger).Log("msg", "record inserted", "keyspace", t.Keyspace, "table", t.Name, "id", id)
	return id, nil
}

// InsertMany inserts each record with InsertOne, one after another. There is no batching and no
// atomicity across records: a record that fails is reported in its result and the remaining
// records are still inserted.
func (s *Store) InsertMany(ctx context.Context, keyspace, table string, records []Record) InsertResults {
	results := make(InsertResults, len(records))
	for i, record := range records {
		id, err := s.InsertOne(ctx, keyspace, table, record)
		results[i] = InsertResult{Index: i, ID: id, Err: err}
		if err != nil {
			level.Debug(s.logger).Log("msg", "record insertion failed", "index", i, "err", err)
		}
	}
	return results
}

// FindFirst returns at most one row whose column equals the filter value. The filter column
// need not be indexed; the cluster scans with ALLOW FILTERING.
func (s *Store) FindFirst(ctx context.Context, keyspace, table string, filter Filter) (rows []Row, err error) {
	defer s.metrics.instrument("find_first", time.Now(), &err)
	value, err := filterValue(filter)
	if err != nil {
		return nil, err
	}
	t, err := reviewTable(keyspace, table)
	if err != nil {
		return nil, err
	}
	sel := Select(t.ColumnNames()...).From(t.QualifiedName()).
		Where(filter.Column+" = ?", value).
		Limit(1).AllowFiltering()
	return s.selectRows(ctx, t, sel)
}

// FindAll returns every row of the table. The whole result is held in memory; there is no
// paging, so this is only suitable for tables of modest size.
func (s *Store) FindAll(ctx context.Context, keyspace, table string) (rows []Row, err error) {
	defer s.metrics.instrument("find_all", time.Now(), &err)
	t, err := reviewTable(keyspace, table)
	if err != nil {
		return nil, err
	}
	return s.selectRows(ctx, t, Select(t.ColumnNames()...).From(t.QualifiedName()))
}

func filterValue(filter Filter) (interface{}, error) {
	switch {
	case filter.Column == IDColumn:
		id, err := gocql.ParseUUID(filter.Value)
		if err != nil {
			return nil, WrapError(ErrQuery, "id filter", ErrInvalidFilter)
		}
		return id, nil
	case IsRecordColumn(filter.Column):
		return filter.Value, nil
	default:
		return nil, WrapError(ErrQuery, "unknown column "+quoteName(filter.Column), ErrInvalidFilter)
	}
}

func (s *Store) selectRows(ctx context.Context, t *Table, sel *SelectBuilder) ([]Row, error) {
	session, err := s.Sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Sessions.Release(session)

	if err := s.Schema.ensure(ctx, session, t); err != nil {
		return nil, err
	}
	q := session.Query(ctx, sel.CQL())
	rows := make([]Row, 0)
	for {
		var row Row
		if !q.Scan(row.pointers()...) {
			break
		}
		rows = append(rows, row)
	}
	if err := q.Close(); err != nil {
		return nil, wrapf(ErrQuery, err, "select from %s", t.QualifiedName())
	}
	level.Debug(s.logger).Log("msg", "query was executed", "keyspace", t.Keyspace, "table", t.Name, "rows", len(rows))
	return rows, nil
}
