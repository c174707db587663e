package reviewdb

import "context"
import "fmt"
import "strings"
import "time"

import "github.com/go-kit/log"
import "github.com/go-kit/log/level"

// SchemaManager checks for, creates and drops keyspaces and review tables.
//
// Every create and drop is guarded by an existence check that is not atomic with the action.
// The statements themselves carry IF NOT EXISTS / IF EXISTS so that two callers racing past the
// check cannot leave a half-created table behind.
type SchemaManager struct {
	sessions          *ConnectionManager
	logger            log.Logger
	metrics           *Metrics
	replicationFactor int
}

// NewSchemaManager returns a SchemaManager that opens its sessions from the given manager.
func NewSchemaManager(sessions *ConnectionManager, opts Options) *SchemaManager {
	opts = opts.withDefaults()
	return &SchemaManager{
		sessions:          sessions,
		logger:            opts.Logger,
		metrics:           opts.Metrics,
		replicationFactor: opts.ReplicationFactor,
	}
}

func normalizeKeyspace(name string) (string, error) {
	name = strings.ToLower(name)
	if !ValidName(name) {
		return "", WrapError(ErrSchemaOperation, "keyspace "+quoteName(name), ErrInvalidName)
	}
	if SystemKeyspace(name) {
		return "", WrapError(ErrSchemaOperation, "reserved keyspace "+quoteName(name), ErrInvalidName)
	}
	return name, nil
}

func reviewTable(keyspace, table string) (*Table, error) {
	t := ReviewTable(keyspace, table)
	if err := t.Validate(); err != nil {
		return nil, WrapError(ErrSchemaOperation, "invalid table", err)
	}
	return t, nil
}

// KeyspaceExists reports whether the named keyspace is present in the cluster catalog.
func (m *SchemaManager) KeyspaceExists(ctx context.Context, name string) (exists bool, err error) {
	defer m.metrics.instrument("keyspace_exists", time.Now(), &err)
	if name, err = normalizeKeyspace(name); err != nil {
		return false, err
	}
	session, err := m.sessions.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer m.sessions.Release(session)
	return m.keyspaceExists(ctx, session, name)
}

// CreateKeyspace creates the named keyspace unless it is already present. It returns true if a
// create statement was issued.
func (m *SchemaManager) CreateKeyspace(ctx context.Context, name string) (created bool, err error) {
	defer m.metrics.instrument("create_keyspace", time.Now(), &err)
	if name, err = normalizeKeyspace(name); err != nil {
		return false, err
	}
	session, err := m.sessions.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer m.sessions.Release(session)
	return m.createKeyspace(ctx, session, name)
}

// DropKeyspace drops the named keyspace and every table in it, if present. It returns true if a
// drop statement was issued.
func (m *SchemaManager) DropKeyspace(ctx context.Context, name string) (dropped bool, err error) {
	defer m.metrics.instrument("drop_keyspace", time.Now(), &err)
	if name, err = normalizeKeyspace(name); err != nil {
		return false, err
	}
	session, err := m.sessions.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer m.sessions.Release(session)

	exists, err := m.keyspaceExists(ctx, session, name)
	if err != nil {
		return false, err
	}
	if !exists {
		level.Info(m.logger).Log("msg", "keyspace is not available", "keyspace", name)
		return false, nil
	}
	var b CQLBuilder
	b.Append("DROP KEYSPACE IF EXISTS ").Append(name)
	if err := session.Query(ctx, b.CQL()).Exec(); err != nil {
		return false, wrapf(ErrSchemaOperation, err, "drop keyspace %s", name)
	}
	level.Info(m.logger).Log("msg", "keyspace dropped", "keyspace", name)
	return true, nil
}

// TableExists reports whether the named table is present in the keyspace.
func (m *SchemaManager) TableExists(ctx context.Context, keyspace, table string) (exists bool, err error) {
	defer m.metrics.instrument("table_exists", time.Now(), &err)
	t, err := reviewTable(keyspace, table)
	if err != nil {
		return false, err
	}
	session, err := m.sessions.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer m.sessions.Release(session)
	return m.tableExists(ctx, session, t)
}

// CreateTable creates a review table with the fixed schema unless it is already present. The
// keyspace must exist. It returns true if a create statement was issued.
func (m *SchemaManager) CreateTable(ctx context.Context, keyspace, table string) (created bool, err error) {
	defer m.metrics.instrument("create_table", time.Now(), &err)
	t, err := reviewTable(keyspace, table)
	if err != nil {
		return false, err
	}
	session, err := m.sessions.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer m.sessions.Release(session)
	return m.createTable(ctx, session, t)
}

// DropTable drops the named table if present. It returns true if a drop statement was issued.
func (m *SchemaManager) DropTable(ctx context.Context, keyspace, table string) (dropped bool, err error) {
	defer m.metrics.instrument("drop_table", time.Now(), &err)
	t, err := reviewTable(keyspace, table)
	if err != nil {
		return false, err
	}
	session, err := m.sessions.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer m.sessions.Release(session)

	exists, err := m.tableExists(ctx, session, t)
	if err != nil {
		return false, err
	}
	if !exists {
		level.Info(m.logger).Log("msg", "table is not available", "keyspace", t.Keyspace, "table", t.Name)
		return false, nil
	}
	if err := session.Query(ctx, t.DropStatement()).Exec(); err != nil {
		return false, wrapf(ErrSchemaOperation, err, "drop table %s", t.QualifiedName())
	}
	level.Info(m.logger).Log("msg", "table dropped", "keyspace", t.Keyspace, "table", t.Name)
	return true, nil
}

func (m *SchemaManager) keyspaceExists(ctx context.Context, session Session, name string) (bool, error) {
	q := session.Query(ctx, Select("keyspace_name").From("system_schema.keyspaces").
		Where("keyspace_name = ?", name).CQL())
	var found string
	exists := false
	for q.Scan(&found) {
		if found == name {
			exists = true
		}
	}
	if err := q.Close(); err != nil {
		return false, wrapf(ErrSchemaOperation, err, "check keyspace %s", name)
	}
	return exists, nil
}

func (m *SchemaManager) tableExists(ctx context.Context, session Session, t *Table) (bool, error) {
	q := session.Query(ctx, Select("table_name").From("system_schema.tables").
		Where("keyspace_name = ?", t.Keyspace).CQL())
	var found string
	exists := false
	for q.Scan(&found) {
		if found == t.Name {
			exists = true
		}
	}
	if err := q.Close(); err != nil {
		return false, wrapf(ErrSchemaOperation, err, "check table %s", t.QualifiedName())
	}
	return exists, nil
}

func (m *SchemaManager) createKeyspace(ctx context.Context, session Session, name string) (bool, error) {
	exists, err := m.keyspaceExists(ctx, session, name)
	if err != nil {
		return false, err
	}
	if exists {
		level.Info(m.logger).Log("msg", "keyspace is already available", "keyspace", name)
		return false, nil
	}
	var b CQLBuilder
	b.Append("CREATE KEYSPACE IF NOT EXISTS ").Append(name)
	b.Append(fmt.Sprintf(" WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': %d}",
		m.replicationFactor))
	if err := session.Query(ctx, b.CQL()).Exec(); err != nil {
		return false, wrapf(ErrSchemaOperation, err, "create keyspace %s", name)
	}
	level.Info(m.logger).Log("msg", "keyspace created", "keyspace", name)
	return true, nil
}

func (m *SchemaManager) createTable(ctx context.Context, session Session, t *Table) (bool, error) {
	exists, err := m.tableExists(ctx, session, t)
	if err != nil {
		return false, err
	}
	if exists {
		level.Info(m.logger).Log("msg", "table already exists", "keyspace", t.Keyspace, "table", t.Name)
		return false, nil
	}
	if err := session.Query(ctx, t.CreateStatement()).Exec(); err != nil {
		return false, wrapf(ErrSchemaOperation, err, "create table %s", t.QualifiedName())
	}
	level.Info(m.logger).Log("msg", "table created", "keyspace", t.Keyspace, "table", t.Name)
	return true, nil
}

// ensure creates the keyspace and table of t if either is missing.
func (m *SchemaManager) ensure(ctx context.Context, session Session, t *Table) error {
	exists, err := m.tableExists(ctx, session, t)
	if err != nil || exists {
		return err
	}
	if _, err := m.createKeyspace(ctx, session, t.Keyspace); err != nil {
		return err
	}
	_, err = m.createTable(ctx, session, t)
	return err
}
