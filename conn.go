package reviewdb

import "context"
import "time"

import "github.com/go-kit/log"
import "github.com/go-kit/log/level"
import "github.com/gocql/gocql"

// CassandraDialer opens gocql sessions against a live cluster.
type CassandraDialer struct {
	cfg     Config
	cluster *gocql.ClusterConfig
}

// NewCassandraDialer validates the config and prepares the cluster settings used by every Dial.
// A secure connect bundle is read once, here.
func NewCassandraDialer(cfg Config, metrics *Metrics) (*CassandraDialer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, WrapError(ErrConnection, "invalid config", err)
	}
	cluster, err := makeCluster(cfg)
	if err != nil {
		return nil, WrapError(ErrConnection, "invalid config", err)
	}
	if metrics != nil {
		cluster.QueryObserver = observer{metrics}
	}
	return &CassandraDialer{cfg: cfg, cluster: cluster}, nil
}

func makeCluster(cfg Config) (*gocql.ClusterConfig, error) {
	consistency, err := parseConsistency(cfg.Consistency)
	if err != nil {
		return nil, err
	}

	var cluster *gocql.ClusterConfig
	if cfg.BundlePath != "" {
		b, err := readBundle(cfg.BundlePath)
		if err != nil {
			return nil, err
		}
		tlsConfig, err := b.tlsConfig()
		if err != nil {
			return nil, err
		}
		cluster = gocql.NewCluster(b.endpoint())
		cluster.SslOpts = &gocql.SslOptions{Config: tlsConfig, EnableHostVerification: true}
		if b.LocalDC != "" {
			cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(
				gocql.DCAwareRoundRobinPolicy(b.LocalDC))
		}
	} else {
		cluster = gocql.NewCluster(cfg.hosts()...)
		if cfg.Port != 0 {
			cluster.Port = cfg.Port
		}
		if cfg.TLS {
			cluster.SslOpts = &gocql.SslOptions{
				CaPath:                 cfg.CAPath,
				EnableHostVerification: cfg.HostVerification,
			}
		}
	}

	cluster.Consistency = consistency
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	return cluster, nil
}

// Dial opens a new gocql session. No keyspace is bound to the session; statements name their
// keyspace explicitly.
func (d *CassandraDialer) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, err := d.cluster.CreateSession()
	if err != nil {
		return nil, withStack(err)
	}
	return &cassandraSession{session}, nil
}

type cassandraSession struct {
	session *gocql.Session
}

func (s *cassandraSession) Query(ctx context.Context, stmt CQL) Query {
	q := s.session.Query(stmt.String(), stmt.params...).WithContext(ctx)
	return (*cassQuery)(q.Iter())
}

func (s *cassandraSession) Close() error {
	if s.session.Closed() {
		return ErrSessionClosed
	}
	s.session.Close()
	return nil
}

type cassQuery gocql.Iter

func (iter *cassQuery) Close() error {
	return withStackOrNil((*gocql.Iter)(iter).Close())
}

func (iter *cassQuery) Exec() error {
	return iter.Close()
}

func (iter *cassQuery) Scan(dest ...interface{}) bool {
	return (*gocql.Iter)(iter).Scan(dest...)
}

func withStackOrNil(err error) error {
	if err == nil {
		return nil
	}
	return withStack(err)
}

// observer records the duration of every statement sent by gocql.
type observer struct {
	metrics *Metrics
}

func (o observer) ObserveQuery(ctx context.Context, q gocql.ObservedQuery) {
	o.metrics.observeStatement(q.End.Sub(q.Start), q.Err)
}

// ConnectionManager hands out one session per logical operation.
type ConnectionManager struct {
	dialer  Dialer
	logger  log.Logger
	metrics *Metrics
}

// NewConnectionManager returns a ConnectionManager that opens sessions with the given dialer.
func NewConnectionManager(dialer Dialer, logger log.Logger, metrics *Metrics) *ConnectionManager {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ConnectionManager{dialer: dialer, logger: logger, metrics: metrics}
}

// Acquire opens a new session. The caller must hand it back to Release.
func (m *ConnectionManager) Acquire(ctx context.Context) (Session, error) {
	start := time.Now()
	session, err := m.dialer.Dial(ctx)
	if err != nil {
		m.metrics.sessionFailures.Inc()
		return nil, WrapError(ErrConnection, "unable to establish a session", err)
	}
	m.metrics.sessionsOpened.Inc()
	level.Debug(m.logger).Log("msg", "session opened", "duration", time.Since(start))
	return session, nil
}

// Release closes a session. Failures are logged and otherwise ignored.
func (m *ConnectionManager) Release(session Session) {
	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		level.Warn(m.logger).Log("msg", "error when shutting down the session", "err", err)
	}
}
