package reviewdb

import "flag"
import "testing"
import "time"

import "github.com/gocql/gocql"
import "github.com/stretchr/testify/require"
import "gopkg.in/yaml.v3"

func TestConfigFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-cassandra.addresses", "10.0.0.1, 10.0.0.2:9043,",
		"-cassandra.username", "client",
		"-cassandra.password", "secret",
		"-cassandra.consistency", "quorum",
	}))

	require.Equal(t, 9042, cfg.Port)
	require.Equal(t, 1, cfg.ReplicationFactor)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.True(t, cfg.HostVerification)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2:9043"}, cfg.hosts())
	require.NoError(t, cfg.Validate())
}

func TestConfigYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(`
bundle_path: /etc/reviewdb/bundle.zip
username: client
password: secret
consistency: local-one
timeout: 5s
`), &cfg))
	require.Equal(t, "/etc/reviewdb/bundle.zip", cfg.BundlePath)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	for name, cfg := range map[string]Config{
		"no endpoint":       {},
		"both endpoints":    {BundlePath: "b.zip", Addresses: "localhost"},
		"half credentials":  {Addresses: "localhost", Username: "client"},
		"bad consistency":   {Addresses: "localhost", Consistency: "most"},
		"negative replicas": {Addresses: "localhost", ReplicationFactor: -1},
	} {
		require.Error(t, cfg.Validate(), name)
	}
}

func TestParseConsistency(t *testing.T) {
	for value, want := range map[string]gocql.Consistency{
		"":             gocql.LocalQuorum,
		"one":          gocql.One,
		"LOCAL_QUORUM": gocql.LocalQuorum,
		"local-one":    gocql.LocalOne,
		"Each_Quorum":  gocql.EachQuorum,
	} {
		got, err := parseConsistency(value)
		require.NoError(t, err, value)
		require.Equal(t, want, got, value)
	}
	_, err := parseConsistency("everyone")
	require.Error(t, err)
}

func TestNewCassandraDialer(t *testing.T) {
	d, err := NewCassandraDialer(Config{
		Addresses:   "db1,db2",
		Port:        9043,
		Username:    "client",
		Password:    "secret",
		Consistency: "two",
		Timeout:     time.Second,
	}, NewMetrics(nil))
	require.NoError(t, err)
	require.Equal(t, []string{"db1", "db2"}, d.cluster.Hosts)
	require.Equal(t, 9043, d.cluster.Port)
	require.Equal(t, gocql.Two, d.cluster.Consistency)
	require.Equal(t, time.Second, d.cluster.Timeout)
	require.Equal(t, gocql.PasswordAuthenticator{Username: "client", Password: "secret"}, d.cluster.Authenticator)
	require.NotNil(t, d.cluster.QueryObserver)

	_, err = NewCassandraDialer(Config{}, nil)
	require.ErrorIs(t, err, ErrConnection)

	_, err = NewCassandraDialer(Config{BundlePath: "/does/not/exist.zip"}, nil)
	require.ErrorIs(t, err, ErrConnection)
}
