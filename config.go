package reviewdb

import "errors"
import "flag"
import "strings"
import "time"

import "github.com/gocql/gocql"

// Config specifies the cluster to connect to and how to authenticate with it.
//
// Exactly one of BundlePath or Addresses is required. A secure connect bundle carries the
// endpoint and TLS material, so the address and TLS fields are ignored when it is set.
type Config struct {
	BundlePath string `yaml:"bundle_path"`
	Addresses  string `yaml:"addresses"` // Comma-separated host or host:port list.
	Port       int    `yaml:"port"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	TLS              bool   `yaml:"tls"`
	HostVerification bool   `yaml:"host_verification"`
	CAPath           string `yaml:"ca_path"`

	// One of any, one, two, three, quorum, all, local_quorum, each_quorum or local_one.
	// Matching is case insensitive and '-' may be used in place of '_'.
	Consistency       string `yaml:"consistency"`
	ReplicationFactor int    `yaml:"replication_factor"`

	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// RegisterFlags adds the flags required to configure this to the given FlagSet.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.BundlePath, "cassandra.bundle-path", "", "Path to a secure connect bundle (zip) for the cluster.")
	f.StringVar(&cfg.Addresses, "cassandra.addresses", "", "Comma-separated hostnames or ips of Cassandra instances.")
	f.IntVar(&cfg.Port, "cassandra.port", 9042, "Port that Cassandra is running on.")
	f.StringVar(&cfg.Username, "cassandra.username", "", "Client id (username) to authenticate with.")
	f.StringVar(&cfg.Password, "cassandra.password", "", "Client secret (password) to authenticate with.")
	f.BoolVar(&cfg.TLS, "cassandra.tls", false, "Use TLS when connecting to the given addresses.")
	f.BoolVar(&cfg.HostVerification, "cassandra.host-verification", true, "Require TLS certificate validation.")
	f.StringVar(&cfg.CAPath, "cassandra.ca-path", "", "Path to certificate file to verify the peer.")
	f.StringVar(&cfg.Consistency, "cassandra.consistency", "LOCAL_QUORUM", "Consistency level for statements.")
	f.IntVar(&cfg.ReplicationFactor, "cassandra.replication-factor", 1, "Replication factor for keyspaces created by this client.")
	f.DurationVar(&cfg.Timeout, "cassandra.timeout", 10*time.Second, "Timeout for a single statement.")
	f.DurationVar(&cfg.ConnectTimeout, "cassandra.connect-timeout", 10*time.Second, "Timeout when opening a session.")
}

// Validate checks that the config can be used to dial a cluster.
func (cfg *Config) Validate() error {
	if cfg.BundlePath == "" && cfg.Addresses == "" {
		return errors.New("one of bundle path or addresses is required")
	}
	if cfg.BundlePath != "" && cfg.Addresses != "" {
		return errors.New("bundle path and addresses are mutually exclusive")
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return errors.New("username and password must be given together")
	}
	if _, err := parseConsistency(cfg.Consistency); err != nil {
		return err
	}
	if cfg.ReplicationFactor < 0 {
		return errors.New("replication factor must not be negative")
	}
	return nil
}

func (cfg *Config) hosts() []string {
	var hosts []string
	for _, h := range strings.Split(cfg.Addresses, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func parseConsistency(value string) (gocql.Consistency, error) {
	if value == "" {
		return gocql.LocalQuorum, nil
	}
	return gocql.ParseConsistencyWrapper(strings.ToUpper(strings.ReplaceAll(value, "-", "_")))
}
