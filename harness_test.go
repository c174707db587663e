package reviewdb

import "context"
import "flag"
import "fmt"
import "os"
import "testing"

import "github.com/go-kit/log"
import "github.com/gocql/gocql"
import "github.com/prometheus/client_golang/prometheus"

var (
	flagCluster  = flag.String("cluster", "", "cassandra nodes given as comma-separated host:port pairs")
	flagKeyspace = flag.String("keyspace", "reviewdb_test", "name of throwaway keyspace for testing")
	flagVerbose  = flag.Bool("log", false, "log store operations to stderr")
)

// sequentialIDs hands out predictable ids: 00000000-0000-4000-8000-00000000000N.
type sequentialIDs uint64

func (g *sequentialIDs) NewID() (gocql.UUID, error) {
	*g++
	var id gocql.UUID
	id[6] = 0x40
	id[8] = 0x80
	for i, n := 15, uint64(*g); n > 0 && i > 8; i, n = i-1, n>>8 {
		id[i] = byte(n)
	}
	return id, nil
}

type testStore struct {
	*Store
	Fake     *FakeCluster // nil against a live cluster
	Registry *prometheus.Registry
	Keyspace string
}

// newTestStore returns a Store onto the in-memory fake, or onto the live cluster named by
// -cluster. Against a live cluster the test keyspace is dropped before and after the test.
func newTestStore(t *testing.T) *testStore {
	t.Helper()
	ts := &testStore{Registry: prometheus.NewRegistry(), Keyspace: *flagKeyspace}
	var dialer Dialer
	if *flagCluster == "" {
		ts.Fake = NewFakeCluster()
		dialer = ts.Fake
	} else {
		d, err := NewCassandraDialer(Config{Addresses: *flagCluster, Consistency: "one"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		dialer = d
	}

	logger := log.NewNopLogger()
	if *flagVerbose {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	ids := sequentialIDs(0)
	ts.Store = NewStore(dialer, Options{Logger: logger, Registerer: ts.Registry, IDs: &ids})

	if ts.Fake == nil {
		dropKeyspace := func() {
			if _, err := ts.Schema.DropKeyspace(context.Background(), ts.Keyspace); err != nil {
				t.Fatal(err)
			}
		}
		dropKeyspace()
		t.Cleanup(dropKeyspace)
	}
	return ts
}

// requireSessionsClosed fails the test if any session was left open. It is a no-op on a live cluster.
func (ts *testStore) requireSessionsClosed(t *testing.T) {
	t.Helper()
	if ts.Fake != nil && ts.Fake.OpenSessions() != 0 {
		t.Fatalf("%d sessions left open", ts.Fake.OpenSessions())
	}
}

func (ts *testStore) requireFake(t *testing.T) *FakeCluster {
	t.Helper()
	if ts.Fake == nil {
		t.Skip("needs the in-memory cluster")
	}
	return ts.Fake
}

func sampleRecord(i int) Record {
	return Record{
		ProductName:     String(fmt.Sprintf("product %d", i)),
		ProductSearched: String("headphones"),
		Price:           String(fmt.Sprintf("%d.99", i)),
		Rating:          String(fmt.Sprint(i%5 + 1)),
		Comment:         String("fine"),
		CustomerName:    String(fmt.Sprintf("customer %d", i)),
	}
}
