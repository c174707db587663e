package reviewdb

import "context"
import "errors"
import "strings"
import "sync"
import "testing"

import "github.com/stretchr/testify/require"

func countStatements(executed []string, prefix string) int {
	n := 0
	for _, stmt := range executed {
		if strings.HasPrefix(stmt, prefix) {
			n++
		}
	}
	return n
}

func TestCreateKeyspaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	defer ts.requireSessionsClosed(t)

	exists, err := ts.Schema.KeyspaceExists(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.False(t, exists)

	created, err := ts.Schema.CreateKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.True(t, created)

	created, err = ts.Schema.CreateKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.False(t, created, "second create should find the keyspace and do nothing")

	exists, err = ts.Schema.KeyspaceExists(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.True(t, exists)

	if ts.Fake != nil {
		require.Equal(t, 1, countStatements(ts.Fake.Executed(), "CREATE KEYSPACE"))
	}
}

func TestDropKeyspaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	defer ts.requireSessionsClosed(t)

	dropped, err := ts.Schema.DropKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.False(t, dropped)

	_, err = ts.Schema.CreateKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)
	_, err = ts.Schema.CreateTable(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)

	dropped, err = ts.Schema.DropKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.True(t, dropped)

	exists, err := ts.Schema.KeyspaceExists(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.False(t, exists)
	exists, err = ts.Schema.TableExists(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.False(t, exists, "dropping a keyspace drops its tables")

	dropped, err = ts.Schema.DropKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.False(t, dropped)
}

func TestKeyspaceNamesAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)

	_, err := ts.Schema.CreateKeyspace(ctx, strings.ToUpper(ts.Keyspace))
	require.NoError(t, err)
	exists, err := ts.Schema.KeyspaceExists(ctx, ts.Keyspace)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestTableLifecycle(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	defer ts.requireSessionsClosed(t)

	_, err := ts.Schema.CreateTable(ctx, ts.Keyspace, "reviews")
	require.ErrorIs(t, err, ErrSchemaOperation, "the keyspace must exist first")

	_, err = ts.Schema.CreateKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)

	exists, err := ts.Schema.TableExists(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.False(t, exists)

	created, err := ts.Schema.CreateTable(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.True(t, created)
	created, err = ts.Schema.CreateTable(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.False(t, created)

	exists, err = ts.Schema.TableExists(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.True(t, exists)

	dropped, err := ts.Schema.DropTable(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.True(t, dropped)
	dropped, err = ts.Schema.DropTable(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.False(t, dropped)

	exists, err = ts.Schema.TableExists(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEveryTableHasTheFixedSchema(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	_, err := ts.Schema.CreateKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)

	for _, name := range []string{"reviews", "Laptops", "phones_2024"} {
		_, err := ts.Schema.CreateTable(ctx, ts.Keyspace, name)
		require.NoError(t, err)
		diff, err := ts.Schema.DiffTable(ctx, ts.Keyspace, name)
		require.NoError(t, err)
		require.Zero(t, diff.Size(), "%s: %s", name, diff)
	}
}

func TestInvalidNamesAreRejectedLocally(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)

	for _, name := range []string{"", "1abc", "bad-name", "x; DROP KEYSPACE system", strings.Repeat("k", 49)} {
		_, err := ts.Schema.CreateKeyspace(ctx, name)
		require.ErrorIs(t, err, ErrSchemaOperation, name)
		require.ErrorIs(t, err, ErrInvalidName, name)

		_, err = ts.Schema.CreateTable(ctx, "valid", name)
		require.ErrorIs(t, err, ErrSchemaOperation, name)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}
	if ts.Fake != nil {
		require.Empty(t, ts.Fake.Executed())
	}
}

func TestCreateKeyspaceReplication(t *testing.T) {
	fake := NewFakeCluster()
	store := NewStore(fake, Options{ReplicationFactor: 3})
	created, err := store.Schema.CreateKeyspace(context.Background(), "Shop")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, map[string]string{"class": "SimpleStrategy", "replication_factor": "3"},
		fake.keyspaces["shop"].replication)
}

func TestSystemKeyspacesAreRejected(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)

	for _, name := range []string{"system", "system_schema", "System_Auth", "system_distributed"} {
		_, err := ts.Schema.DropKeyspace(ctx, name)
		require.ErrorIs(t, err, ErrSchemaOperation, name)
		require.ErrorIs(t, err, ErrInvalidName, name)

		_, err = ts.Schema.CreateKeyspace(ctx, name)
		require.ErrorIs(t, err, ErrInvalidName, name)

		_, err = ts.Schema.DropTable(ctx, name, "keyspaces")
		require.ErrorIs(t, err, ErrSchemaOperation, name)
		require.ErrorIs(t, err, ErrInvalidName, name)

		_, err = ts.InsertOne(ctx, name, "reviews", sampleRecord(1))
		require.ErrorIs(t, err, ErrInvalidName, name)
	}
	if ts.Fake != nil {
		require.Empty(t, ts.Fake.Executed())
	}

	created, err := ts.Schema.CreateKeyspace(ctx, "systemic")
	require.NoError(t, err)
	require.True(t, created)
	_, err = ts.Schema.DropKeyspace(ctx, "systemic")
	require.NoError(t, err)
}

func TestConcurrentCreateTable(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	defer ts.requireSessionsClosed(t)
	_, err := ts.Schema.CreateKeyspace(ctx, ts.Keyspace)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	created := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created[i], errs[i] = ts.Schema.CreateTable(ctx, ts.Keyspace, "reviews")
		}(i)
	}
	wg.Wait()

	creators := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if created[i] {
			creators++
		}
	}
	require.GreaterOrEqual(t, creators, 1)

	diff, err := ts.Schema.DiffTable(ctx, ts.Keyspace, "reviews")
	require.NoError(t, err)
	require.Zero(t, diff.Size(), "racing creators must not leave a partial table: %s", diff)
}

func TestSchemaStatementFailures(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	fake := ts.requireFake(t)
	defer ts.requireSessionsClosed(t)

	boom := errors.New("operation timed out")
	fake.FailStatements("CREATE KEYSPACE", boom)
	_, err := ts.Schema.CreateKeyspace(ctx, ts.Keyspace)
	require.ErrorIs(t, err, ErrSchemaOperation)
	require.ErrorIs(t, err, boom)
	require.Equal(t, ErrSchemaOperation, Kind(err))

	fake.ClearFailures()
	fake.FailStatements("system_schema.tables", boom)
	_, err = ts.Schema.TableExists(ctx, ts.Keyspace, "reviews")
	require.ErrorIs(t, err, ErrSchemaOperation)
	require.ErrorIs(t, err, boom)
}

func TestSchemaConnectionFailure(t *testing.T) {
	refused := errors.New("connection refused")
	dialer := DialerFunc(func(ctx context.Context) (Session, error) { return nil, refused })
	store := NewStore(dialer, Options{})

	_, err := store.Schema.CreateKeyspace(context.Background(), "shop")
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, refused)
	require.NotErrorIs(t, err, ErrSchemaOperation)
}
