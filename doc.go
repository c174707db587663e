/*
Package reviewdb stores product reviews in Cassandra, or in any cluster that speaks CQL, such as
Astra.

Every table managed by reviewdb has the same layout: a generated uuid primary key named id,
followed by ten optional text columns.

	id uuid PRIMARY KEY, product_name text, product_searched text, price text,
	offer_details text, discount_percent text, emi text, rating text, comment text,
	customer_name text, review_age text

A review is a Record, a struct with one *string field per text column. A nil field is left unset in
the stored row. Free-form maps can be turned into Records with ParseRecord, which rejects keys that
are not part of the layout.

# Connecting

A Dialer opens sessions. NewCassandraDialer connects to a live cluster, either through a list of
addresses or through a secure connect bundle:

	dialer, err := reviewdb.NewCassandraDialer(reviewdb.Config{
	    BundlePath: "secure-connect-shop.zip",
	    Username:   clientID,
	    Password:   secret,
	}, nil)

FakeDialer returns an in-memory cluster that understands the subset of CQL used by this package.
It is meant for tests and examples.

Every operation opens its own session and closes it before returning. Sessions are never pooled
or reused.

# Schema management

A Store's SchemaManager creates and drops keyspaces and tables. Each create or drop checks the
cluster catalog first and does nothing if there is nothing to do:

	store := reviewdb.NewStore(dialer, reviewdb.Options{Logger: logger})
	created, err := store.Schema.CreateKeyspace(ctx, "shop")   // true
	created, err = store.Schema.CreateKeyspace(ctx, "shop")    // false, no statement issued

Keyspace and table names must match [A-Za-z][A-Za-z0-9_]* and are at most 48 characters. They are
folded to lower case. The cluster's own keyspaces, system and system_*, are refused.

DiffTable reports how a live table has drifted from the fixed layout. Nothing is ever altered to
repair a drifted table.

Reading and writing

	id, err := store.InsertOne(ctx, "shop", "products", reviewdb.Record{
	    ProductName: reviewdb.String("Widget"),
	    Price:       reviewdb.String("10"),
	})
	rows, err := store.FindFirst(ctx, "shop", "products",
	    reviewdb.Filter{Column: "product_name", Value: "Widget"})

Inserts and reads create the keyspace and table they need. InsertMany inserts records one at a
time and keeps going past failures; the returned InsertResults say which records were stored.
FindAll reads a whole table into memory.

All values are sent as bound parameters.

# Errors

Every error returned by this package matches exactly one of ErrConnection, ErrSchemaOperation,
ErrQuery or ErrConversion with errors.Is. Kind returns that value. The underlying cause stays
reachable through errors.Unwrap.
*/
package reviewdb
