package reviewdb

import "errors"
import "strings"
import "testing"

import . "github.com/smartystreets/goconvey/convey"

func TestValidName(t *testing.T) {
	Convey("Identifiers must be plain CQL names", t, func() {
		for _, name := range []string{"shop", "Shop", "products_2024", "a", strings.Repeat("x", 48)} {
			So(ValidName(name), ShouldBeTrue)
		}
		for _, name := range []string{"", "2shop", "_shop", "shop-1", "shop.products", "shop products",
			"x'; DROP TABLE y", "\"shop\"", strings.Repeat("x", 49)} {
			So(ValidName(name), ShouldBeFalse)
		}
	})

	Convey("The cluster's own keyspaces are reserved", t, func() {
		for _, name := range []string{"system", "system_schema", "SYSTEM_TRACES"} {
			So(SystemKeyspace(name), ShouldBeTrue)
		}
		for _, name := range []string{"shop", "systemic", "my_system"} {
			So(SystemKeyspace(name), ShouldBeFalse)
		}
	})
}

func TestReviewTable(t *testing.T) {
	Convey("Every review table has the same eleven columns", t, func() {
		a := ReviewTable("shop", "Laptops")
		b := ReviewTable("Other", "phones")
		So(len(a.Columns), ShouldEqual, 11)
		So(a.Columns, ShouldResemble, b.Columns)
		So(a.Columns[0], ShouldResemble, Column{Name: IDColumn, Type: "uuid"})
		So(a.PrimaryKey, ShouldResemble, []string{IDColumn})
		So(a.QualifiedName(), ShouldEqual, "shop.laptops")
		So(b.QualifiedName(), ShouldEqual, "other.phones")
		So(a.ColumnNames()[:3], ShouldResemble, []string{"id", "product_name", "product_searched"})
	})

	Convey("CreateStatement spells out the fixed schema", t, func() {
		stmt := ReviewTable("shop", "products").CreateStatement()
		So(stmt.String(), ShouldEqual, "CREATE TABLE IF NOT EXISTS shop.products ("+
			"id uuid, product_name text, product_searched text, price text, offer_details text, "+
			"discount_percent text, emi text, rating text, comment text, customer_name text, "+
			"review_age text, PRIMARY KEY (id))")
		So(stmt.Params(), ShouldBeEmpty)
	})

	Convey("DropStatement is guarded", t, func() {
		So(ReviewTable("shop", "products").DropStatement().String(), ShouldEqual,
			"DROP TABLE IF EXISTS shop.products")
	})

	Convey("Validate names the bad identifier", t, func() {
		So(ReviewTable("shop", "products").Validate(), ShouldBeNil)

		err := ReviewTable("shop-1", "products").Validate()
		So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "keyspace \"shop-1\"")

		err = ReviewTable("System_Schema", "tables").Validate()
		So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "reserved keyspace")

		err = ReviewTable("shop", strings.Repeat("p", 80)).Validate()
		So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "...")
	})
}
