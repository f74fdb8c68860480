package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/vibebill/internal/migrate"
	"github.com/mmynk/vibebill/internal/models"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestStore(t *testing.T, opts Options) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "data", "vibebill.db")
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	store, err := New(dbPath, opts)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

type fixture struct {
	seller   *models.Seller
	customer *models.Customer
}

func seed(t *testing.T, store *SQLiteStore) fixture {
	t.Helper()
	ctx := context.Background()

	seller := models.NewSeller("Muster GmbH")
	seller.BankIBAN = "DE02120300000000202051"
	require.NoError(t, store.CreateSeller(ctx, seller))

	customer := &models.Customer{Name: "Beispiel AG", City: "Berlin"}
	require.NoError(t, store.CreateCustomer(ctx, customer))

	return fixture{seller: seller, customer: customer}
}

func twoItems() []models.InvoiceItem {
	return []models.InvoiceItem{
		{Description: "Beratung", Quantity: dec("2"), Unit: "h", PriceNet: dec("100"), TaxRate: dec("19")},
		{Description: "Reisekosten", Quantity: dec("1"), PriceNet: dec("50"), TaxRate: dec("19")},
	}
}

func dumpSchema(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT type, name, COALESCE(sql, '') FROM sqlite_master
		WHERE name NOT LIKE 'sqlite_%' ORDER BY type, name`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var typ, name, stmt string
		require.NoError(t, rows.Scan(&typ, &name, &stmt))
		out = append(out, typ+"|"+name+"|"+stmt)
	}
	require.NoError(t, rows.Err())
	return out
}

func openRaw(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := OpenDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRegistry(t *testing.T) {
	require.NoError(t, migrate.Validate(Registry()))
}

func TestSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("new store is at the latest version", func(t *testing.T) {
		store, dbPath := newTestStore(t, Options{})
		require.Equal(t, len(Registry()), store.SchemaVersion())
		require.Len(t, store.Schema().Applied, len(Registry()))
		require.NoError(t, store.Close())

		reopened, err := New(dbPath, Options{})
		require.NoError(t, err)
		defer reopened.Close()
		require.Equal(t, len(Registry()), reopened.SchemaVersion())
		require.Empty(t, reopened.Schema().Applied)
	})

	t.Run("incremental application matches full application", func(t *testing.T) {
		registry := Registry()
		full := openRaw(t, filepath.Join(t.TempDir(), "full.db"))
		_, err := migrate.Up(ctx, full, registry)
		require.NoError(t, err)
		want := dumpSchema(t, full)

		for prefix := 1; prefix < len(registry); prefix++ {
			db := openRaw(t, filepath.Join(t.TempDir(), fmt.Sprintf("prefix-%d.db", prefix)))
			_, err := migrate.UpTo(ctx, db, registry, prefix)
			require.NoError(t, err)
			_, err = migrate.Up(ctx, db, registry)
			require.NoError(t, err)
			require.Equal(t, want, dumpSchema(t, db), "prefix %d", prefix)
		}
	})

	t.Run("upgrade keeps existing rows and fills column defaults", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "old.db")
		db := openRaw(t, dbPath)
		_, err := migrate.UpTo(ctx, db, Registry(), 1)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO sellers (name, city, invoice_prefix, next_invoice_number) VALUES ('Alt GmbH', 'Hamburg', 'AR', 42)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		store, err := New(dbPath, Options{})
		require.NoError(t, err)
		defer store.Close()

		sellers, err := store.ListSellers(ctx)
		require.NoError(t, err)
		require.Len(t, sellers, 1)
		s := sellers[0]
		require.Equal(t, "Alt GmbH", s.Name)
		require.Equal(t, "Hamburg", s.City)
		require.Equal(t, "AR", s.InvoicePrefix)
		require.Equal(t, int64(42), s.NextInvoiceNumber)
		require.Equal(t, "classic", s.PDFTemplate)
		require.Equal(t, "#3b82f6", s.Color)
		require.False(t, s.DefaultTaxRate.Valid)
	})

	t.Run("failing migration aborts startup", func(t *testing.T) {
		registry := append(Registry(), migrate.Migration{
			Version:     len(Registry()) + 1,
			Description: "broken",
			Operations: []migrate.Operation{
				migrate.CreateIndex{Name: "idx_missing", Table: "missing_table", Columns: []string{"id"}},
			},
		})
		_, err := New(filepath.Join(t.TempDir(), "broken.db"), Options{Migrations: registry})
		var merr *migrate.MigrationError
		require.ErrorAs(t, err, &merr)
		require.Equal(t, len(Registry())+1, merr.Version)
	})
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "vibebill.db")
	_, err := OpenReadOnly(dbPath)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Dir(dbPath))
	require.ErrorIs(t, err, os.ErrNotExist)

	store, dbPath := newTestStore(t, Options{})
	require.NoError(t, store.Close())

	db, err := OpenReadOnly(dbPath)
	require.NoError(t, err)
	defer db.Close()

	current, err := migrate.Current(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, len(Registry()), current)

	_, err = db.Exec("INSERT INTO settings (key, value) VALUES ('readonly_check', 'x')")
	require.Error(t, err)
}

func TestSellers(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})

	t.Run("create applies defaults", func(t *testing.T) {
		seller := &models.Seller{Name: "Neu GmbH", InvoicePrefix: "RE"}
		require.NoError(t, store.CreateSeller(ctx, seller))
		require.NotZero(t, seller.ID)
		require.NotEmpty(t, seller.CreatedAt)

		got, err := store.GetSeller(ctx, seller.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), got.NextInvoiceNumber)
		require.Equal(t, "classic", got.PDFTemplate)
		require.Equal(t, "#3b82f6", got.Color)
	})

	t.Run("default tax rate round trips", func(t *testing.T) {
		seller := models.NewSeller("Steuer GmbH")
		seller.DefaultTaxRate = decimal.NewNullDecimal(dec("7"))
		require.NoError(t, store.CreateSeller(ctx, seller))

		got, err := store.GetSeller(ctx, seller.ID)
		require.NoError(t, err)
		require.True(t, got.DefaultTaxRate.Valid)
		require.True(t, got.DefaultTaxRate.Decimal.Equal(dec("7")))
	})

	t.Run("invalid color is rejected", func(t *testing.T) {
		seller := models.NewSeller("Bunt GmbH")
		seller.Color = "blue"
		require.ErrorIs(t, store.CreateSeller(ctx, seller), models.ErrInvalid)
	})

	t.Run("counter cannot be lowered", func(t *testing.T) {
		seller := models.NewSeller("Zähler GmbH")
		seller.NextInvoiceNumber = 10
		require.NoError(t, store.CreateSeller(ctx, seller))

		seller.NextInvoiceNumber = 5
		require.ErrorIs(t, store.UpdateSeller(ctx, seller), models.ErrInvalid)

		seller.NextInvoiceNumber = 0
		seller.City = "Köln"
		require.NoError(t, store.UpdateSeller(ctx, seller))
		got, err := store.GetSeller(ctx, seller.ID)
		require.NoError(t, err)
		require.Equal(t, int64(10), got.NextInvoiceNumber)
		require.Equal(t, "Köln", got.City)
	})

	t.Run("missing seller", func(t *testing.T) {
		_, err := store.GetSeller(ctx, 9999)
		require.ErrorIs(t, err, models.ErrNotFound)
		require.ErrorIs(t, store.DeleteSeller(ctx, 9999), models.ErrNotFound)
	})
}

func TestInvoiceNumbering(t *testing.T) {
	ctx := context.Background()

	t.Run("first invoice gets RE1", func(t *testing.T) {
		store, _ := newTestStore(t, Options{})
		f := seed(t, store)

		inv := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-03-10"}
		require.NoError(t, store.CreateInvoice(ctx, inv))
		require.Equal(t, "RE1", inv.InvoiceNumber)
		require.Equal(t, models.StatusDraft, inv.Status)
		require.True(t, inv.TotalGross.IsZero())

		seller, err := store.GetSeller(ctx, f.seller.ID)
		require.NoError(t, err)
		require.Equal(t, int64(2), seller.NextInvoiceNumber)
	})

	t.Run("zero padded width", func(t *testing.T) {
		store, _ := newTestStore(t, Options{NumberWidth: 4})
		f := seed(t, store)

		number, err := store.IssueInvoiceNumber(ctx, f.seller.ID)
		require.NoError(t, err)
		require.Equal(t, "RE0001", number)
	})

	t.Run("deleted invoices do not free their number", func(t *testing.T) {
		store, _ := newTestStore(t, Options{})
		f := seed(t, store)

		first := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-03-10"}
		require.NoError(t, store.CreateInvoice(ctx, first))
		require.NoError(t, store.DeleteInvoice(ctx, first.ID))

		second := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-03-11"}
		require.NoError(t, store.CreateInvoice(ctx, second))
		require.Equal(t, "RE2", second.InvoiceNumber)
	})

	t.Run("numbers already taken are skipped", func(t *testing.T) {
		store, _ := newTestStore(t, Options{})
		f := seed(t, store)

		first := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-03-10"}
		require.NoError(t, store.CreateInvoice(ctx, first))
		_, err := store.DB().Exec("UPDATE sellers SET next_invoice_number = 1 WHERE id = ?", f.seller.ID)
		require.NoError(t, err)

		number, err := store.IssueInvoiceNumber(ctx, f.seller.ID)
		require.NoError(t, err)
		require.Equal(t, "RE2", number)
	})

	t.Run("concurrent issuance yields dense distinct numbers", func(t *testing.T) {
		store, _ := newTestStore(t, Options{})
		f := seed(t, store)

		const n = 25
		var wg sync.WaitGroup
		numbers := make([]string, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				inv := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-03-10"}
				errs[i] = store.CreateInvoice(ctx, inv)
				numbers[i] = inv.InvoiceNumber
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		sort.Strings(numbers)
		want := make([]string, n)
		for i := range want {
			want[i] = fmt.Sprintf("RE%d", i+1)
		}
		sort.Strings(want)
		require.Equal(t, want, numbers)

		seller, err := store.GetSeller(ctx, f.seller.ID)
		require.NoError(t, err)
		require.Equal(t, int64(n+1), seller.NextInvoiceNumber)
	})

	t.Run("missing seller is a reference error", func(t *testing.T) {
		store, _ := newTestStore(t, Options{})
		f := seed(t, store)

		inv := &models.Invoice{SellerID: 999, CustomerID: f.customer.ID, Date: "2025-03-10"}
		require.ErrorIs(t, store.CreateInvoice(ctx, inv), models.ErrReference)

		inv = &models.Invoice{SellerID: f.seller.ID, CustomerID: 999, Date: "2025-03-10"}
		require.ErrorIs(t, store.CreateInvoice(ctx, inv), models.ErrReference)

		seller, err := store.GetSeller(ctx, f.seller.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), seller.NextInvoiceNumber, "rejected invoices must not consume numbers")
	})
}

func TestInvoiceItems(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})
	f := seed(t, store)

	inv := &models.Invoice{
		SellerID:   f.seller.ID,
		CustomerID: f.customer.ID,
		Date:       "2025-03-10",
		Items:      twoItems(),
	}
	require.NoError(t, store.CreateInvoice(ctx, inv))

	t.Run("totals follow the items", func(t *testing.T) {
		require.True(t, inv.TotalNet.Equal(dec("250")), "net %s", inv.TotalNet)
		require.True(t, inv.TotalTax.Equal(dec("47.5")), "tax %s", inv.TotalTax)
		require.True(t, inv.TotalGross.Equal(dec("297.5")), "gross %s", inv.TotalGross)
		require.Equal(t, models.DefaultPaymentTerms, inv.PaymentTerms)

		require.Len(t, inv.Items, 2)
		require.Equal(t, 1, inv.Items[0].Position)
		require.True(t, inv.Items[0].TotalNet.Equal(dec("200")))
		require.True(t, inv.Items[0].TotalTax.Equal(dec("38")))
		require.True(t, inv.Items[0].TotalGross.Equal(dec("238")))
		require.Equal(t, 2, inv.Items[1].Position)
		require.True(t, inv.Items[1].TotalGross.Equal(dec("59.5")))
		require.Equal(t, models.DefaultUnit, inv.Items[1].Unit)
	})

	t.Run("add item at position", func(t *testing.T) {
		got, err := store.AddItem(ctx, inv.ID, models.InvoiceItem{
			Position: 1, Description: "Anfahrt", Quantity: dec("1"), PriceNet: dec("30"), TaxRate: dec("19"),
		})
		require.NoError(t, err)
		require.Len(t, got.Items, 3)
		require.Equal(t, "Anfahrt", got.Items[0].Description)
		requirePositions(t, got.Items)
		require.True(t, got.TotalNet.Equal(dec("280")))
		require.True(t, got.TotalGross.Equal(dec("333.2")))
	})

	t.Run("move item", func(t *testing.T) {
		cur, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		first := cur.Items[0]

		got, err := store.MoveItem(ctx, first.ID, 3)
		require.NoError(t, err)
		require.Equal(t, first.ID, got.Items[2].ID)
		require.Equal(t, "Beratung", got.Items[0].Description)
		requirePositions(t, got.Items)
		require.True(t, got.TotalGross.Equal(cur.TotalGross))
	})

	t.Run("update item reprices", func(t *testing.T) {
		cur, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		item := cur.Items[0]
		item.Quantity = dec("3")

		got, err := store.UpdateItem(ctx, item)
		require.NoError(t, err)
		require.Equal(t, item.ID, got.Items[0].ID)
		require.True(t, got.Items[0].TotalNet.Equal(dec("300")))
		require.True(t, got.TotalNet.Equal(dec("380")))
	})

	t.Run("remove item closes the gap", func(t *testing.T) {
		cur, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)

		got, err := store.RemoveItem(ctx, cur.Items[1].ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		requirePositions(t, got.Items)
		requireTotalsMatchItems(t, got)
	})

	t.Run("negative quantity is rejected and nothing changes", func(t *testing.T) {
		before, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)

		_, err = store.AddItem(ctx, inv.ID, models.InvoiceItem{Description: "Gutschrift", Quantity: dec("-1"), PriceNet: dec("10")})
		require.ErrorIs(t, err, models.ErrInvalid)

		after, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, before.Items, after.Items)
	})

	t.Run("replace items", func(t *testing.T) {
		got, err := store.ReplaceItems(ctx, inv.ID, twoItems())
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		require.True(t, got.TotalGross.Equal(dec("297.5")))
		requirePositions(t, got.Items)
	})

	t.Run("missing item", func(t *testing.T) {
		_, err := store.RemoveItem(ctx, 99999)
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}

func requirePositions(t *testing.T, items []models.InvoiceItem) {
	t.Helper()
	for i, it := range items {
		require.Equal(t, i+1, it.Position, "item %d", it.ID)
	}
}

func requireTotalsMatchItems(t *testing.T, inv *models.Invoice) {
	t.Helper()
	net, tax, gross := decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range inv.Items {
		require.True(t, it.TotalGross.Equal(it.TotalNet.Add(it.TotalTax)))
		net = net.Add(it.TotalNet)
		tax = tax.Add(it.TotalTax)
		gross = gross.Add(it.TotalGross)
	}
	cent := dec("0.01")
	require.True(t, inv.TotalNet.Sub(net).Abs().LessThanOrEqual(cent))
	require.True(t, inv.TotalTax.Sub(tax).Abs().LessThanOrEqual(cent))
	require.True(t, inv.TotalGross.Sub(gross).Abs().LessThanOrEqual(cent))
	require.True(t, inv.TotalGross.Equal(inv.TotalNet.Add(inv.TotalTax)))
}

func TestInvoiceTotalsMatchItems(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})
	f := seed(t, store)

	t.Run("many small lines", func(t *testing.T) {
		var items []models.InvoiceItem
		for i := 0; i < 10; i++ {
			items = append(items, models.InvoiceItem{Description: "Porto", Quantity: dec("1"), PriceNet: dec("0.50"), TaxRate: dec("7")})
		}
		inv := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-03-10", Items: items}
		require.NoError(t, store.CreateInvoice(ctx, inv))

		got, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		requireTotalsMatchItems(t, got)
		require.True(t, got.TotalTax.Equal(dec("0.4")), "tax = %s", got.TotalTax)
		require.True(t, got.TotalGross.Equal(dec("5.4")), "gross = %s", got.TotalGross)
	})

	t.Run("mixed rates across edits", func(t *testing.T) {
		quantities := []string{"1", "0.25", "1.5", "3", "0.333"}
		prices := []string{"0.05", "0.99", "19.95", "33.33", "1234.567"}
		rates := []string{"0", "7", "19", "5.5"}

		var items []models.InvoiceItem
		for i := 0; i < 60; i++ {
			items = append(items, models.InvoiceItem{
				Description: fmt.Sprintf("Position %d", i+1),
				Quantity:    dec(quantities[i%len(quantities)]),
				PriceNet:    dec(prices[(i/len(quantities))%len(prices)]),
				TaxRate:     dec(rates[(i/2)%len(rates)]),
			})
		}
		inv := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-03-10", Items: items}
		require.NoError(t, store.CreateInvoice(ctx, inv))

		got, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 60)
		requireTotalsMatchItems(t, got)

		got, err = store.AddItem(ctx, inv.ID, models.InvoiceItem{Description: "Nachtrag", Quantity: dec("0.333"), PriceNet: dec("0.50"), TaxRate: dec("7")})
		require.NoError(t, err)
		requireTotalsMatchItems(t, got)

		got, err = store.RemoveItem(ctx, got.Items[3].ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 60)
		requireTotalsMatchItems(t, got)
	})
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})
	f := seed(t, store)

	product := &models.Product{
		SellerID: f.seller.ID,
		Name:     "Wartungsvertrag",
		Kind:     models.KindService,
		Unit:     "Monat",
		PriceNet: dec("49.9"),
		TaxRate:  dec("19"),
		Stock:    5,
		Active:   true,
	}
	require.NoError(t, store.CreateProduct(ctx, product))
	require.Zero(t, product.Stock, "services carry no stock")

	t.Run("product backed item copies catalog data", func(t *testing.T) {
		inv := &models.Invoice{
			SellerID:   f.seller.ID,
			CustomerID: f.customer.ID,
			Date:       "2025-03-10",
			Items:      []models.InvoiceItem{{ProductID: product.ID, Quantity: dec("2")}},
		}
		require.NoError(t, store.CreateInvoice(ctx, inv))
		require.Equal(t, "Wartungsvertrag", inv.Items[0].Description)
		require.Equal(t, "Monat", inv.Items[0].Unit)
		require.True(t, inv.Items[0].TotalNet.Equal(dec("99.8")))
	})

	t.Run("reapply pricing", func(t *testing.T) {
		inv := &models.Invoice{
			SellerID:   f.seller.ID,
			CustomerID: f.customer.ID,
			Date:       "2025-03-10",
			Items:      []models.InvoiceItem{{ProductID: product.ID, Quantity: dec("1")}},
		}
		require.NoError(t, store.CreateInvoice(ctx, inv))

		product.PriceNet = dec("59.9")
		require.NoError(t, store.UpdateProduct(ctx, product))

		unchanged, err := store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		require.True(t, unchanged.Items[0].PriceNet.Equal(dec("49.9")), "items keep their own price")

		got, err := store.ReapplyProductPricing(ctx, inv.ID)
		require.NoError(t, err)
		require.True(t, got.Items[0].PriceNet.Equal(dec("59.9")))
		require.True(t, got.TotalNet.Equal(dec("59.9")))
	})

	t.Run("delete unlinks items", func(t *testing.T) {
		require.NoError(t, store.DeleteProduct(ctx, product.ID))

		invoices, err := store.ListInvoices(ctx, models.InvoiceFilter{SellerID: f.seller.ID})
		require.NoError(t, err)
		require.NotEmpty(t, invoices)
		for _, header := range invoices {
			inv, err := store.GetInvoice(ctx, header.ID)
			require.NoError(t, err)
			for _, it := range inv.Items {
				require.Zero(t, it.ProductID)
				require.Equal(t, "Wartungsvertrag", it.Description)
			}
		}
	})

	t.Run("unknown seller", func(t *testing.T) {
		err := store.CreateProduct(ctx, &models.Product{SellerID: 999, Name: "Waise"})
		require.ErrorIs(t, err, models.ErrReference)
	})

	t.Run("negative price", func(t *testing.T) {
		err := store.CreateProduct(ctx, &models.Product{SellerID: f.seller.ID, Name: "Rabatt", PriceNet: dec("-1")})
		require.ErrorIs(t, err, models.ErrInvalid)
	})
}

func TestPaymentsAndStatus(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})
	f := seed(t, store)

	newInvoice := func(t *testing.T, due string) *models.Invoice {
		t.Helper()
		inv := &models.Invoice{
			SellerID:   f.seller.ID,
			CustomerID: f.customer.ID,
			Date:       "2025-02-01",
			DueDate:    due,
			Items:      twoItems(),
		}
		require.NoError(t, store.CreateInvoice(ctx, inv))
		return inv
	}

	t.Run("overdue then paid", func(t *testing.T) {
		inv := newInvoice(t, "2025-03-01")
		_, err := store.SetInvoiceStatus(ctx, inv.ID, models.StatusSent)
		require.NoError(t, err)

		got, err := store.RefreshInvoiceStatus(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusOverdue, got.Status)

		st, err := store.AddPayment(ctx, &models.Payment{InvoiceID: inv.ID, Amount: dec("297.5"), Date: "2025-03-15", Method: "Überweisung"})
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, st)

		got, err = store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, got.Status)
		require.True(t, got.PaidAmount.Equal(dec("297.5")))
	})

	t.Run("partial payments and deletion", func(t *testing.T) {
		inv := newInvoice(t, "2025-04-01")
		_, err := store.SetInvoiceStatus(ctx, inv.ID, models.StatusSent)
		require.NoError(t, err)

		first := &models.Payment{InvoiceID: inv.ID, Amount: dec("100"), Date: "2025-03-01"}
		st, err := store.AddPayment(ctx, first)
		require.NoError(t, err)
		require.Equal(t, models.StatusSent, st)
		require.NotZero(t, first.ID)

		second := &models.Payment{InvoiceID: inv.ID, Amount: dec("197.5"), Date: "2025-03-10"}
		st, err = store.AddPayment(ctx, second)
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, st)

		payments, err := store.ListPayments(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		require.Equal(t, second.ID, payments[0].ID, "newest first")

		st, err = store.DeletePayment(ctx, second.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusSent, st)

		balance, err := store.InvoiceBalance(ctx, inv.ID)
		require.NoError(t, err)
		require.True(t, balance.Paid.Equal(dec("100")))
		require.True(t, balance.Outstanding.Equal(dec("197.5")))
	})

	t.Run("overpayment clamps at paid", func(t *testing.T) {
		inv := newInvoice(t, "")
		st, err := store.AddPayment(ctx, &models.Payment{InvoiceID: inv.ID, Amount: dec("300"), Date: "2025-03-10"})
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, st)

		balance, err := store.InvoiceBalance(ctx, inv.ID)
		require.NoError(t, err)
		require.True(t, balance.Overpaid.Equal(dec("2.5")))
		require.True(t, balance.Outstanding.IsZero())
	})

	t.Run("item edits re-evaluate status", func(t *testing.T) {
		inv := newInvoice(t, "")
		_, err := store.AddPayment(ctx, &models.Payment{InvoiceID: inv.ID, Amount: dec("297.5"), Date: "2025-03-10"})
		require.NoError(t, err)

		got, err := store.AddItem(ctx, inv.ID, models.InvoiceItem{Description: "Nachtrag", Quantity: dec("1"), PriceNet: dec("10"), TaxRate: dec("19")})
		require.NoError(t, err)
		require.Equal(t, models.StatusSent, got.Status, "a paid invoice reopens when its total grows")
	})

	t.Run("cancelled invoices are frozen", func(t *testing.T) {
		inv := newInvoice(t, "2025-04-01")
		got, err := store.SetInvoiceStatus(ctx, inv.ID, models.StatusCancelled)
		require.NoError(t, err)
		require.Equal(t, models.StatusCancelled, got.Status)

		_, err = store.AddPayment(ctx, &models.Payment{InvoiceID: inv.ID, Amount: dec("10"), Date: "2025-03-10"})
		require.ErrorIs(t, err, models.ErrInvalid)

		_, err = store.AddItem(ctx, inv.ID, models.InvoiceItem{Description: "x", Quantity: dec("1")})
		require.ErrorIs(t, err, models.ErrInvalid)

		_, err = store.SetInvoiceStatus(ctx, inv.ID, models.StatusDraft)
		require.ErrorIs(t, err, models.ErrTransition)

		got, err = store.RefreshInvoiceStatus(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusCancelled, got.Status)
	})

	t.Run("paid cannot be set by hand", func(t *testing.T) {
		inv := newInvoice(t, "")
		_, err := store.SetInvoiceStatus(ctx, inv.ID, models.StatusPaid)
		require.ErrorIs(t, err, models.ErrTransition)
	})

	t.Run("payment validation", func(t *testing.T) {
		_, err := store.AddPayment(ctx, &models.Payment{InvoiceID: 1, Amount: dec("0"), Date: "2025-03-10"})
		require.ErrorIs(t, err, models.ErrInvalid)

		inv := newInvoice(t, "2025-04-01")
		_, err = store.AddPayment(ctx, &models.Payment{InvoiceID: inv.ID, Amount: dec("0.004"), Date: "2025-03-10"})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "amount", verr.Field)

		payments, err := store.ListPayments(ctx, inv.ID)
		require.NoError(t, err)
		require.Empty(t, payments)

		p := &models.Payment{InvoiceID: inv.ID, Amount: dec("0.005"), Date: "2025-03-10"}
		_, err = store.AddPayment(ctx, p)
		require.NoError(t, err)
		require.True(t, p.Amount.Equal(dec("0.01")), "amount = %s", p.Amount)

		_, err = store.AddPayment(ctx, &models.Payment{InvoiceID: 9999, Amount: dec("5"), Date: "2025-03-10"})
		require.ErrorIs(t, err, models.ErrReference)

		_, err = store.DeletePayment(ctx, 9999)
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("moving the due date clears overdue", func(t *testing.T) {
		inv := newInvoice(t, "2025-03-01")
		got, err := store.RefreshInvoiceStatus(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusOverdue, got.Status)

		got.DueDate = "2025-04-01"
		got, err = store.UpdateInvoiceHeader(ctx, got)
		require.NoError(t, err)
		require.Equal(t, models.StatusSent, got.Status)
	})
}

func TestSweepOverdue(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})
	f := seed(t, store)

	for _, due := range []string{"2025-03-01", "2025-03-14", "2025-03-15", "2025-04-01", ""} {
		inv := &models.Invoice{SellerID: f.seller.ID, CustomerID: f.customer.ID, Date: "2025-02-01", DueDate: due, Items: twoItems()}
		require.NoError(t, store.CreateInvoice(ctx, inv))
		_, err := store.DB().Exec("UPDATE invoices SET status = 'sent' WHERE id = ?", inv.ID)
		require.NoError(t, err)
	}

	changed, err := store.SweepOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, changed)

	overdue, err := store.ListInvoices(ctx, models.InvoiceFilter{Status: models.StatusOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 2)

	changed, err = store.SweepOverdue(ctx)
	require.NoError(t, err)
	require.Zero(t, changed)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})
	f := seed(t, store)

	product := &models.Product{SellerID: f.seller.ID, Name: "Schraube", PriceNet: dec("0.1"), TaxRate: dec("19"), Stock: 100, Active: true}
	require.NoError(t, store.CreateProduct(ctx, product))

	inv := &models.Invoice{
		SellerID:   f.seller.ID,
		CustomerID: f.customer.ID,
		Date:       "2025-03-10",
		Items:      append(twoItems(), models.InvoiceItem{ProductID: product.ID, Quantity: dec("50")}),
	}
	require.NoError(t, store.CreateInvoice(ctx, inv))
	_, err := store.AddPayment(ctx, &models.Payment{InvoiceID: inv.ID, Amount: dec("50"), Date: "2025-03-12"})
	require.NoError(t, err)

	t.Run("seller and customer are protected while referenced", func(t *testing.T) {
		require.ErrorIs(t, store.DeleteSeller(ctx, f.seller.ID), models.ErrReference)
		require.ErrorIs(t, store.DeleteCustomer(ctx, f.customer.ID), models.ErrReference)
	})

	t.Run("deleting the invoice removes items and payments", func(t *testing.T) {
		require.NoError(t, store.DeleteInvoice(ctx, inv.ID))

		_, err := store.GetInvoice(ctx, inv.ID)
		require.ErrorIs(t, err, models.ErrNotFound)

		n, err := count(ctx, store.DB(), "SELECT COUNT(*) FROM invoice_items WHERE invoice_id = ?", inv.ID)
		require.NoError(t, err)
		require.Zero(t, n)
		n, err = count(ctx, store.DB(), "SELECT COUNT(*) FROM payments WHERE invoice_id = ?", inv.ID)
		require.NoError(t, err)
		require.Zero(t, n)

		_, err = store.GetSeller(ctx, f.seller.ID)
		require.NoError(t, err)
		_, err = store.GetCustomer(ctx, f.customer.ID)
		require.NoError(t, err)
		_, err = store.GetProduct(ctx, product.ID)
		require.NoError(t, err)
	})

	t.Run("unreferenced customer can be deleted", func(t *testing.T) {
		require.NoError(t, store.DeleteCustomer(ctx, f.customer.ID))
	})

	t.Run("seller with products is still protected", func(t *testing.T) {
		require.ErrorIs(t, store.DeleteSeller(ctx, f.seller.ID), models.ErrReference)
		require.NoError(t, store.DeleteProduct(ctx, product.ID))
		require.NoError(t, store.DeleteSeller(ctx, f.seller.ID))
	})
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})

	theme, err := store.GetSetting(ctx, models.SettingTheme)
	require.NoError(t, err)
	require.Equal(t, "light", theme)

	locale, err := store.GetSetting(ctx, models.SettingLocale)
	require.NoError(t, err)
	require.Equal(t, "de", locale, "known keys without a row use their default")

	require.NoError(t, store.SetSetting(ctx, models.SettingTheme, "dark"))
	require.NoError(t, store.SetSetting(ctx, models.SettingTheme, "system"))
	theme, err = store.GetSetting(ctx, models.SettingTheme)
	require.NoError(t, err)
	require.Equal(t, "system", theme)

	unknown, err := store.GetSetting(ctx, "no_such_key")
	require.NoError(t, err)
	require.Empty(t, unknown)

	require.ErrorIs(t, store.SetSetting(ctx, " ", "x"), models.ErrInvalid)

	settings, err := store.ListSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.Setting{
		{Key: models.SettingDownloadFolder, Value: ""},
		{Key: models.SettingLocale, Value: "de"},
		{Key: models.SettingTheme, Value: "system"},
	}, settings)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{})
	f := seed(t, store)

	other := &models.Customer{Name: "Andere KG"}
	require.NoError(t, store.CreateCustomer(ctx, other))

	create := func(customerID int64, date string, st models.InvoiceStatus) *models.Invoice {
		inv := &models.Invoice{SellerID: f.seller.ID, CustomerID: customerID, Date: date, Items: twoItems()}
		require.NoError(t, store.CreateInvoice(ctx, inv))
		switch st {
		case models.StatusSent:
			_, err := store.SetInvoiceStatus(ctx, inv.ID, models.StatusSent)
			require.NoError(t, err)
		case models.StatusPaid:
			_, err := store.AddPayment(ctx, &models.Payment{InvoiceID: inv.ID, Amount: inv.TotalGross, Date: date})
			require.NoError(t, err)
		}
		return inv
	}

	create(f.customer.ID, "2025-01-20", models.StatusPaid)
	create(f.customer.ID, "2025-03-05", models.StatusSent)
	create(other.ID, "2025-03-07", models.StatusPaid)
	create(other.ID, "2025-03-08", models.StatusDraft)
	create(f.customer.ID, "2024-12-01", models.StatusPaid)

	t.Run("dashboard", func(t *testing.T) {
		stats, err := store.DashboardStats(ctx)
		require.NoError(t, err)
		require.Equal(t, 5, stats.TotalInvoices)
		require.Equal(t, 1, stats.OpenInvoices)
		require.Equal(t, 4, stats.PaidInvoices)
		require.Equal(t, 0, stats.OverdueInvoices)
		require.True(t, stats.TotalRevenue.Equal(dec("1190")), "revenue %s", stats.TotalRevenue)
		require.True(t, stats.MonthlyRevenue.Equal(dec("595")), "monthly %s", stats.MonthlyRevenue)
		require.True(t, stats.OpenAmount.Equal(dec("297.5")))
	})

	t.Run("monthly revenue", func(t *testing.T) {
		months, err := store.MonthlyRevenue(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, []string{"2025-01", "2025-03"}, []string{months[0].Month, months[1].Month})
		require.True(t, months[1].Revenue.Equal(dec("595")))
	})

	t.Run("top customers", func(t *testing.T) {
		top, err := store.TopCustomers(ctx, 5)
		require.NoError(t, err)
		require.Len(t, top, 2)
		require.Equal(t, f.customer.ID, top[0].CustomerID)
		require.Equal(t, 3, top[0].Count)
		require.True(t, top[0].Total.Equal(dec("892.5")))
	})

	t.Run("revenue by seller and year", func(t *testing.T) {
		months, err := store.RevenueBySellerYear(ctx, f.seller.ID, 2025)
		require.NoError(t, err)
		require.Len(t, months, 2)
		require.Equal(t, "2025-01", months[0].Month)
	})

	t.Run("yearly overview", func(t *testing.T) {
		overview, err := store.YearlyOverview(ctx, f.seller.ID, 2025)
		require.NoError(t, err)
		require.Len(t, overview.Invoices, 2)
		require.Equal(t, "2025-01-20", overview.Invoices[0].Date)
		require.True(t, overview.TotalNet.Equal(dec("500")))
		require.True(t, overview.TotalTax.Equal(dec("95")))
		require.True(t, overview.TotalGross.Equal(dec("595")))

		_, err = store.YearlyOverview(ctx, 999, 2025)
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}
