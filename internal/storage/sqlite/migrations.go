package sqlite

import "github.com/mmynk/vibebill/internal/migrate"

// Registry returns the ordered schema history of the store.
// Entries are append-only: never edit or reorder a released migration,
// add a new version instead.
func Registry() []migrate.Migration {
	return []migrate.Migration{
		{
			Version:     1,
			Description: "create initial tables",
			Operations: []migrate.Operation{
				createSellers,
				createCustomers,
				createProducts,
				createInvoices,
				createInvoiceItems,
				createSettings,
				migrate.Seed{
					Table:   "settings",
					Columns: []string{"key", "value"},
					Rows:    [][]any{{"theme", "light"}},
				},
			},
		},
		{
			Version:     2,
			Description: "add payments table and pdf_template to sellers",
			Operations: []migrate.Operation{
				createPayments,
				migrate.AddColumn{Table: "sellers", Column: text("pdf_template", "classic")},
			},
		},
		{
			Version:     3,
			Description: "add brand color to sellers",
			Operations: []migrate.Operation{
				migrate.AddColumn{Table: "sellers", Column: text("color", "#3b82f6")},
			},
		},
		{
			Version:     4,
			Description: "add seller invoice defaults",
			Operations: []migrate.Operation{
				migrate.AddColumn{Table: "sellers", Column: text("first_name", "")},
				migrate.AddColumn{Table: "sellers", Column: text("last_name", "")},
				migrate.AddColumn{Table: "sellers", Column: text("default_payment_terms", "")},
				migrate.AddColumn{Table: "sellers", Column: migrate.Column{Name: "default_tax_rate", Type: "REAL", Default: migrate.Raw("NULL")}},
				migrate.AddColumn{Table: "sellers", Column: text("currency", "")},
				migrate.AddColumn{Table: "sellers", Column: text("default_note", "")},
			},
		},
		{
			Version:     5,
			Description: "add invoice lookup indexes",
			Operations: []migrate.Operation{
				migrate.CreateIndex{Name: "idx_invoices_seller_number", Table: "invoices", Columns: []string{"seller_id", "invoice_number"}, Unique: true},
				migrate.CreateIndex{Name: "idx_invoice_items_position", Table: "invoice_items", Columns: []string{"invoice_id", "position"}, Unique: true},
				migrate.CreateIndex{Name: "idx_invoices_customer_id", Table: "invoices", Columns: []string{"customer_id"}},
				migrate.CreateIndex{Name: "idx_payments_invoice_id", Table: "payments", Columns: []string{"invoice_id"}},
				migrate.CreateIndex{Name: "idx_products_seller_id", Table: "products", Columns: []string{"seller_id"}},
			},
		},
	}
}

func id() migrate.Column {
	return migrate.Column{Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true}
}

func text(name, def string) migrate.Column {
	return migrate.Column{Name: name, Type: "TEXT", Default: migrate.Text(def)}
}

func createdAt() migrate.Column {
	return migrate.Column{Name: "created_at", Type: "DATETIME", Default: migrate.Raw("CURRENT_TIMESTAMP")}
}

var createSellers = migrate.CreateTable{
	Table: "sellers",
	Columns: []migrate.Column{
		id(),
		{Name: "name", Type: "TEXT", NotNull: true},
		text("street", ""),
		text("city", ""),
		text("zip", ""),
		text("country", "Deutschland"),
		text("phone", ""),
		text("email", ""),
		text("website", ""),
		text("tax_id", ""),
		text("vat_id", ""),
		text("bank_name", ""),
		text("bank_iban", ""),
		text("bank_bic", ""),
		text("logo_data", ""),
		text("invoice_prefix", "RE"),
		{Name: "next_invoice_number", Type: "INTEGER", Default: migrate.Int(1)},
		createdAt(),
	},
}

var createCustomers = migrate.CreateTable{
	Table: "customers",
	Columns: []migrate.Column{
		id(),
		{Name: "name", Type: "TEXT", NotNull: true},
		text("street", ""),
		text("city", ""),
		text("zip", ""),
		text("country", "Deutschland"),
		text("phone", ""),
		text("email", ""),
		text("notes", ""),
		createdAt(),
	},
}

var createProducts = migrate.CreateTable{
	Table: "products",
	Columns: []migrate.Column{
		id(),
		{Name: "seller_id", Type: "INTEGER", NotNull: true},
		{Name: "name", Type: "TEXT", NotNull: true},
		text("description", ""),
		{Name: "type", Type: "TEXT", NotNull: true, Default: migrate.Text("product"), Check: "type IN ('product', 'service')"},
		text("unit", "Stk"),
		{Name: "price_net", Type: "REAL", NotNull: true, Default: migrate.Int(0)},
		{Name: "tax_rate", Type: "REAL", NotNull: true, Default: migrate.Real(19)},
		{Name: "stock", Type: "INTEGER", Default: migrate.Int(0)},
		{Name: "active", Type: "INTEGER", Default: migrate.Int(1)},
		createdAt(),
	},
	ForeignKeys: []migrate.ForeignKey{
		{Column: "seller_id", RefTable: "sellers"},
	},
}

var createInvoices = migrate.CreateTable{
	Table: "invoices",
	Columns: []migrate.Column{
		id(),
		{Name: "seller_id", Type: "INTEGER", NotNull: true},
		{Name: "customer_id", Type: "INTEGER", NotNull: true},
		{Name: "invoice_number", Type: "TEXT", NotNull: true},
		{Name: "date", Type: "TEXT", NotNull: true},
		text("due_date", ""),
		{Name: "status", Type: "TEXT", Default: migrate.Text("draft"), Check: "status IN ('draft','sent','paid','overdue','cancelled')"},
		text("notes", ""),
		text("payment_terms", "14 Tage netto"),
		{Name: "total_net", Type: "REAL", Default: migrate.Int(0)},
		{Name: "total_tax", Type: "REAL", Default: migrate.Int(0)},
		{Name: "total_gross", Type: "REAL", Default: migrate.Int(0)},
		createdAt(),
	},
	ForeignKeys: []migrate.ForeignKey{
		{Column: "seller_id", RefTable: "sellers"},
		{Column: "customer_id", RefTable: "customers"},
	},
}

var createInvoiceItems = migrate.CreateTable{
	Table: "invoice_items",
	Columns: []migrate.Column{
		id(),
		{Name: "invoice_id", Type: "INTEGER", NotNull: true},
		{Name: "product_id", Type: "INTEGER"},
		{Name: "position", Type: "INTEGER", NotNull: true, Default: migrate.Int(1)},
		{Name: "description", Type: "TEXT", NotNull: true, Default: migrate.Text("")},
		{Name: "quantity", Type: "REAL", NotNull: true, Default: migrate.Int(1)},
		text("unit", "Stk"),
		{Name: "price_net", Type: "REAL", NotNull: true, Default: migrate.Int(0)},
		{Name: "tax_rate", Type: "REAL", NotNull: true, Default: migrate.Real(19)},
		{Name: "total_net", Type: "REAL", NotNull: true, Default: migrate.Int(0)},
		{Name: "total_tax", Type: "REAL", NotNull: true, Default: migrate.Int(0)},
		{Name: "total_gross", Type: "REAL", NotNull: true, Default: migrate.Int(0)},
	},
	ForeignKeys: []migrate.ForeignKey{
		{Column: "invoice_id", RefTable: "invoices", OnDelete: "CASCADE"},
		{Column: "product_id", RefTable: "products"},
	},
}

var createSettings = migrate.CreateTable{
	Table: "settings",
	Columns: []migrate.Column{
		{Name: "key", Type: "TEXT", PrimaryKey: true},
		text("value", ""),
	},
}

var createPayments = migrate.CreateTable{
	Table: "payments",
	Columns: []migrate.Column{
		id(),
		{Name: "invoice_id", Type: "INTEGER", NotNull: true},
		{Name: "amount", Type: "REAL", NotNull: true, Default: migrate.Int(0)},
		{Name: "date", Type: "TEXT", NotNull: true},
		text("method", ""),
		text("notes", ""),
		createdAt(),
	},
	ForeignKeys: []migrate.ForeignKey{
		{Column: "invoice_id", RefTable: "invoices", OnDelete: "CASCADE"},
	},
}
