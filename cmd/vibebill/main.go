// Command vibebill maintains a vibebill invoice database: it applies schema
// migrations, marks overdue invoices, prints dashboard figures, exports
// invoices as CSV and edits settings.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
