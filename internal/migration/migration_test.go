package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	entries, err := fs.ReadDir(sub, ".")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestInvoiceNumbersHasUniqueOrderIndex(t *testing.T) {
	body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000002_create_invoice_numbers.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ON invoice_numbers (merchant_id, order_ref)")
	assert.Contains(t, string(body), "ON invoice_numbers (merchant_id, prefix, sequence)")
}
