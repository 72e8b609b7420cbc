package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultInvoicingConfigIsValid(t *testing.T) {
	cfg := DefaultInvoicingConfig()
	require.NoError(t, ValidateInvoicingConfig(cfg))
	assert.Equal(t, "18", cfg.GSTRate().String())
	assert.Equal(t, "{PREFIX}-{SEQ6}", cfg.NumberTemplate)
}

func TestValidateInvoicingConfigRejects(t *testing.T) {
	cases := map[string]func(*InvoicingConfig){
		"negative rate":    func(c *InvoicingConfig) { c.DefaultGSTRate = -1 },
		"empty sac":        func(c *InvoicingConfig) { c.PlatformFeeSAC = " " },
		"no seq token":     func(c *InvoicingConfig) { c.NumberTemplate = "{PREFIX}-{YYYY}" },
		"lowercase prefix": func(c *InvoicingConfig) { c.DefaultPrefix = "inv" },
		"long prefix":      func(c *InvoicingConfig) { c.PlatformPrefix = "ABCDEFGHI" },
		"bad timezone":     func(c *InvoicingConfig) { c.Timezone = "Mars/Olympus" },
		"half font pair":   func(c *InvoicingConfig) { c.PDF.RegularFont = "/fonts/a.ttf" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultInvoicingConfig()
			mutate(&cfg)
			assert.Error(t, ValidateInvoicingConfig(cfg))
		})
	}
}

func TestStaticHolderReturnsSnapshot(t *testing.T) {
	cfg := DefaultInvoicingConfig()
	cfg.DefaultPrefix = "MRC"
	holder := NewStaticInvoicingConfigHolder(cfg)
	assert.Equal(t, "MRC", holder.Get().DefaultPrefix)
	assert.Equal(t, "Asia/Kolkata", holder.Get().Location().String())
}

func TestHolderResolvesLocationOnStore(t *testing.T) {
	holder := NewStaticInvoicingConfigHolder(DefaultInvoicingConfig())
	snapshot := holder.Get()
	require.NotNil(t, snapshot.loc)
	assert.Same(t, snapshot.loc, snapshot.Location())
	assert.Same(t, snapshot.Location(), holder.Get().Location())

	holder.store(func() InvoicingConfig {
		cfg := DefaultInvoicingConfig()
		cfg.Timezone = "UTC"
		return cfg
	}())
	assert.Equal(t, "UTC", holder.Get().Location().String())

	// a copy with a different timezone does not reuse the cached zone
	changed := holder.Get()
	changed.Timezone = "Asia/Kolkata"
	assert.Equal(t, "Asia/Kolkata", changed.Location().String())
}
