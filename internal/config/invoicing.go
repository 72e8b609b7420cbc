package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var prefixRe = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

// InvoicingConfig is the invoicing policy. It can change at runtime; callers
// read a snapshot per request through InvoicingConfigHolder.Get.
type InvoicingConfig struct {
	DefaultGSTRate float64   `mapstructure:"defaultGstRate"`
	PlatformFeeSAC string    `mapstructure:"platformFeeSac"`
	NumberTemplate string    `mapstructure:"numberTemplate"`
	DefaultPrefix  string    `mapstructure:"defaultPrefix"`
	PlatformScope  string    `mapstructure:"platformScope"`
	PlatformPrefix string    `mapstructure:"platformPrefix"`
	Timezone       string    `mapstructure:"timezone"`
	PDF            PDFConfig `mapstructure:"pdf"`

	// loc is Timezone resolved when the holder stores the config.
	loc *time.Location
}

// PDFConfig controls the document writers. When both font paths are set,
// text is written with that UTF-8 font instead of the core fonts.
type PDFConfig struct {
	Compress       bool   `mapstructure:"compress"`
	RegularFont    string `mapstructure:"regularFont"`
	BoldFont       string `mapstructure:"boldFont"`
	CurrencySymbol string `mapstructure:"currencySymbol"`
	BatchWorkers   int    `mapstructure:"batchWorkers"`
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		DefaultGSTRate: 18,
		PlatformFeeSAC: "998599",
		NumberTemplate: "{PREFIX}-{SEQ6}",
		DefaultPrefix:  "INV",
		PlatformScope:  "platform",
		PlatformPrefix: "PLT",
		Timezone:       "Asia/Kolkata",
		PDF: PDFConfig{
			Compress:       true,
			CurrencySymbol: "Rs.",
			BatchWorkers:   4,
		},
	}
}

// GSTRate returns the default rate as a decimal percentage.
func (c InvoicingConfig) GSTRate() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultGSTRate)
}

// Location returns the timezone used for invoice dates and day grouping.
// Snapshots taken from a holder carry it resolved already.
func (c InvoicingConfig) Location() *time.Location {
	if c.loc != nil && c.loc.String() == c.Timezone {
		return c.loc
	}
	return loadLocation(c.Timezone)
}

func (c InvoicingConfig) withLocation() InvoicingConfig {
	c.loc = loadLocation(c.Timezone)
	return c
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return istFallback
	}
	return loc
}

var istFallback = time.FixedZone("IST", 5*3600+1800)

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

func (h *InvoicingConfigHolder) store(cfg InvoicingConfig) {
	h.current.Store(cfg.withLocation())
}

// NewStaticInvoicingConfigHolder returns a holder that never reloads.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.store(cfg)
	return holder
}

func NewInvoicingConfigHolder(log *zap.Logger) (*InvoicingConfigHolder, error) {
	log = log.Named("config.invoicing")
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/gstinvoice")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GSTINVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.defaultGstRate", defaults.DefaultGSTRate)
	v.SetDefault("invoicing.platformFeeSac", defaults.PlatformFeeSAC)
	v.SetDefault("invoicing.numberTemplate", defaults.NumberTemplate)
	v.SetDefault("invoicing.defaultPrefix", defaults.DefaultPrefix)
	v.SetDefault("invoicing.platformScope", defaults.PlatformScope)
	v.SetDefault("invoicing.platformPrefix", defaults.PlatformPrefix)
	v.SetDefault("invoicing.timezone", defaults.Timezone)
	v.SetDefault("invoicing.pdf.compress", defaults.PDF.Compress)
	v.SetDefault("invoicing.pdf.currencySymbol", defaults.PDF.CurrencySymbol)
	v.SetDefault("invoicing.pdf.batchWorkers", defaults.PDF.BatchWorkers)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg InvoicingConfig
	if err := v.UnmarshalKey("invoicing", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateInvoicingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInvoicingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingConfig
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidateInvoicingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	return h.current.Load().(InvoicingConfig)
}

func ValidateInvoicingConfig(cfg InvoicingConfig) error {
	if cfg.DefaultGSTRate < 0 || cfg.DefaultGSTRate > 100 {
		return fmt.Errorf("invoicing.defaultGstRate out of range: %v", cfg.DefaultGSTRate)
	}
	if strings.TrimSpace(cfg.PlatformFeeSAC) == "" {
		return errors.New("invoicing.platformFeeSac cannot be empty")
	}
	if !strings.Contains(cfg.NumberTemplate, "{SEQ") {
		return errors.New("invoicing.numberTemplate must contain a sequence token")
	}
	if !prefixRe.MatchString(cfg.DefaultPrefix) {
		return fmt.Errorf("invoicing.defaultPrefix invalid: %q", cfg.DefaultPrefix)
	}
	if !prefixRe.MatchString(cfg.PlatformPrefix) {
		return fmt.Errorf("invoicing.platformPrefix invalid: %q", cfg.PlatformPrefix)
	}
	if strings.TrimSpace(cfg.PlatformScope) == "" {
		return errors.New("invoicing.platformScope cannot be empty")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invoicing.timezone: %w", err)
	}
	if (cfg.PDF.RegularFont == "") != (cfg.PDF.BoldFont == "") {
		return errors.New("invoicing.pdf fonts must be configured together")
	}
	return nil
}
