package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DocumentsConfig holds the document engine settings that operators may
// change at runtime.
type DocumentsConfig struct {
	VATRate         decimal.Decimal
	EURRate         decimal.Decimal
	Currency        string
	EURCurrency     string
	PaymentLabels   map[string]string
	LegalDisclaimer string

	InvoiceDir    string
	WarrantyDir   string
	RepairLogRows int

	FontRegular string
	FontBold    string

	LogoFetchTimeout time.Duration
	LogoCacheTTL     time.Duration
}

func DefaultDocumentsConfig() DocumentsConfig {
	return DocumentsConfig{
		VATRate:     decimal.RequireFromString("0.20"),
		EURRate:     decimal.RequireFromString("1.95583"),
		Currency:    "BGN",
		EURCurrency: "EUR",
		PaymentLabels: map[string]string{
			"cash": "in cash",
			"card": "by card",
			"bank": "bank transfer",
			"cod":  "cash on delivery",
		},
		LegalDisclaimer:  "This invoice is valid without a seal and signature under the Accountancy Act.",
		InvoiceDir:       "invoices",
		WarrantyDir:      "warranties",
		RepairLogRows:    8,
		FontRegular:      "./fonts/DejaVuSans.ttf",
		FontBold:         "./fonts/DejaVuSans-Bold.ttf",
		LogoFetchTimeout: 10 * time.Second,
		LogoCacheTTL:     time.Hour,
	}
}

// DocumentsSource tells the holder where to look for documents.yml.
type DocumentsSource struct {
	// File, when set, is read instead of searching Paths.
	File  string
	Paths []string
	Watch bool
}

var defaultDocumentsPaths = []string{"/var/lib/docrender/config", "/etc/docrender", "."}

type DocumentsConfigHolder struct {
	current atomic.Value // holds DocumentsConfig
}

// NewDocumentsConfigHolder loads documents.yml from the default locations and
// reloads it when the file changes.
func NewDocumentsConfigHolder(log *zap.Logger) (*DocumentsConfigHolder, error) {
	return LoadDocumentsConfig(DocumentsSource{Paths: defaultDocumentsPaths, Watch: true}, log)
}

// NewStaticDocumentsConfigHolder serves a fixed configuration.
func NewStaticDocumentsConfigHolder(cfg DocumentsConfig) *DocumentsConfigHolder {
	holder := &DocumentsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func LoadDocumentsConfig(src DocumentsSource, log *zap.Logger) (*DocumentsConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("documents.config")

	v := viper.New()
	if src.File != "" {
		v.SetConfigFile(src.File)
	} else {
		v.SetConfigName("documents")
		v.SetConfigType("yml")
		for _, p := range src.Paths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix("DOCRENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDocumentsDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("documents.yml not found, using defaults")
	}

	cfg, err := readDocumentsConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &DocumentsConfigHolder{}
	holder.current.Store(cfg)

	if src.Watch && v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readDocumentsConfig(v)
			if err != nil {
				log.Warn("invalid documents config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("documents config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

// Get returns the current snapshot. Callers take it once per build.
func (h *DocumentsConfigHolder) Get() DocumentsConfig {
	return h.current.Load().(DocumentsConfig)
}

func setDocumentsDefaults(v *viper.Viper) {
	def := DefaultDocumentsConfig()
	v.SetDefault("documents.vatRate", def.VATRate.String())
	v.SetDefault("documents.eurRate", def.EURRate.String())
	v.SetDefault("documents.currency", def.Currency)
	v.SetDefault("documents.eurCurrency", def.EURCurrency)
	v.SetDefault("documents.paymentLabels", def.PaymentLabels)
	v.SetDefault("documents.legalDisclaimer", def.LegalDisclaimer)
	v.SetDefault("documents.invoiceDir", def.InvoiceDir)
	v.SetDefault("documents.warrantyDir", def.WarrantyDir)
	v.SetDefault("documents.repairLogRows", def.RepairLogRows)
	v.SetDefault("documents.fontRegular", def.FontRegular)
	v.SetDefault("documents.fontBold", def.FontBold)
	v.SetDefault("documents.logoFetchTimeout", def.LogoFetchTimeout)
	v.SetDefault("documents.logoCacheTTL", def.LogoCacheTTL)
}

func readDocumentsConfig(v *viper.Viper) (DocumentsConfig, error) {
	vat, err := decimal.NewFromString(strings.TrimSpace(v.GetString("documents.vatRate")))
	if err != nil {
		return DocumentsConfig{}, fmt.Errorf("documents.vatRate: %w", err)
	}
	eur, err := decimal.NewFromString(strings.TrimSpace(v.GetString("documents.eurRate")))
	if err != nil {
		return DocumentsConfig{}, fmt.Errorf("documents.eurRate: %w", err)
	}

	labels := map[string]string{}
	for code, label := range v.GetStringMapString("documents.paymentLabels") {
		labels[strings.ToLower(strings.TrimSpace(code))] = label
	}

	cfg := DocumentsConfig{
		VATRate:          vat,
		EURRate:          eur,
		Currency:         strings.TrimSpace(v.GetString("documents.currency")),
		EURCurrency:      strings.TrimSpace(v.GetString("documents.eurCurrency")),
		PaymentLabels:    labels,
		LegalDisclaimer:  strings.TrimSpace(v.GetString("documents.legalDisclaimer")),
		InvoiceDir:       strings.Trim(strings.TrimSpace(v.GetString("documents.invoiceDir")), "/"),
		WarrantyDir:      strings.Trim(strings.TrimSpace(v.GetString("documents.warrantyDir")), "/"),
		RepairLogRows:    v.GetInt("documents.repairLogRows"),
		FontRegular:      strings.TrimSpace(v.GetString("documents.fontRegular")),
		FontBold:         strings.TrimSpace(v.GetString("documents.fontBold")),
		LogoFetchTimeout: v.GetDuration("documents.logoFetchTimeout"),
		LogoCacheTTL:     v.GetDuration("documents.logoCacheTTL"),
	}
	if err := validateDocumentsConfig(cfg); err != nil {
		return DocumentsConfig{}, err
	}
	return cfg, nil
}

func validateDocumentsConfig(cfg DocumentsConfig) error {
	if cfg.VATRate.IsNegative() || cfg.VATRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("documents.vatRate must be in [0, 1)")
	}
	if !cfg.EURRate.IsPositive() {
		return errors.New("documents.eurRate must be positive")
	}
	if cfg.RepairLogRows < 1 || cfg.RepairLogRows > 40 {
		return errors.New("documents.repairLogRows must be between 1 and 40")
	}
	for key, dir := range map[string]string{"invoiceDir": cfg.InvoiceDir, "warrantyDir": cfg.WarrantyDir} {
		if dir == "" || strings.Contains(dir, "..") {
			return fmt.Errorf("documents.%s must be a relative directory", key)
		}
	}
	if cfg.LogoFetchTimeout <= 0 {
		return errors.New("documents.logoFetchTimeout must be positive")
	}
	return nil
}
