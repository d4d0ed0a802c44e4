package config

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DirectoryConfig bounds the account directory query engine.
//
// SearchCeiling and AggregateCeiling are independent limits: a search branch
// stops at SearchCeiling rows, the balance sort considers at most
// AggregateCeiling accounts.
type DirectoryConfig struct {
	PageSize         int           `mapstructure:"pageSize"`
	MaxPageSize      int           `mapstructure:"maxPageSize"`
	SearchCeiling    int           `mapstructure:"searchCeiling"`
	AggregateCeiling int           `mapstructure:"aggregateCeiling"`
	QueryTimeout     time.Duration `mapstructure:"queryTimeout"`
	BulkTimeout      time.Duration `mapstructure:"bulkTimeout"`
	BulkBatchSize    int           `mapstructure:"bulkBatchSize"`
	SearchDebounce   time.Duration `mapstructure:"searchDebounce"`
	SelectionTTL     time.Duration `mapstructure:"selectionTTL"`

	// ConfigPath points at an optional directory.yml overlay.
	ConfigPath string `mapstructure:"-"`
}

func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		PageSize:         25,
		MaxPageSize:      100,
		SearchCeiling:    500,
		AggregateCeiling: 2000,
		QueryTimeout:     30 * time.Second,
		BulkTimeout:      60 * time.Second,
		BulkBatchSize:    100,
		SearchDebounce:   300 * time.Millisecond,
		SelectionTTL:     12 * time.Hour,
	}
}

func (c DirectoryConfig) Validate() error {
	switch {
	case c.PageSize <= 0:
		return errors.New("directory.pageSize must be positive")
	case c.MaxPageSize < c.PageSize:
		return errors.New("directory.maxPageSize must be >= pageSize")
	case c.SearchCeiling <= 0:
		return errors.New("directory.searchCeiling must be positive")
	case c.AggregateCeiling <= 0:
		return errors.New("directory.aggregateCeiling must be positive")
	case c.QueryTimeout <= 0:
		return errors.New("directory.queryTimeout must be positive")
	case c.BulkTimeout <= 0:
		return errors.New("directory.bulkTimeout must be positive")
	case c.BulkBatchSize <= 0:
		return errors.New("directory.bulkBatchSize must be positive")
	case c.SearchDebounce < 0:
		return errors.New("directory.searchDebounce cannot be negative")
	}
	return nil
}

// DirectoryConfigHolder serves the current directory limits. The value may
// be swapped at runtime when a watched overlay file changes.
type DirectoryConfigHolder struct {
	current atomic.Value // holds DirectoryConfig
}

// NewDirectoryConfigHolder returns a holder pinned to cfg.
func NewDirectoryConfigHolder(cfg DirectoryConfig) *DirectoryConfigHolder {
	holder := &DirectoryConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *DirectoryConfigHolder) Get() DirectoryConfig {
	if h == nil {
		return DefaultDirectoryConfig()
	}
	return h.current.Load().(DirectoryConfig)
}

// WatchDirectoryConfig loads the overlay at cfg.ConfigPath (when set) on top
// of the env-derived values and reloads it on change.
func WatchDirectoryConfig(cfg Config) (*DirectoryConfigHolder, error) {
	base := cfg.Directory
	if err := base.Validate(); err != nil {
		return nil, err
	}
	holder := NewDirectoryConfigHolder(base)
	if base.ConfigPath == "" {
		return holder, nil
	}

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(filepath.Base(base.ConfigPath), filepath.Ext(base.ConfigPath)))
	v.SetConfigType("yml")
	v.AddConfigPath(filepath.Dir(base.ConfigPath))

	v.SetDefault("directory.pageSize", base.PageSize)
	v.SetDefault("directory.maxPageSize", base.MaxPageSize)
	v.SetDefault("directory.searchCeiling", base.SearchCeiling)
	v.SetDefault("directory.aggregateCeiling", base.AggregateCeiling)
	v.SetDefault("directory.queryTimeout", base.QueryTimeout)
	v.SetDefault("directory.bulkTimeout", base.BulkTimeout)
	v.SetDefault("directory.bulkBatchSize", base.BulkBatchSize)
	v.SetDefault("directory.searchDebounce", base.SearchDebounce)
	v.SetDefault("directory.selectionTTL", base.SelectionTTL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return holder, nil
	}

	loaded, err := decodeDirectory(v, base.ConfigPath)
	if err != nil {
		return nil, err
	}
	holder.current.Store(loaded)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeDirectory(v, base.ConfigPath)
		if err != nil {
			log.Printf("[directory-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[directory-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func decodeDirectory(v *viper.Viper, path string) (DirectoryConfig, error) {
	var cfg DirectoryConfig
	if err := v.UnmarshalKey("directory", &cfg); err != nil {
		return DirectoryConfig{}, err
	}
	cfg.ConfigPath = path
	if err := cfg.Validate(); err != nil {
		return DirectoryConfig{}, err
	}
	return cfg, nil
}
