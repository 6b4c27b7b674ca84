package settings

const (
	KindBTree = "btree"
	KindHash  = "hash"

	DefaultPageSize  = 4096
	DefaultCacheSize = 512
	DefaultMinItems  = 4
	DefaultLogLevel  = "info"
)

// Default returns a Store configuration for path with every tunable at its default.
func Default(path string) Store {
	s := Store{Path: path}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills zero-valued fields.
func (s *Store) ApplyDefaults() {
	if s.Kind == "" {
		s.Kind = KindBTree
	}
	if s.PageSize == 0 {
		s.PageSize = DefaultPageSize
	}
	if s.CacheSize == 0 {
		s.CacheSize = DefaultCacheSize
	}
	if s.MinItems == 0 {
		s.MinItems = DefaultMinItems
	}
}

// ApplyDefaults fills zero-valued fields.
func (l *Logger) ApplyDefaults() {
	if l.LogLevel == "" {
		l.LogLevel = DefaultLogLevel
	}
}

// ApplyDefaults fills zero-valued fields of every section.
func (c *Config) ApplyDefaults() {
	c.Store.ApplyDefaults()
	c.Logger.ApplyDefaults()
}
