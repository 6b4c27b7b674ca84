package settings

type Config struct {
	Store  Store  `mapstructure:"store" yaml:"store"`
	Logger Logger `mapstructure:"logger" yaml:"logger"`
}

// Store is the configuration for a database file
type Store struct {
	Path      string `mapstructure:"path" yaml:"path" validate:"required"`
	Create    bool   `mapstructure:"create" yaml:"create"`
	Kind      string `mapstructure:"kind" yaml:"kind" validate:"oneof=btree hash"`
	PageSize  int    `mapstructure:"page_size" yaml:"page_size" validate:"min=512,max=65536,pow2"` // Bytes
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size" validate:"min=16"`               // Pages
	MinItems  int    `mapstructure:"min_items" yaml:"min_items" validate:"min=4,max=64"`
}

// Logger is the configuration for the logger
type Logger struct {
	LogLevel    string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	FileLogName string `mapstructure:"file_log_name" yaml:"file_log_name"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups" validate:"min=0"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age" validate:"min=0"`   // Days
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size" validate:"min=0"` // Megabytes
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}
