package kv

import "go.uber.org/zap"

type options struct {
	logger *zap.Logger
}

// Option configures a DB.
type Option func(*options)

// WithLogger sets the logger shared by the database and its store.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
