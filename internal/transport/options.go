package transport

import (
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/wire"
)

// DefaultPort is the well-known port a host listens on.
const DefaultPort = 5000

type options struct {
	maxFrame    int
	dialTimeout time.Duration
	logger      *zap.Logger
}

// Option tunes Dial, Listen and their WebSocket variants.
type Option func(*options)

func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrame = n
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		maxFrame:    wire.DefaultMaxFrameSize,
		dialTimeout: 10 * time.Second,
		logger:      obslog.L(),
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
