package engine

import "time"

type Config struct {
	// Buffer size of the event channels. Zero picks a default.
	ChannelSize int

	// Interval of the refund keeper loop.
	SweepInterval time.Duration

	// Clock used for expiry checks. Tests override it; nil means
	// time.Now.
	Now func() time.Time
}

const (
	defaultChannelSize   = 16
	defaultSweepInterval = 30 * time.Second
)

func (c *Config) channelSize() int {
	if c == nil || c.ChannelSize <= 0 {
		return defaultChannelSize
	}
	return c.ChannelSize
}

func (c *Config) sweepInterval() time.Duration {
	if c == nil || c.SweepInterval <= 0 {
		return defaultSweepInterval
	}
	return c.SweepInterval
}

func (c *Config) clock() func() time.Time {
	if c == nil || c.Now == nil {
		return time.Now
	}
	return c.Now
}
