package service

import "time"

// Config tunes the order service.
type Config struct {
	// Currency is the ISO code stamped on new orders.
	Currency string
	// PayLockTTL bounds how long one payment attempt holds an order.
	PayLockTTL time.Duration
	// AuthorizeTimeout bounds a single gateway authorization. Zero means the
	// request context alone decides.
	AuthorizeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.PayLockTTL <= 0 {
		c.PayLockTTL = 30 * time.Second
	}
	return c
}
