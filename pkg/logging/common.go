package logging

import "github.com/hashicorp/go-hclog"

// Common is embedded by types that log. Without a logger set, L falls back
// to the hclog default without storing it, so L never writes to the
// receiver and is safe to call from concurrent readers.
type Common struct {
	logger hclog.Logger
}

func (c *Common) L() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	return hclog.L()
}

func (c *Common) SetLogger(logger hclog.Logger) {
	c.logger = logger
}
