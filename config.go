package granary

import "go.uber.org/zap"

// Config holds global configuration for the storage system
var Config config = config{
	chunkCapacity: 1024,
	logger:        zap.NewNop(),
}

type config struct {
	chunkCapacity int
	logger        *zap.Logger
}

// SetChunkCapacity sets the row capacity of newly created chunks. Existing
// chunks are unaffected.
func (c *config) SetChunkCapacity(n int) {
	if n > 0 {
		c.chunkCapacity = n
	}
}

// SetLogger configures the logger used by worlds created afterwards
func (c *config) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l
	}
}
