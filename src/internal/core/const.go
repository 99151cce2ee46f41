package core

import "time"

// Collector defaults
const (
	DefaultGELFHost       = "localhost"
	DefaultGELFPort       = 12201
	DefaultConnectTimeout = 5000 * time.Millisecond
	DefaultRetryInterval  = time.Second
)

const DefaultChannelBufferSize = 1000
