package constants

import (
	"time"
)

// Upload request defaults
const (
	// DefaultFieldName - multipart field that carries the file when none is configured
	DefaultFieldName = "file"

	// MultipartContentType - forced on every upload request; the boundary is appended at send time
	MultipartContentType = "multipart/form-data"

	// RecordIDPrefix - prefix of generated FileRecord ids
	RecordIDPrefix = "upload"
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	// 1000 events is generous for typical upload throughput
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// UI Updates
const (
	// ProgressRefreshRate - refresh rate of the multi-bar list renderer (~3 times per second)
	ProgressRefreshRate = 300 * time.Millisecond

	// ProgressBarWidth - width of the multi-bar list renderer
	ProgressBarWidth = 100

	// SingleBarThrottle - minimum interval between redraws of the single-file bar
	SingleBarThrottle = 100 * time.Millisecond
)

// Drop folder
const (
	// DropSettleDelay - how long a drop folder must be quiet before pending files are dropped
	DropSettleDelay = 750 * time.Millisecond
)

// HTTP Client Timeouts
const (
	// HTTPDialTimeout - timeout for establishing TCP connections
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for TCP connections
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections stay in the pool
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshakes
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - wait for a 100-continue response
	HTTPExpectContinueTimeout = 1 * time.Second

	// ProxyWarmupTimeout - timeout for the proxy warmup request
	ProxyWarmupTimeout = 30 * time.Second
)

// Receiver
const (
	// ReceiverDefaultAddr - listen address of the reference receiver
	ReceiverDefaultAddr = ":8088"

	// ReceiverSpaceMargin - free space required per upload, as a multiple of its size
	ReceiverSpaceMargin = 1.1

	// ReceiverListLimit - maximum files returned by GET /files
	ReceiverListLimit = 100
)
