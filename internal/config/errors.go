package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	ErrNoTarget          = errors.New("no target specified: provide a URL argument or set target in the config file")
	ErrInvalidPageLimit  = errors.New("invalid page limit: must be positive")
	ErrInvalidWait       = errors.New("invalid wait: must be non-negative")
	ErrInvalidPolicy     = errors.New("invalid on_traversal_error: must be partial or discard")
	ErrInvalidSelection  = errors.New("invalid selection: must be fifo or random")
	ErrInvalidTimeout    = errors.New("invalid timeout: must be non-negative")
	ErrInvalidRetries    = errors.New("invalid external.max_retries: must be non-negative")
	ErrInvalidLogLevel   = errors.New("invalid logging.level: must be debug, info, warn or error")
	ErrInvalidLogFormat  = errors.New("invalid logging.format: must be text or json")
	ErrInvalidConcurrent = errors.New("invalid external.concurrency: must be between 1 and 20")
)
