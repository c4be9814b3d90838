package webscraper

import "time"

const (
	DefaultPageLimit = 1000 // maximum number of visited URLs per crawl
	StartLabel       = "start"
	MetaRefreshLabel = "meta-refresh"

	SuccessStatus          = 200 // any other page status is an anomaly
	ExternalFailureAbove   = 403 // external links answering above this are broken
	DefaultTimeout         = 10 * time.Second
	DefaultNavTimeout      = 30 * time.Second
	MaxExternalConcurrency = 20
)
