// Package main is the site-crawler CLI. It crawls every page of a site
// reachable from a seed URL, reports console errors, bad status codes and
// broken external links, and exits with status 1 when any are found so it
// can gate CI pipelines.
//
// Usage:
//
//	site-crawler https://example.com/
//	site-crawler --config crawl.yaml --csv report
package main

func main() {
	Execute()
}
