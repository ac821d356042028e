// Package config provides configuration structures and utilities for sitescrape.
// It defines the crawl options collected from command-line flags, the
// optional .sitescrape job file with selectors and per-site settings, and
// the XDG directories used for the run history.
package config
