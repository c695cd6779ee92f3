// Package cli implements the command-line interface for the schedule
// scraper.
//
// The cli package provides the Cobra-based CLI with commands for running a
// full season sync, listing the pools a scrape would cover, serving the HTTP
// API, and maintaining the local scrape cache. It wires together the config,
// refdata, pipeline and calendar packages.
package cli
