package main

import "github.com/ndegwamoche/calendar-sync-scraper/internal/cli"

func main() {
	cli.Execute()
}
