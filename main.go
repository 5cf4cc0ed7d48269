package main

import (
	"log"
)

// Build details set with -ldflags.
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

// @title Books Catalog API
// @version 1.0
// @description CRUD api over a catalog of books.
// @BasePath /
func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatal("application failed to initialized: ", err)
	}
	err = app.Run()
	if err != nil {
		log.Fatal("application exited. check logs for more details.", err)
	}
}
