/*
Package facemark is a face landmark alignment library based on cascaded
regression trees: starting from a rough face rectangle, a trained
cascade converges the mean face shape onto the geometry of the depicted
face using nothing but pixel intensity comparisons.

The package provides a command line interface for training a model on a
landmark database and for aligning landmarks on new images. To check the
supported commands type:

	$ facemark --help

In case you wish to integrate the API in a self constructed environment
here is a simple example:

	package main

	import (
		"fmt"
		"github.com/esimov/facemark"
	)

	func main() {
		db, err := facemark.LoadDatabase("./ibug", 640)
		if err != nil {
			fmt.Printf("Error loading the database: %s", err.Error())
			return
		}

		tracker, err := facemark.Train(db, facemark.DefaultParameters(), 42)
		if err != nil {
			fmt.Printf("Error training the tracker: %s", err.Error())
			return
		}
		tracker.SaveFile("model.bin")
	}
*/
package facemark
