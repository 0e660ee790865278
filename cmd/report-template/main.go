package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ignite/report-runner/internal/jobsource"
)

func main() {
	out := flag.String("out", "report_jobs.csv", "path of the job file to create")
	flag.Parse()

	if err := jobsource.WriteTemplate(*out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write job template: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Job template written to %s\n", *out)
}
