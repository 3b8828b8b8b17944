// Package main provides the entrypoint for sms-relay-app.
package main

import (
	"os"

	"github.com/isometry/sms-relay-app/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
