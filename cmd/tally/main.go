package main

import (
	"fmt"
	"os"

	"github.com/andy/tally/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A .env next to the binary may carry TALLY_DB_KEY; it is optional.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
