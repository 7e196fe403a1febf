package main

import (
	"os"

	"github.com/ivanoskov/wallet_sessions/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
