// walletlink connects a Phantom wallet to the marketplace backend over deep links.
// Usage: walletlink serve | connect | callback <url> | gatcha | sell | buy | withdraw | balance | reset
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
