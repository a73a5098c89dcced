package main

import (
	"context"
	"log"
	"os"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("examctl: %v", err)
		os.Exit(1)
	}
}
