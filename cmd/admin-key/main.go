// Package main generates a super-admin API key for the diary service.
package main

import (
	"log"
	"os"

	"github.com/clinarc/ediary/internal/tools/adminkey"
)

func main() {
	if err := adminkey.Run(os.Stdout); err != nil {
		log.Fatalf("generate admin key: %v", err)
	}
}
