package main

import (
	"context"
	"log"

	"heirloom/internal/app/bootstrap"
)

// Gateway process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build edge wiring (bearer verification, signing forwarders, audit).
// 3) Start the public HTTP listener.
func main() {
	log.Println("heirloom gateway starting")
	app, err := bootstrap.BuildGateway()
	if err != nil {
		log.Fatalf("bootstrap gateway failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("gateway shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("heirloom gateway stopped with error: %v", err)
	}
}
