package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/thymlegram/thymlegram/internal/api"
	"github.com/thymlegram/thymlegram/internal/config"
	"github.com/thymlegram/thymlegram/internal/store/postgres"
)

func main() {
	st, err := postgres.Open(config.Envs.DB_URL)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	handler := api.SetupRouter(st)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Envs.Port),
		Handler: handler,
		// Timeouts prevent resource exhaustion from slow clients. No
		// WriteTimeout: the event stream needs an unbounded write window.
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("Starting Thymlegram server on port: %s", config.Envs.Port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on port %s: %v", config.Envs.Port, err)
	}
}
