package api

import (
	"fmt"
	"log"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/thymlegram/thymlegram/docs"

	"github.com/rs/cors"

	"github.com/thymlegram/thymlegram/internal/api/handlers"
	"github.com/thymlegram/thymlegram/internal/api/middleware"
	"github.com/thymlegram/thymlegram/internal/chat"
	"github.com/thymlegram/thymlegram/internal/config"
	"github.com/thymlegram/thymlegram/internal/store"
)

// Backend bundles what the handlers need: the row store and the change feed.
type Backend interface {
	store.Store
	store.Notifier
}

func SetupRouter(backend Backend) http.Handler {
	a := handlers.NewAPI(chat.NewService(backend, config.Envs.MessageKey), backend, backend)

	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("/sign-up", a.RegisterUser)
	authMux.HandleFunc("/login", a.LoginUser)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()

	contactMux := http.NewServeMux()
	contactMux.HandleFunc("/", a.Contacts)
	contactMux.HandleFunc("/{id}/messages", a.Messages)

	tempMux := http.NewServeMux()
	tempMux.HandleFunc("/contacts", a.TempContacts)
	tempMux.HandleFunc("/contacts/{id}/messages", a.TempMessages)
	tempMux.HandleFunc("/contacts/{id}/stop", a.StopConversation)
	tempMux.HandleFunc("/cleanup", a.CleanupExpired)

	// The exact path bypasses StripPrefix: stripping "/contacts" from itself
	// leaves an empty path, which ServeMux would redirect away.
	protectedMux.HandleFunc("/contacts", a.Contacts)
	protectedMux.Handle("/contacts/",
		http.StripPrefix("/contacts", contactMux),
	)
	protectedMux.Handle("/temp/",
		http.StripPrefix("/temp", tempMux),
	)

	protectedMux.HandleFunc("/events", a.StreamEvents)
	protectedMux.HandleFunc("/auth/logout", a.Logout)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.AuthMiddleware(protectedMux),
		),
	)

	log.Println("Router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}
