package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"ciphermesh/internal/relay"
)

func main() {
	_ = godotenv.Load() // optional; missing .env is not an error

	addr := flag.String("addr", envOr("CIPHERMESH_RELAY_ADDR", ":8080"), "listen address")
	flag.Parse()

	srv := relay.NewServer()
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	srv.Routes(r)

	log.Printf("relay listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, r))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

