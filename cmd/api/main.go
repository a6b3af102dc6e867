package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"osmadmin.org/internal/analytics"
	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/auth"
	"osmadmin.org/internal/directory"
	"osmadmin.org/internal/history"
	"osmadmin.org/internal/httpapi"
	"osmadmin.org/internal/obs"
	"osmadmin.org/internal/refdata"
	"osmadmin.org/internal/showroom"
	"osmadmin.org/internal/store/pg"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("OSM_BUILD_COMMIT"))

	dsn := os.Getenv("OSM_PG_DSN")
	if dsn == "" {
		log.Fatal("OSM_PG_DSN is required")
	}
	secret := os.Getenv("OSM_AUTH_SECRET")
	if secret == "" {
		log.Fatal("OSM_AUTH_SECRET is required")
	}
	addr := os.Getenv("OSM_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		log.Fatalf("auth verifier: %v", err)
	}

	recorder := audit.NewRecorder(store)
	directorySvc := directory.NewService(store, recorder)

	api := httpapi.New(httpapi.Config{
		Identities: auth.NewContextBuilder(verifier, directorySvc),
		Directory:  directorySvc,
		Refdata:    refdata.NewService(store.Refdata(), recorder),
		Showroom:   showroom.NewService(store, recorder),
		History:    history.NewService(store),
		Analytics:  analytics.NewService(store),
		AuditLog:   store,
		Pinger:     store,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting osm-admin-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
