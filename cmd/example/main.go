// Command example demonstrates a minimal HTTP server using sesh's generic
// session middleware with a SQLite-backed store.
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/brinkbound/sesh"
)

// visitorSession is the application-defined session payload. Any Go type
// works here as long as it round-trips through the configured Codec.
type visitorSession struct {
	Count int `json:"count"`
}

func main() {
	store, err := sesh.NewSQLStore[visitorSession]("sqlite", "sessions.db", sesh.SQLStoreConfig{
		Dialect:      sesh.SQLiteDialect{},
		MaxOpenConns: 16,
	})
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	cipherKey := sesh.GenerateRandomKey(64)
	layer := sesh.NewSessionLayer[visitorSession, *sesh.SQLStore[visitorSession]](store, cipherKey).
		CookieName("my_app_session").
		SessionExpiry(time.Hour)

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		session, err := sesh.FromContext[visitorSession](r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data, _, err := session.Get(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data.Count++
		session.Insert(data)

		fmt.Fprintf(w, "Hello! You have visited this page %d times.", data.Count)
	})

	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		session, err := sesh.FromContext[visitorSession](r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		session.Purge()
		fmt.Fprint(w, "Logged out!")
	})

	fmt.Println("Server starting on :8080...")
	log.Fatal(http.ListenAndServe(":8080", layer.Middleware(mux)))
}
