// Command gdrive-auth runs the one-time OAuth consent flow and prints the
// refresh token the storage provider needs.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
)

func main() {
	ctx := context.Background()

	clientID := mustEnv("GDRIVE_CLIENT_ID")
	clientSecret := mustEnv("GDRIVE_CLIENT_SECRET")

	// Local callback server on a free port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
		RedirectURL:  redirectURL,
	}

	state := randomState()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			errCh <- fmt.Errorf("invalid state")
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "auth error: "+e, http.StatusBadRequest)
			errCh <- fmt.Errorf("auth error: %s", e)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("missing code")
			return
		}

		fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
		codeCh <- code
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()

	// Offline access so Google hands back a refresh token.
	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Println("\nOpen this URL in your browser:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println("\nWaiting for authorization on:", redirectURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		_ = srv.Close()
		log.Fatal(err)
	case <-time.After(3 * time.Minute):
		_ = srv.Close()
		log.Fatal("timed out waiting for authorization")
	}

	_ = srv.Close()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		panic(err)
	}

	// The refresh token can come back empty if the app was authorized
	// before without prompt=consent. Revoking the prior grant fixes it.
	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Println("\nNo refresh_token received.")
		fmt.Println("Revoke the app's previous access and run this command again:")
		fmt.Println("https://myaccount.google.com/permissions")
		return
	}

	fmt.Println("\nREFRESH TOKEN:")
	fmt.Println()
	fmt.Println(tok.RefreshToken)
}

func mustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
