// Command wsprobe logs in, opens the notification socket and prints every
// live event it receives. It is a manual check for a running API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	base := flag.String("url", "http://localhost:8375", "API base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	token := flag.String("token", "", "existing access token (skips login)")
	flag.Parse()

	if *token == "" && (*email == "" || *password == "") {
		log.Fatal("either -token or -email and -password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := &http.Client{Timeout: 10 * time.Second}
	if *token == "" {
		var login struct {
			Token string `json:"token"`
		}
		if err := postJSON(ctx, client, *base+"/users/login", "", map[string]string{
			"email":    *email,
			"password": *password,
		}, &login); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		*token = login.Token
	}

	var ticket struct {
		Ticket string `json:"ticket"`
	}
	wsURL, err := socketURL(*base)
	if err != nil {
		log.Fatalf("bad url: %v", err)
	}
	header := http.Header{}
	if err := postJSON(ctx, client, *base+"/ws/ticket", *token, nil, &ticket); err == nil {
		wsURL += "?ticket=" + url.QueryEscape(ticket.Ticket)
	} else {
		// Servers without Redis issue no tickets; fall back to the header.
		log.Printf("no ticket (%v), using bearer header", err)
		header.Set("Authorization", "Bearer "+*token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		log.Fatalf("dial %s: %v", wsURL, err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("connected to %s", wsURL)

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("connection closed: %v", err)
			}
			return
		}
		var event struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("unparsed frame: %s", data)
			continue
		}
		log.Printf("%-14s %s", event.Type, event.Payload)
		if event.Type == "logout_user" {
			return
		}
	}
}

func socketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/notifications"
	return u.String(), nil
}

func postJSON(ctx context.Context, client *http.Client, endpoint, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
