// Command kitchen is a terminal kitchen display. It pulls the open
// tickets for a branch, subscribes to the branch's order feed, and
// re-renders the grouped board on every event. On connection loss it
// reconnects and refetches the snapshot so no update is missed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dapur-pos/api/internal/kitchen"
	"github.com/dapur-pos/api/internal/service"
	"github.com/dapur-pos/api/internal/ws"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "API base URL")
	branchID := flag.Int64("branch", 0, "Branch ID to display")
	token := flag.String("token", "", "Access token (or KITCHEN_TOKEN env)")
	flag.Parse()

	if *token == "" {
		*token = os.Getenv("KITCHEN_TOKEN")
	}
	if *branchID == 0 || *token == "" {
		log.Fatal("both -branch and -token (or KITCHEN_TOKEN) are required")
	}

	for {
		if err := run(*apiURL, *branchID, *token); err != nil {
			log.Printf("ERROR: %v, reconnecting in 3s", err)
			time.Sleep(3 * time.Second)
		}
	}
}

// run fetches a fresh snapshot, then consumes the event stream until
// the connection drops.
func run(apiURL string, branchID int64, token string) error {
	board, err := fetchBoard(apiURL, branchID, token)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	render(board)

	wsURL, err := feedURL(apiURL, branchID, token)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()
	log.Printf("Subscribed to branch %d order feed", branchID)

	for {
		var event ws.Event
		if err := conn.ReadJSON(&event); err != nil {
			return fmt.Errorf("read event: %w", err)
		}

		switch event.Type {
		case ws.EventOrderCreated:
			var order service.OrderPayload
			if err := json.Unmarshal(event.Payload, &order); err != nil {
				log.Printf("ERROR: decode %s: %v", event.Type, err)
				continue
			}
			board.ApplyCreated(order)
		case ws.EventOrderUpdated:
			var update service.UpdateEvent
			if err := json.Unmarshal(event.Payload, &update); err != nil {
				log.Printf("ERROR: decode %s: %v", event.Type, err)
				continue
			}
			board.ApplyUpdated(update.Order)
		default:
			continue
		}
		render(board)
	}
}

func fetchBoard(apiURL string, branchID int64, token string) (*kitchen.Board, error) {
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/branches/%d/orders/kitchen", apiURL, branchID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request returned %s", resp.Status)
	}

	var snapshot struct {
		Orders     []service.OrderPayload `json:"orders"`
		TotalCount int32                  `json:"total_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, err
	}

	return kitchen.NewBoard(snapshot.Orders, snapshot.TotalCount), nil
}

func feedURL(apiURL string, branchID int64, token string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = fmt.Sprintf("/ws/branches/%d/orders", branchID)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// render clears the terminal and prints the grouped board.
func render(board *kitchen.Board) {
	fmt.Print("\033[2J\033[H")
	fmt.Printf("KITCHEN BOARD  %s\n", time.Now().Format("15:04:05"))
	fmt.Println(strings.Repeat("=", 48))

	groups := board.Groups()
	if len(groups) == 0 {
		fmt.Println("no open tickets")
		return
	}

	for _, g := range groups {
		seqs := make([]string, len(g.Sequences))
		for i, s := range g.Sequences {
			seqs[i] = fmt.Sprintf("#%d", s)
		}
		fmt.Printf("%-20s %-10s %s\n", g.Key, g.Status, strings.Join(seqs, " "))
	}
}
