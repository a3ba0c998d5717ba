// Package streamsvc pushes live donation alerts to websocket watchers of a
// cause page. Delivery is best-effort; slow clients are dropped.
package streamsvc

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/donation"
)

type (
	Client struct {
		hub     *Hub
		Conn    *websocket.Conn
		Send    chan []byte
		CauseID string
	}

	DonationAlert struct {
		CauseID   string `json:"cause_id"`
		DonorName string `json:"donor_name"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Message   string `json:"message,omitempty"`
	}

	Hub struct {
		clients    map[string]map[*Client]struct{} // by cause id
		register   chan *Client
		unregister chan *Client
		broadcast  chan DonationAlert
		logger     core.Logger
	}
)

var _ donation.Alerter = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan DonationAlert),
		logger:     logger,
	}
}

func (h *Hub) NewClient(conn *websocket.Conn, causeID string) *Client {
	return &Client{
		hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		CauseID: causeID,
	}
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// DonationCompleted implements donation.Alerter.
func (h *Hub) DonationCompleted(d donation.Donation) {
	h.broadcast <- DonationAlert{
		CauseID:   d.CauseID,
		DonorName: d.DonorName,
		Amount:    d.Amount,
		Currency:  d.Currency,
		Message:   d.Message,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			watchers, ok := h.clients[client.CauseID]
			if !ok {
				watchers = make(map[*Client]struct{})
				h.clients[client.CauseID] = watchers
			}
			watchers[client] = struct{}{}

		case client := <-h.unregister:
			if watchers, ok := h.clients[client.CauseID]; ok {
				if _, ok = watchers[client]; ok {
					delete(watchers, client)
					close(client.Send)
				}
				if len(watchers) == 0 {
					delete(h.clients, client.CauseID)
				}
			}

		case alert := <-h.broadcast:
			watchers, ok := h.clients[alert.CauseID]
			if !ok {
				continue
			}
			data, err := json.Marshal(alert)
			if err != nil {
				h.logger.Error(fmt.Sprintf("marshalling donation alert: %v", err), err)
				continue
			}
			for client := range watchers {
				select {
				case client.Send <- data:
				default: // slow client; drop it
					close(client.Send)
					delete(watchers, client)
				}
			}
		}
	}
}
