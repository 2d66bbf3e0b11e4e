package live

import (
    "log"
    "sync"
    "time"

    "github.com/gorilla/websocket"
)

const (
    writeWait  = 10 * time.Second
    pongWait   = 60 * time.Second
    pingPeriod = (pongWait * 9) / 10
)

// Event is pushed to every client watching an appointment when its
// call state changes.
type Event struct {
    Type          string `json:"type"`
    AppointmentID uint   `json:"appointment_id"`
    Status        string `json:"status"`
}

// Hub tracks websocket subscribers per appointment.
type Hub struct {
    mu      sync.RWMutex
    clients map[uint]map[*HubClient]bool
}

type HubClient struct {
    hub           *Hub
    conn          *websocket.Conn
    appointmentID uint
    send          chan Event
}

func NewHub() *Hub {
    return &Hub{
        clients: make(map[uint]map[*HubClient]bool),
    }
}

func (h *Hub) register(appointmentID uint, conn *websocket.Conn) *HubClient {
    client := &HubClient{
        hub:           h,
        conn:          conn,
        appointmentID: appointmentID,
        send:          make(chan Event, 8),
    }

    h.mu.Lock()
    if h.clients[appointmentID] == nil {
        h.clients[appointmentID] = make(map[*HubClient]bool)
    }
    h.clients[appointmentID][client] = true
    h.mu.Unlock()

    return client
}

func (h *Hub) unregister(client *HubClient) {
    h.mu.Lock()
    if subs, ok := h.clients[client.appointmentID]; ok {
        if _, ok := subs[client]; ok {
            delete(subs, client)
            close(client.send)
            if len(subs) == 0 {
                delete(h.clients, client.appointmentID)
            }
        }
    }
    h.mu.Unlock()
}

// Notify fans an event out to every subscriber of the appointment.
// Slow clients are dropped rather than blocking the sender.
//
// Sends happen under the read lock; unregister closes the channel
// under the write lock, so a disconnecting subscriber can never race
// a send onto its closed channel.
func (h *Hub) Notify(appointmentID uint, event Event) {
    var slow []*HubClient

    h.mu.RLock()
    for client := range h.clients[appointmentID] {
        select {
        case client.send <- event:
        default:
            slow = append(slow, client)
        }
    }
    h.mu.RUnlock()

    for _, client := range slow {
        h.unregister(client)
        client.conn.Close()
    }
}

func (c *HubClient) writePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        c.conn.Close()
    }()

    for {
        select {
        case event, ok := <-c.send:
            c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                c.conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }
            if err := c.conn.WriteJSON(event); err != nil {
                log.Printf("Error writing to websocket client: %v", err)
                return
            }
        case <-ticker.C:
            c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}

func (c *HubClient) readPump() {
    defer func() {
        c.hub.unregister(c)
        c.conn.Close()
    }()

    c.conn.SetReadLimit(512)
    c.conn.SetReadDeadline(time.Now().Add(pongWait))
    c.conn.SetPongHandler(func(string) error {
        c.conn.SetReadDeadline(time.Now().Add(pongWait))
        return nil
    })

    for {
        if _, _, err := c.conn.ReadMessage(); err != nil {
            break
        }
    }
}
