package live

import (
    "log"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"
    "github.com/gorilla/websocket"

    "github.com/medilink/telecare-server/cmd/utils"
)

var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    CheckOrigin: func(r *http.Request) bool {
        return true
    },
}

type LiveHandler struct {
    hub *Hub
}

func NewLiveHandler(hub *Hub) *LiveHandler {
    return &LiveHandler{hub: hub}
}

func (h *LiveHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/ws/appointments/{appointmentId}", h.HandleConnection).Methods("GET")
}


// HandleConnection upgrades the request and subscribes the caller to
// call-state events for one appointment. Browsers cannot set headers
// on websocket requests, so the token rides in the query string.
func (h *LiveHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
    tokenString := r.URL.Query().Get("token")
    if tokenString == "" {
        http.Error(w, "Token required", http.StatusUnauthorized)
        return
    }

    if _, err := utils.ValidateToken(tokenString); err != nil {
        http.Error(w, "Invalid token", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    appointmentID, err := strconv.ParseUint(vars["appointmentId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return
    }

    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        log.Printf("Error upgrading websocket connection: %v", err)
        return
    }

    client := h.hub.register(uint(appointmentID), conn)

    go client.writePump()
    go client.readPump()
}
