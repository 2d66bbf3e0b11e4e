package meeting

import (
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"
    "gorm.io/gorm"

    "github.com/medilink/telecare-server/cmd/models"
    "github.com/medilink/telecare-server/cmd/utils"
    "github.com/medilink/telecare-server/service/live"
)

type MeetingHandler struct {
    db     *gorm.DB
    client *Client
    hub    *live.Hub
}

func NewMeetingHandler(db *gorm.DB, client *Client, hub *live.Hub) *MeetingHandler {
    return &MeetingHandler{db: db, client: client, hub: hub}
}

func (h *MeetingHandler) RegisterRoutes(router *mux.Router) {
    protected := router.PathPrefix("/meetings").Subrouter()
    protected.Use(utils.AuthMiddleware)

    protected.HandleFunc("/appointments/{appointmentId}", h.GetMeeting).Methods("GET")
    protected.HandleFunc("/appointments/{appointmentId}/status", h.UpdateMeetingStatus).Methods("PATCH")
}


// GetMeeting returns the video room for an appointment, creating one
// on first access if booking did not provision it.
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    appointmentID, err := parseAppointmentID(r)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.First(&appointment, appointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }

    if appointment.UserID != userID {
        http.Error(w, "Not authorized to access this appointment", http.StatusForbidden)
        return
    }

    if appointment.Cancelled {
        http.Error(w, "Appointment has been cancelled", http.StatusConflict)
        return
    }

    if appointment.MeetingID == "" {
        roomID, err := h.client.CreateRoom()
        if err != nil {
            http.Error(w, "Error creating video room", http.StatusBadGateway)
            return
        }
        if err := h.db.Model(&appointment).Update("meeting_id", roomID).Error; err != nil {
            http.Error(w, "Error saving meeting", http.StatusInternalServerError)
            return
        }
        appointment.MeetingID = roomID
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "appointment_id": appointment.ID,
        "meeting_id":     appointment.MeetingID,
    })
}


// UpdateMeetingStatus records call lifecycle transitions reported by
// the client and pushes them to anyone watching the appointment.
func (h *MeetingHandler) UpdateMeetingStatus(w http.ResponseWriter, r *http.Request) {
    appointmentID, err := parseAppointmentID(r)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return
    }

    var req struct {
        Status string `json:"status"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "Invalid request payload", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.First(&appointment, appointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }

    if appointment.Cancelled {
        http.Error(w, "Appointment has been cancelled", http.StatusConflict)
        return
    }

    updates := map[string]interface{}{}
    switch req.Status {
    case "started":
        if appointment.IsCompleted {
            http.Error(w, "Appointment already completed", http.StatusConflict)
            return
        }
        updates["video_call_active"] = true
    case "ended":
        updates["video_call_active"] = false
        updates["is_completed"] = true
    default:
        http.Error(w, "Invalid meeting status", http.StatusBadRequest)
        return
    }

    if err := h.db.Model(&appointment).Updates(updates).Error; err != nil {
        http.Error(w, "Error updating meeting status", http.StatusInternalServerError)
        return
    }

    h.hub.Notify(appointment.ID, live.Event{
        Type:          "meeting_status",
        AppointmentID: appointment.ID,
        Status:        req.Status,
    })

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message": "Meeting status updated",
        "status":  req.Status,
    })
}

func parseAppointmentID(r *http.Request) (uint, error) {
    id, err := strconv.ParseUint(mux.Vars(r)["appointmentId"], 10, 64)
    return uint(id), err
}
