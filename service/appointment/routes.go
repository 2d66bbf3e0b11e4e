package appointment

import (
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "sort"
    "strconv"
    "time"

    "github.com/gorilla/mux"
    "github.com/lib/pq"
    "gorm.io/gorm"

    "github.com/medilink/telecare-server/cmd/models"
    "github.com/medilink/telecare-server/cmd/utils"
    "github.com/medilink/telecare-server/service/doctor"
    "github.com/medilink/telecare-server/service/meeting"
    "github.com/medilink/telecare-server/service/schedule"
)

type AppointmentHandler struct {
    db       *gorm.DB
    meetings *meeting.Client
}

func NewAppointmentHandler(db *gorm.DB, meetings *meeting.Client) *AppointmentHandler {
    return &AppointmentHandler{db: db, meetings: meetings}
}


func (h *AppointmentHandler) RegisterRoutes(router *mux.Router) {
    protected := router.PathPrefix("/appointments").Subrouter()
    protected.Use(utils.AuthMiddleware)

    protected.HandleFunc("/book", h.BookAppointment).Methods("POST")
    protected.HandleFunc("", h.GetUserAppointments).Methods("GET")
    protected.HandleFunc("/{id}", h.GetAppointment).Methods("GET")
    protected.HandleFunc("/{id}/cancel", h.CancelAppointment).Methods("PATCH")
    protected.HandleFunc("/{id}/payment", h.UpdatePaymentStatus).Methods("PATCH")
}


func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var bookingRequest struct {
        DoctorID uint   `json:"doctor_id"`
        SlotDate string `json:"slot_date"`
        SlotTime string `json:"slot_time"`
    }

    if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    slotInstant, err := schedule.SlotInstant(bookingRequest.SlotDate, bookingRequest.SlotTime, time.Local)
    if err != nil {
        http.Error(w, "Invalid slot date or time", http.StatusBadRequest)
        return
    }
    if slotInstant.Before(time.Now()) {
        http.Error(w, "Slot is in the past", http.StatusBadRequest)
        return
    }

    slotKey := schedule.SlotKey(slotInstant)
    slotTime := schedule.FormatSlotTime(slotInstant)

    tx := h.db.Begin()

    var doc models.Doctor
    if err := tx.First(&doc, bookingRequest.DoctorID).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Doctor not found", http.StatusNotFound)
        return
    }

    if !doc.Available {
        tx.Rollback()
        http.Error(w, "Doctor is not available", http.StatusConflict)
        return
    }

    // Re-check the slot inside the transaction so two bookings racing
    // for the same time cannot both succeed.
    var bookedSlot models.BookedSlot
    err = tx.Where("doctor_id = ? AND slot_key = ?", doc.ID, slotKey).First(&bookedSlot).Error
    switch {
    case err == nil:
        for _, taken := range bookedSlot.Times {
            if taken == slotTime {
                tx.Rollback()
                http.Error(w, "Time slot already booked", http.StatusConflict)
                return
            }
        }
        bookedSlot.Times = append(bookedSlot.Times, slotTime)
        if err := tx.Save(&bookedSlot).Error; err != nil {
            tx.Rollback()
            http.Error(w, "Error reserving slot", http.StatusInternalServerError)
            return
        }
    case errors.Is(err, gorm.ErrRecordNotFound):
        bookedSlot = models.BookedSlot{
            DoctorID: doc.ID,
            SlotKey:  slotKey,
            Times:    pq.StringArray{slotTime},
        }
        if err := tx.Create(&bookedSlot).Error; err != nil {
            tx.Rollback()
            http.Error(w, "Error reserving slot", http.StatusInternalServerError)
            return
        }
    default:
        tx.Rollback()
        http.Error(w, "Error checking slot", http.StatusInternalServerError)
        return
    }

    appointment := models.Appointment{
        UserID:   userID,
        DoctorID: doc.ID,
        SlotDate: slotKey,
        SlotTime: slotTime,
        Amount:   doc.Fees,
        BookedAt: time.Now(),
    }

    if roomID, err := h.meetings.CreateRoom(); err != nil {
        // The room can still be provisioned on first join.
        log.Printf("Error creating video room for booking: %v", err)
    } else {
        appointment.MeetingID = roomID
    }

    if err := tx.Create(&appointment).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error creating appointment", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error completing booking", http.StatusInternalServerError)
        return
    }

    h.db.Preload("Doctor").First(&appointment, appointment.ID)

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(h.withSession(appointment, time.Now()))
}


// GetUserAppointments lists the caller's appointments with their
// derived session state, active calls first and then newest slot first.
func (h *AppointmentHandler) GetUserAppointments(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var appointments []models.Appointment
    if err := h.db.Preload("Doctor").
        Where("user_id = ?", userID).
        Find(&appointments).Error; err != nil {
        http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
        return
    }

    now := time.Now()
    responses := make([]map[string]interface{}, 0, len(appointments))
    sessions := make([]schedule.Session, 0, len(appointments))

    for _, apt := range appointments {
        session, err := schedule.Classify(toScheduleAppointment(apt), now)
        if err != nil {
            log.Printf("Skipping appointment %d with bad slot data: %v", apt.ID, err)
            continue
        }
        sessions = append(sessions, session)
        responses = append(responses, map[string]interface{}{
            "appointment": apt,
            "session":     session,
        })
    }

    sort.SliceStable(responses, func(i, j int) bool {
        a, b := sessions[i], sessions[j]
        if a.Status == schedule.StatusVideoCallActive && b.Status != schedule.StatusVideoCallActive {
            return true
        }
        if b.Status == schedule.StatusVideoCallActive && a.Status != schedule.StatusVideoCallActive {
            return false
        }
        return a.StartsAt.After(b.StartsAt)
    })

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "appointments": responses,
        "total":        len(responses),
    })
}


func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    appointment, ok := h.loadOwnedAppointment(w, r, userID)
    if !ok {
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(h.withSession(appointment, time.Now()))
}


func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    appointment, ok := h.loadOwnedAppointment(w, r, userID)
    if !ok {
        return
    }

    if appointment.IsCompleted {
        http.Error(w, "Completed appointments cannot be cancelled", http.StatusConflict)
        return
    }
    if appointment.Cancelled {
        http.Error(w, "Appointment already cancelled", http.StatusConflict)
        return
    }

    tx := h.db.Begin()

    if err := tx.Model(&appointment).Updates(map[string]interface{}{
        "cancelled":         true,
        "video_call_active": false,
    }).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error cancelling appointment", http.StatusInternalServerError)
        return
    }

    if err := doctor.ReleaseSlot(tx, appointment.DoctorID, appointment.SlotDate, appointment.SlotTime); err != nil {
        tx.Rollback()
        http.Error(w, "Error releasing slot", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error cancelling appointment", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message": "Appointment cancelled",
    })
}


func (h *AppointmentHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    appointment, ok := h.loadOwnedAppointment(w, r, userID)
    if !ok {
        return
    }

    var req struct {
        PaymentID string `json:"payment_id"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }
    if req.PaymentID == "" {
        http.Error(w, "Payment ID required", http.StatusBadRequest)
        return
    }

    if err := h.db.Model(&appointment).Updates(map[string]interface{}{
        "payment":    true,
        "payment_id": req.PaymentID,
    }).Error; err != nil {
        http.Error(w, "Error updating payment status", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message": "Payment recorded",
    })
}


func (h *AppointmentHandler) loadOwnedAppointment(w http.ResponseWriter, r *http.Request, userID uint) (models.Appointment, bool) {
    id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return models.Appointment{}, false
    }

    var appointment models.Appointment
    if err := h.db.Preload("Doctor").First(&appointment, id).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return models.Appointment{}, false
    }

    if appointment.UserID != userID {
        http.Error(w, "Not authorized to access this appointment", http.StatusForbidden)
        return models.Appointment{}, false
    }

    return appointment, true
}

func (h *AppointmentHandler) withSession(apt models.Appointment, now time.Time) map[string]interface{} {
    response := map[string]interface{}{
        "appointment": apt,
    }
    if session, err := schedule.Classify(toScheduleAppointment(apt), now); err == nil {
        response["session"] = session
    } else {
        log.Printf("Error classifying appointment %d: %v", apt.ID, err)
    }
    return response
}

func toScheduleAppointment(apt models.Appointment) schedule.Appointment {
    return schedule.Appointment{
        SlotDate:        apt.SlotDate,
        SlotTime:        apt.SlotTime,
        Amount:          apt.Amount,
        Payment:         apt.Payment,
        IsCompleted:     apt.IsCompleted,
        Cancelled:       apt.Cancelled,
        VideoCallActive: apt.VideoCallActive,
    }
}
