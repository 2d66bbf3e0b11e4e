package doctor

import (
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/gorilla/mux"
    "github.com/medilink/telecare-server/cmd/models"
    "github.com/medilink/telecare-server/service/schedule"
    "gorm.io/gorm"
)

type DoctorHandler struct {
    db *gorm.DB
}

func NewDoctorHandler(db *gorm.DB) *DoctorHandler {
    return &DoctorHandler{db: db}
}


func (h *DoctorHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/doctors", h.GetDoctors).Methods("GET")
    router.HandleFunc("/doctors/{id}", h.GetDoctor).Methods("GET")
    router.HandleFunc("/doctors/{id}/slots", h.GetAvailableSlots).Methods("GET")
    router.HandleFunc("/doctors/{id}/availability", h.UpdateAvailability).Methods("PATCH")
    router.HandleFunc("/doctors/{id}/appointments", h.GetDoctorAppointments).Methods("GET")
    router.HandleFunc("/doctors/appointments/{id}/complete", h.CompleteAppointment).Methods("PATCH")
    router.HandleFunc("/doctors/appointments/{id}/cancel", h.CancelAppointment).Methods("PATCH")
}


func (h *DoctorHandler) GetDoctors(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 20

    query := h.db.Model(&models.Doctor{})

    if speciality := r.URL.Query().Get("speciality"); speciality != "" {
        query = query.Where("speciality = ?", speciality)
    }
    if available := r.URL.Query().Get("available"); available != "" {
        isAvailable, err := strconv.ParseBool(available)
        if err != nil {
            http.Error(w, "Invalid value for 'available'", http.StatusBadRequest)
            return
        }
        query = query.Where("available = ?", isAvailable)
    }

    var total int64
    query.Count(&total)

    var doctors []models.Doctor
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("name ASC").Find(&doctors).Error; err != nil {
        http.Error(w, "Error retrieving doctors", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "doctors":     doctors,
        "total":       total,
        "page":        page,
        "page_size":   pageSize,
        "total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
    })
}


func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
        return
    }

    var doctor models.Doctor
    if err := h.db.First(&doctor, doctorID).Error; err != nil {
        http.Error(w, "Doctor not found", http.StatusNotFound)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(doctor)
}


// GetAvailableSlots exposes the bookable slots for a doctor over the
// coming week. The result is advisory: booking re-validates the slot
// inside a transaction before committing.
func (h *DoctorHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
        return
    }

    var doctor models.Doctor
    if err := h.db.First(&doctor, doctorID).Error; err != nil {
        http.Error(w, "Doctor not found", http.StatusNotFound)
        return
    }

    doc, err := LoadSchedule(h.db, uint(doctorID))
    if err != nil {
        http.Error(w, "Error loading booked slots", http.StatusInternalServerError)
        return
    }

    groups := schedule.AvailableSlots(doc, time.Now(), schedule.DefaultSlotOptions())

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "available":   doctor.Available,
        "date_groups": groups,
    })
}


// LoadSchedule snapshots a doctor's availability and booked slots for
// the scheduling engine.
func LoadSchedule(db *gorm.DB, doctorID uint) (schedule.DoctorSchedule, error) {
    var doctor models.Doctor
    if err := db.First(&doctor, doctorID).Error; err != nil {
        return schedule.DoctorSchedule{}, err
    }

    var rows []models.BookedSlot
    if err := db.Where("doctor_id = ?", doctorID).Find(&rows).Error; err != nil {
        return schedule.DoctorSchedule{}, err
    }

    booked := make(map[string][]string, len(rows))
    for _, row := range rows {
        booked[row.SlotKey] = append(booked[row.SlotKey], row.Times...)
    }

    return schedule.DoctorSchedule{
        Available:   doctor.Available,
        SlotsBooked: booked,
    }, nil
}


func (h *DoctorHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
        return
    }

    var availabilityUpdate struct {
        Available bool `json:"available"`
    }
    if err := json.NewDecoder(r.Body).Decode(&availabilityUpdate); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    result := h.db.Model(&models.Doctor{}).Where("id = ?", doctorID).
        Update("available", availabilityUpdate.Available)

    if result.Error != nil {
        http.Error(w, "Error updating availability", http.StatusInternalServerError)
        return
    }
    if result.RowsAffected == 0 {
        http.Error(w, "Doctor not found", http.StatusNotFound)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message":   "Availability updated successfully",
        "available": availabilityUpdate.Available,
    })
}


func (h *DoctorHandler) GetDoctorAppointments(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
        return
    }

    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.Appointment{}).Where("doctor_id = ?", doctorID).
        Preload("User")

    var total int64
    query.Count(&total)

    var appointments []models.Appointment
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("booked_at DESC").Find(&appointments).Error; err != nil {
        http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
        return
    }

    now := time.Now()
    items := make([]map[string]interface{}, 0, len(appointments))
    for _, apt := range appointments {
        item := map[string]interface{}{"appointment": apt}
        session, classifyErr := schedule.Classify(schedule.Appointment{
            SlotDate:        apt.SlotDate,
            SlotTime:        apt.SlotTime,
            Amount:          apt.Amount,
            Payment:         apt.Payment,
            IsCompleted:     apt.IsCompleted,
            Cancelled:       apt.Cancelled,
            VideoCallActive: apt.VideoCallActive,
        }, now)
        if classifyErr != nil {
            log.Printf("Skipping session state for appointment %d: %v", apt.ID, classifyErr)
        } else {
            item["session"] = session
        }
        items = append(items, item)
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "appointments": items,
        "total":        total,
        "page":         page,
        "page_size":    pageSize,
        "total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
    })
}


func (h *DoctorHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.First(&appointment, appointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }

    if appointment.Cancelled {
        http.Error(w, "Cannot complete a cancelled appointment", http.StatusConflict)
        return
    }

    if err := h.db.Model(&appointment).Updates(map[string]interface{}{
        "is_completed":      true,
        "video_call_active": false,
    }).Error; err != nil {
        http.Error(w, "Error completing appointment", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "Appointment marked as completed",
    })
}


func (h *DoctorHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.First(&appointment, appointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }

    if appointment.IsCompleted {
        http.Error(w, "Cannot cancel a completed appointment", http.StatusConflict)
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

    if err := ReleaseSlot(tx, appointment.DoctorID, appointment.SlotDate, appointment.SlotTime); err != nil {
        tx.Rollback()
        http.Error(w, "Error releasing slot", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error cancelling appointment", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "Appointment cancelled successfully",
    })
}


// ReleaseSlot removes a time from a doctor's booked-slot row so the
// generator offers it again.
func ReleaseSlot(tx *gorm.DB, doctorID uint, slotKey, slotTime string) error {
    var row models.BookedSlot
    if err := tx.Where("doctor_id = ? AND slot_key = ?", doctorID, slotKey).First(&row).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil
        }
        return err
    }

    kept := row.Times[:0]
    for _, t := range row.Times {
        if t != slotTime {
            kept = append(kept, t)
        }
    }
    row.Times = kept

    if len(row.Times) == 0 {
        return tx.Delete(&row).Error
    }
    return tx.Save(&row).Error
}
