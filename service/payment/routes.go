package payment

import (
    "encoding/json"
    "net/http"

    "github.com/gorilla/mux"
    "gorm.io/gorm"

    "github.com/medilink/telecare-server/cmd/models"
    "github.com/medilink/telecare-server/cmd/utils"
)

type PaymentHandler struct {
    db     *gorm.DB
    client *Client
}

func NewPaymentHandler(db *gorm.DB, client *Client) *PaymentHandler {
    return &PaymentHandler{db: db, client: client}
}

func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
    protected := router.PathPrefix("/payments").Subrouter()
    protected.Use(utils.AuthMiddleware)

    protected.HandleFunc("/orders", h.CreateOrder).Methods("POST")
    protected.HandleFunc("/orders/{orderId}/capture", h.CaptureOrder).Methods("POST")
    protected.HandleFunc("/transactions", h.GetUserTransactions).Methods("GET")
}


// CreateOrder opens a checkout order for an unpaid appointment and
// records a pending transaction for it.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var req struct {
        AppointmentID uint `json:"appointment_id"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.First(&appointment, req.AppointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }

    if appointment.UserID != userID {
        http.Error(w, "Not authorized to pay for this appointment", http.StatusForbidden)
        return
    }
    if appointment.Cancelled {
        http.Error(w, "Appointment has been cancelled", http.StatusConflict)
        return
    }
    if appointment.Payment {
        http.Error(w, "Appointment already paid", http.StatusConflict)
        return
    }

    orderID, err := h.client.CreateOrder(appointment.Amount, "USD")
    if err != nil {
        http.Error(w, "Error creating payment order", http.StatusBadGateway)
        return
    }

    transaction := models.Transaction{
        UserID:        userID,
        AppointmentID: appointment.ID,
        Amount:        appointment.Amount,
        Currency:      "USD",
        Method:        "paypal",
        OrderID:       orderID,
        Status:        "pending",
    }
    if err := h.db.Create(&transaction).Error; err != nil {
        http.Error(w, "Error recording transaction", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(map[string]interface{}{
        "order_id":       orderID,
        "transaction_id": transaction.ID,
        "amount":         appointment.Amount,
        "currency":       "USD",
    })
}


// CaptureOrder captures an approved order and marks the appointment
// as paid in the same transaction as the ledger update.
func (h *PaymentHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    orderID := mux.Vars(r)["orderId"]

    var transaction models.Transaction
    if err := h.db.Where("order_id = ?", orderID).First(&transaction).Error; err != nil {
        http.Error(w, "Transaction not found", http.StatusNotFound)
        return
    }

    if transaction.UserID != userID {
        http.Error(w, "Not authorized to capture this order", http.StatusForbidden)
        return
    }
    if transaction.Status == "completed" {
        http.Error(w, "Order already captured", http.StatusConflict)
        return
    }

    captureID, err := h.client.CaptureOrder(orderID)
    if err != nil {
        h.db.Model(&transaction).Update("status", "failed")
        http.Error(w, "Error capturing payment", http.StatusBadGateway)
        return
    }

    tx := h.db.Begin()

    if err := tx.Model(&transaction).Updates(map[string]interface{}{
        "status":     "completed",
        "capture_id": captureID,
    }).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error updating transaction", http.StatusInternalServerError)
        return
    }

    if err := tx.Model(&models.Appointment{}).
        Where("id = ?", transaction.AppointmentID).
        Updates(map[string]interface{}{
            "payment":    true,
            "payment_id": captureID,
        }).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error updating appointment", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error completing payment", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message":    "Payment captured",
        "capture_id": captureID,
    })
}


func (h *PaymentHandler) GetUserTransactions(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var transactions []models.Transaction
    if err := h.db.Where("user_id = ?", userID).
        Order("created_at DESC").
        Find(&transactions).Error; err != nil {
        http.Error(w, "Error retrieving transactions", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "transactions": transactions,
        "total":        len(transactions),
    })
}
