package models

import (
	"gorm.io/gorm"
)

type Transaction struct {
    gorm.Model
    UserID        uint      `gorm:"column:user_id;not null" json:"user_id"`
    AppointmentID uint      `gorm:"column:appointment_id;not null" json:"appointment_id"`
    Amount        float64   `gorm:"column:amount;type:float;not null" json:"amount"`
    Currency      string    `gorm:"column:currency;size:10;not null;default:USD" json:"currency"`
    Method        string    `gorm:"column:method;type:text;not null" json:"method"`
    OrderID       string    `gorm:"column:order_id;size:255" json:"order_id"`
    CaptureID     string    `gorm:"column:capture_id;size:255" json:"capture_id,omitempty"`
    Status        string    `gorm:"column:status;size:50;not null" json:"status"`

    User          User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
