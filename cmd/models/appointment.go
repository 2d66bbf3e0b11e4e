package models


import (
    "gorm.io/gorm"
    "time"
)

type Appointment struct {
    gorm.Model
    UserID          uint      `gorm:"not null" json:"user_id"`
    DoctorID        uint      `gorm:"not null" json:"doctor_id"`
    SlotDate        string    `gorm:"size:20;not null" json:"slot_date"`
    SlotTime        string    `gorm:"size:20;not null" json:"slot_time"`
    Amount          float64   `gorm:"not null" json:"amount"`
    Payment         bool      `gorm:"default:false" json:"payment"`
    IsCompleted     bool      `gorm:"default:false" json:"is_completed"`
    Cancelled       bool      `gorm:"default:false" json:"cancelled"`
    VideoCallActive bool      `gorm:"default:false" json:"video_call_active"`
    MeetingID       string    `gorm:"size:255" json:"meeting_id,omitempty"`
    PaymentID       string    `gorm:"size:255" json:"payment_id,omitempty"`
    BookedAt        time.Time `gorm:"not null" json:"booked_at"`

    User            *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
    Doctor          *Doctor   `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}
