package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)


type Doctor struct {
    gorm.Model
    Name         string  `gorm:"column:name;size:255;not null" json:"name"`
    Email        string  `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
    PasswordHash string  `gorm:"column:password_hash;size:255;not null" json:"-"`
    Speciality   string  `gorm:"column:speciality;size:255" json:"speciality"`
    Degree       string  `gorm:"column:degree;size:255" json:"degree"`
    Experience   int     `gorm:"column:experience" json:"experience"`
    About        string  `gorm:"column:about;type:text" json:"about"`
    Fees         float64 `gorm:"column:fees;not null" json:"fees"`
    AddressLine1 string  `gorm:"column:address_line1;size:255" json:"address_line1"`
    AddressLine2 string  `gorm:"column:address_line2;size:255" json:"address_line2"`
    ImagePath    string  `gorm:"column:image_path;size:255" json:"image_path"`
    Available    bool    `gorm:"column:available;default:true" json:"available"`

    BookedSlots  []BookedSlot `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE;" json:"booked_slots,omitempty"`
}

func (Doctor) TableName() string {
    return "doctors"
}


// BookedSlot holds the taken times for one doctor on one calendar
// date. SlotKey uses the unpadded day_month_year form the scheduling
// engine produces.
type BookedSlot struct {
    gorm.Model
    DoctorID uint           `gorm:"column:doctor_id;not null;uniqueIndex:idx_doctor_slot" json:"doctor_id"`
    SlotKey  string         `gorm:"column:slot_key;size:20;not null;uniqueIndex:idx_doctor_slot" json:"slot_key"`
    Times    pq.StringArray `gorm:"type:text[];column:times" json:"times"`

    Doctor   *Doctor        `gorm:"foreignKey:DoctorID" json:"-"`
}

func (BookedSlot) TableName() string {
    return "booked_slots"
}
