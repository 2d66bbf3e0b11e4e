package models

import (
	"time"

	"gorm.io/gorm"
)


type User struct {
    gorm.Model
    Name             string `gorm:"column:name;size:255;not null" json:"name"`
    Email            string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
    PasswordHash     string `gorm:"column:password_hash;size:255;not null" json:"-"`
    Phone            string `gorm:"column:phone;size:20;not null" json:"phone"`
    Age              int    `gorm:"column:age" json:"age"`
    Gender           string `gorm:"column:gender;size:20" json:"gender"`
    BloodGroup       string `gorm:"column:blood_group;size:10" json:"blood_group"`
    ProfileImagePath string `gorm:"column:profile_image_path;size:255" json:"profile_image_path"`

    EmergencyName     string `gorm:"column:emergency_name;size:255" json:"emergency_name"`
    EmergencyRelation string `gorm:"column:emergency_relation;size:100" json:"emergency_relation"`
    EmergencyPhone    string `gorm:"column:emergency_phone;size:20" json:"emergency_phone"`

    Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
    RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
}


type PasswordResetToken struct {
    ID        uint      `gorm:"primaryKey"`
    UserID    uint      `gorm:"not null"`
    Token     string    `gorm:"not null"`
    ExpiresAt time.Time `gorm:"not null"`
}
