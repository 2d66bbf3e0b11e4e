package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gopkg.in/gomail.v2"

	"github.com/GetStream/stream-chat-go/v5"
	"github.com/gorilla/mux"
	"github.com/medilink/telecare-server/cmd/models"
	"github.com/medilink/telecare-server/cmd/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}


// RegisterRoutes sets up all patient-account routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/signup", h.HandleSignup).Methods("POST")
	router.HandleFunc("/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/refresh", h.handleRefreshToken).Methods("POST")
	router.HandleFunc("/reset-password", h.handlePasswordResetRequest).Methods("POST")
	router.HandleFunc("/reset-password/confirm", h.handlePasswordReset).Methods("POST")
	router.HandleFunc("/images/{filename}", h.ServeImage).Methods("GET")

	protected := router.PathPrefix("/profile").Subrouter()
	protected.Use(utils.AuthMiddleware)
	protected.HandleFunc("", h.GetProfile).Methods("GET")
	protected.HandleFunc("", h.UpdateProfile).Methods("PUT")
}


func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
    var signupRequest struct {
        Name              string `json:"name"`
        Email             string `json:"email"`
        Password          string `json:"password"`
        Phone             string `json:"phone"`
        Age               int    `json:"age"`
        Gender            string `json:"gender"`
        BloodGroup        string `json:"blood_group"`
        EmergencyName     string `json:"emergency_name"`
        EmergencyRelation string `json:"emergency_relation"`
        EmergencyPhone    string `json:"emergency_phone"`
    }
    if err := json.NewDecoder(r.Body).Decode(&signupRequest); err != nil {
        http.Error(w, "Invalid JSON input", http.StatusBadRequest)
        return
    }

    if signupRequest.Name == "" || signupRequest.Email == "" || signupRequest.Password == "" || signupRequest.Phone == "" {
        http.Error(w, "Missing required fields", http.StatusBadRequest)
        return
    }

    var existingUser models.User
    if result := h.db.Where("email = ?", signupRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
        if result.Error != nil {
            http.Error(w, "Database error", http.StatusInternalServerError)
            return
        }
        log.Printf("Signup attempt with duplicate email %s", signupRequest.Email)
        http.Error(w, "Email is already in use", http.StatusConflict)
        return
    }

    passwordHash, err := bcrypt.GenerateFromPassword([]byte(signupRequest.Password), bcrypt.DefaultCost)
    if err != nil {
        http.Error(w, "Error hashing password", http.StatusInternalServerError)
        return
    }

    user := models.User{
        Name:              signupRequest.Name,
        Email:             signupRequest.Email,
        PasswordHash:      string(passwordHash),
        Phone:             signupRequest.Phone,
        Age:               signupRequest.Age,
        Gender:            signupRequest.Gender,
        BloodGroup:        signupRequest.BloodGroup,
        EmergencyName:     signupRequest.EmergencyName,
        EmergencyRelation: signupRequest.EmergencyRelation,
        EmergencyPhone:    signupRequest.EmergencyPhone,
    }

    if err := h.db.Create(&user).Error; err != nil {
        if strings.Contains(err.Error(), "duplicate key") {
            http.Error(w, "Email is already in use", http.StatusConflict)
            return
        }
        http.Error(w, "Error registering user", http.StatusInternalServerError)
        return
    }

    accessToken, err := generateJWT(user.ID, 7500)
    if err != nil {
        http.Error(w, "Error generating access token", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message":      "User registered successfully",
        "access_token": accessToken,
        "user_id":      user.ID,
    })
}


func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
    var loginRequest struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }

    if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var user models.User
    result := h.db.Where("email = ?", loginRequest.Email).First(&user)
    if result.Error != nil {
        http.Error(w, "Invalid credentials", http.StatusUnauthorized)
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
        http.Error(w, "Invalid credentials", http.StatusUnauthorized)
        return
    }

    accessToken, err := generateJWT(user.ID, 7500)
    if err != nil {
        http.Error(w, "Error generating access token", http.StatusInternalServerError)
        return
    }

    refreshToken, err := generateRefreshToken(user.ID)
    if err != nil {
        http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
        return
    }

    if err := saveRefreshToken(h.db, user.ID, refreshToken); err != nil {
        http.Error(w, "Error saving refresh token", http.StatusInternalServerError)
        return
    }

    // Stream Chat powers the patient-doctor consultation chat; issue
    // the chat token alongside our own.
    API_KEY := os.Getenv("STREAM_API_KEY")
    API_SECRET := os.Getenv("STREAM_API_SECRET")
    streamClient, err := stream_chat.NewClient(API_KEY, API_SECRET)
    if err != nil {
        http.Error(w, "Error initializing Stream client", http.StatusInternalServerError)
        return
    }

    userIDStr := fmt.Sprintf("%d", user.ID)
    streamToken, err := streamClient.CreateToken(userIDStr, time.Now().Add(time.Hour*24*365))
    if err != nil {
        http.Error(w, "Error generating Stream token", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message":       "Login successful",
        "access_token":  accessToken,
        "refresh_token": refreshToken,
        "stream_token":  streamToken,
        "user_id":       user.ID,
    })
}


func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
    var refreshRequest struct {
        RefreshToken string `json:"refresh_token"`
    }

    if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if refreshRequest.RefreshToken == "" {
        http.Error(w, "Refresh token is required", http.StatusBadRequest)
        return
    }

    var user models.User
    result := h.db.Where("refresh_token = ?", refreshRequest.RefreshToken).First(&user)
    if result.Error != nil {
        http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
        return
    }

    if time.Now().After(user.RefreshTokenExpiredAt) {
        http.Error(w, "Refresh token expired", http.StatusUnauthorized)
        return
    }

    newAccessToken, err := generateJWT(user.ID, 7500)
    if err != nil {
        http.Error(w, "Error generating access token", http.StatusInternalServerError)
        return
    }

    newRefreshToken, err := generateRefreshToken(user.ID)
    if err != nil {
        http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
        return
    }

    if err := saveRefreshToken(h.db, user.ID, newRefreshToken); err != nil {
        http.Error(w, "Error saving refresh token", http.StatusInternalServerError)
        return
    }

    log.Printf("Successful token refresh for user ID: %d", user.ID)

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "access_token":  newAccessToken,
        "refresh_token": newRefreshToken,
    })
}


func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var user models.User
    if err := h.db.First(&user, userID).Error; err != nil {
        http.Error(w, "User not found", http.StatusNotFound)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(user)
}


func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var user models.User
    if err := h.db.First(&user, userID).Error; err != nil {
        http.Error(w, "User not found", http.StatusNotFound)
        return
    }

    // Profile updates arrive as multipart form data so the profile
    // image can ride along.
    if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
        http.Error(w, "Invalid form data", http.StatusBadRequest)
        return
    }

    if name := r.FormValue("name"); name != "" {
        user.Name = name
    }
    if phone := r.FormValue("phone"); phone != "" {
        user.Phone = phone
    }
    if ageStr := r.FormValue("age"); ageStr != "" {
        age, convErr := strconv.Atoi(ageStr)
        if convErr != nil {
            http.Error(w, "Invalid age", http.StatusBadRequest)
            return
        }
        user.Age = age
    }
    if gender := r.FormValue("gender"); gender != "" {
        user.Gender = gender
    }
    if bloodGroup := r.FormValue("blood_group"); bloodGroup != "" {
        user.BloodGroup = bloodGroup
    }
    if v := r.FormValue("emergency_name"); v != "" {
        user.EmergencyName = v
    }
    if v := r.FormValue("emergency_relation"); v != "" {
        user.EmergencyRelation = v
    }
    if v := r.FormValue("emergency_phone"); v != "" {
        user.EmergencyPhone = v
    }

    if file, header, fileErr := r.FormFile("profile_image"); fileErr == nil {
        defer file.Close()

        imagePath, saveErr := utils.SaveImage(file, header)
        if saveErr != nil {
            http.Error(w, saveErr.Error(), http.StatusBadRequest)
            return
        }

        if user.ProfileImagePath != "" {
            if delErr := utils.DeleteImage(user.ProfileImagePath); delErr != nil {
                log.Printf("Failed to delete old profile image for user %d: %v", user.ID, delErr)
            }
        }
        user.ProfileImagePath = imagePath
    }

    if err := h.db.Save(&user).Error; err != nil {
        http.Error(w, "Error updating profile", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message": "Profile updated successfully",
        "user":    user,
    })
}


func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    filename := vars["filename"]

    if containsDotDot(filename) {
        http.Error(w, "Invalid path", http.StatusBadRequest)
        return
    }

    imagePath := filepath.Join(utils.ImagePath, filepath.Clean(filename))

    if _, err := os.Stat(imagePath); os.IsNotExist(err) {
        http.Error(w, "Image not found", http.StatusNotFound)
        return
    }

    w.Header().Set("Cache-Control", "public, max-age=3600")
    w.Header().Set("Content-Type", getContentType(imagePath))
    http.ServeFile(w, r, imagePath)
}

func containsDotDot(v string) bool {
    if !filepath.IsAbs(v) {
        v = filepath.Clean(filepath.Join("/", v))
    }
    return filepath.Clean(v) != v
}

func getContentType(filename string) string {
    ext := filepath.Ext(filename)
    switch ext {
    case ".jpg", ".jpeg":
        return "image/jpeg"
    case ".png":
        return "image/png"
    case ".gif":
        return "image/gif"
    case ".webp":
        return "image/webp"
    default:
        return "application/octet-stream"
    }
}


func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
    var resetRequest struct {
        Email string `json:"email"`
    }

    if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if resetRequest.Email == "" {
        http.Error(w, "Email is required", http.StatusBadRequest)
        return
    }

    var user models.User
    result := h.db.Where("email = ?", resetRequest.Email).First(&user)
    if result.Error != nil {
        // Keep response vague for security
        w.Header().Set("Content-Type", "application/json")
        json.NewEncoder(w).Encode(map[string]string{
            "message": "If an account exists, a reset code will be sent to your email",
        })
        return
    }

    resetToken, err := generateResetCode()
    if err != nil {
        http.Error(w, "Error processing reset request", http.StatusInternalServerError)
        return
    }

    tx := h.db.Begin()

    if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error processing reset request", http.StatusInternalServerError)
        return
    }

    passwordResetToken := models.PasswordResetToken{
        UserID:    user.ID,
        Token:     resetToken,
        ExpiresAt: time.Now().Add(5 * time.Minute),
    }

    if err := tx.Create(&passwordResetToken).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error processing reset request", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Internal server error", http.StatusInternalServerError)
        return
    }

    if err := sendResetEmail(user.Email, resetToken); err != nil {
        log.Printf("Failed to send reset email to %s: %v", user.Email, err)
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "If an account exists, a reset code will be sent to your email",
    })
}


func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
    var resetRequest struct {
        Email    string `json:"email"`
        Token    string `json:"token"`
        Password string `json:"password"`
    }

    if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if resetRequest.Email == "" || resetRequest.Token == "" || resetRequest.Password == "" {
        http.Error(w, "Email, token and password are required", http.StatusBadRequest)
        return
    }

    var user models.User
    if err := h.db.Where("email = ?", resetRequest.Email).First(&user).Error; err != nil {
        http.Error(w, "Invalid email or token", http.StatusBadRequest)
        return
    }

    var resetToken models.PasswordResetToken
    if err := h.db.Where("user_id = ? AND token = ?", user.ID, resetRequest.Token).First(&resetToken).Error; err != nil {
        http.Error(w, "Invalid email or token", http.StatusBadRequest)
        return
    }

    if time.Now().After(resetToken.ExpiresAt) {
        http.Error(w, "Token expired", http.StatusBadRequest)
        return
    }

    passwordHash, err := bcrypt.GenerateFromPassword([]byte(resetRequest.Password), bcrypt.DefaultCost)
    if err != nil {
        http.Error(w, "Error hashing password", http.StatusInternalServerError)
        return
    }

    tx := h.db.Begin()

    if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
        Update("password_hash", string(passwordHash)).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error resetting password", http.StatusInternalServerError)
        return
    }

    if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error resetting password", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Internal server error", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "Password reset successfully",
    })
}


// sendResetEmail delivers the 6-digit reset code
func sendResetEmail(email, code string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Password Reset Code")
	m.SetBody("text/plain", fmt.Sprintf("Your password reset code is: %s. Ignore this email if you did not request a password reset.", code))

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}


var jwtSecretKey = []byte(os.Getenv("SECRET_KEY"))

func generateJWT(userID uint, expirationMinutes int) (string, error) {
    claims := &jwt.RegisteredClaims{
        Subject:   fmt.Sprint(userID),
        ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute * time.Duration(expirationMinutes))),
    }
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return token.SignedString(jwtSecretKey)
}


func generateRefreshToken(userID uint) (string, error) {
    b := make([]byte, 32)
    _, err := rand.Read(b)
    if err != nil {
        return "", err
    }

    mac := hmac.New(sha256.New, []byte(os.Getenv("SECRET_KEY")))
    mac.Write([]byte(fmt.Sprintf("%d", userID)))
    mac.Write(b)

    signature := mac.Sum(nil)
    return fmt.Sprintf("%d_%x_%x", userID, b, signature), nil
}

func generateResetCode() (string, error) {
    n, err := rand.Int(rand.Reader, big.NewInt(1000000))
    if err != nil {
        return "", err
    }
    return fmt.Sprintf("%06d", n.Int64()), nil
}

func saveRefreshToken(db *gorm.DB, userID uint, refreshToken string) error {
    expirationTime := time.Now().Add(30 * 24 * time.Hour)
    return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
        "refresh_token":            refreshToken,
        "refresh_token_expired_at": expirationTime,
    }).Error
}
