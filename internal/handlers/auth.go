package handlers

import (
	"log"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bevops-backend/internal/database"
	"bevops-backend/internal/middleware"
	"bevops-backend/internal/models"
	"bevops-backend/pkg/utils"
)

const tokenTTL = 7 * 24 * time.Hour

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	OK    bool                 `json:"ok"`
	Token string               `json:"token,omitempty"`
	User  *models.UserResponse `json:"user,omitempty"`
}

func Login(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		if env.JWTSecret == "" {
			log.Println("❌ JWT secret not configured")
			utils.JSON(w, http.StatusInternalServerError, LoginResponse{OK: false})
			return
		}

		user, err := database.GetUserByEmail(r.Context(), env.DB, req.Email)
		if err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			utils.JSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.JSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		tokenString, err := middleware.IssueToken(middleware.UserClaims{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		}, env.JWTSecret, tokenTTL)
		if err != nil {
			log.Println("❌ Failed to create token")
			utils.Error(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)

		utils.JSON(w, http.StatusOK, LoginResponse{
			OK:    true,
			Token: tokenString,
			User:  &userResponse,
		})
	}
}

// RegisterFCMToken registers a Firebase Cloud Messaging token for the caller
func RegisterFCMToken(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			Token      string `json:"token"`
			DeviceType string `json:"device_type"`
		}
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Token == "" {
			utils.Error(w, http.StatusBadRequest, "token is required")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" && req.DeviceType != "web" {
			utils.Error(w, http.StatusBadRequest, "Invalid device_type (must be 'ios', 'android' or 'web')")
			return
		}

		if err := database.RegisterFCMToken(r.Context(), env.DB, userClaims.UserID, req.Token, req.DeviceType); err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to register FCM token")
			return
		}

		log.Printf("📱 FCM token registered: %s (%s)", userClaims.Email, req.DeviceType)

		utils.JSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "FCM token registered successfully",
		})
	}
}

// GetAuthStatus reports who the bearer token belongs to
func GetAuthStatus(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		utils.Success(w, map[string]interface{}{
			"authenticated": true,
			"user_id":       userClaims.UserID,
			"email":         userClaims.Email,
			"role":          userClaims.Role,
		})
	}
}
