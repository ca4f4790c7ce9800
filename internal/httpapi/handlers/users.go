package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DphenomenalALU/class-mate/internal/auth"
	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/email"
	"github.com/DphenomenalALU/class-mate/internal/httpapi/middleware"
	"github.com/DphenomenalALU/class-mate/internal/models"
)

// generate a 11 digit random username
func randomUsername11() (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, 11)
	for i := 0; i < 11; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		out[i] = letters[n.Int64()]
	}
	return string(out), nil
}

func randomCaptcha6() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type sendCaptchaReq struct {
	Email string `json:"email"`
}

func (h *Handler) SendCaptcha(c *gin.Context) {
	var req sendCaptchaReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "email required")
		return
	}

	code, err := randomCaptcha6()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to generate captcha")
		return
	}
	if err := h.Redis.SetCaptcha(c.Request.Context(), req.Email, code); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}

	go func(to, code string) {
		subject := "Your ClassMate verification code"
		body := "Hello,\n\n" +
			"Your ClassMate verification code is: " + code + "\n\n" +
			"The code expires in 10 minutes. If you did not request it, you can ignore this email.\n\n" +
			"Best regards,\n" +
			"ClassMate\n"
		if err := email.SendText(h.SMTPSetting, to, subject, body); err != nil {
			log.Printf("captcha email failed to=%s err=%v", to, err)
		}
	}(req.Email, code)

	common.OK(c, gin.H{"sent": true})
}

type createUserReq struct {
	Email    string `json:"email"`
	Captcha  string `json:"captcha"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" || req.Captcha == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "email, captcha and password required")
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleFacilitator {
		common.Fail(c, http.StatusBadRequest, 10002, "role must be student or facilitator")
		return
	}

	// redis verification
	code, err := h.Redis.GetCaptcha(c.Request.Context(), req.Email)
	if err != nil {
		if err == redis.Nil {
			common.Fail(c, http.StatusBadRequest, 10020, "captcha expired or not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}
	if code != req.Captcha {
		common.Fail(c, http.StatusBadRequest, 10021, "invalid captcha")
		return
	}
	_ = h.Redis.DeleteCaptcha(c.Request.Context(), req.Email)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	// generate username to avoid conflict
	var username string
	for i := 0; i < 5; i++ {
		u, err := randomUsername11()
		if err != nil {
			common.Fail(c, http.StatusInternalServerError, 20004, "failed to generate username")
			return
		}

		var cnt int64
		if err := h.DB.Model(&models.User{}).Where("username = ?", u).Count(&cnt).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20005, "failed to check username")
			return
		}
		if cnt == 0 {
			username = u
			break
		}
	}
	if username == "" {
		common.Fail(c, http.StatusInternalServerError, 20006, "failed to allocate username")
		return
	}

	userID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to generate user id")
		return
	}

	user := models.User{
		UserID:       userID,
		Email:        req.Email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(user.UserID, user.Role, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	// send welcome email
	go func(to, uname string) {
		subject := "Welcome to ClassMate — Your account is ready"
		body := "Hello,\n\n" +
			"Welcome to ClassMate. Your account has been successfully created.\n\n" +
			"Username: " + uname + "\n\n" +
			"If you did not request this account, please contact our support immediately.\n\n" +
			"Best regards,\n" +
			"ClassMate\n"
		if err := email.SendText(h.SMTPSetting, to, subject, body); err != nil {
			log.Printf("welcome email failed to=%s err=%v", to, err)
		}
	}(user.Email, user.Username)

	common.OK(c, gin.H{
		"id":       user.UserID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
		"token":    token,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "email and password required")
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid email or password")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid email or password")
		return
	}

	token, err := auth.SignJWT(user.UserID, user.Role, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"id":       user.UserID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
		"token":    token,
	})
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := c.Get(middleware.UserIDKey)
	userID, _ := uid.(string)
	if !ok || userID == "" {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var user models.User
	if err := h.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":         user.UserID,
		"email":      user.Email,
		"username":   user.Username,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}
