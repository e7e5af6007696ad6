package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"jobconnect/middleware"
	"jobconnect/rdx"
	"jobconnect/store"
	"jobconnect/utils"
)

const (
	otpLength = 6
	otpTTL    = 10 * time.Minute
	// wrong guesses allowed before the code is discarded
	otpMaxAttempts = 5
)

func otpKey(phone string) string {
	return "otp:" + phone
}

func attemptsKey(phone string) string {
	return "otp:" + phone + ":attempts"
}

// CodeSender delivers a one-time code to a phone number.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log. It is the only sender wired today.
type LogSender struct{}

func (LogSender) SendCode(_ context.Context, phone, code string) error {
	log.Info().Str("phone", phone).Str("otp", code).Msg("otp issued")
	return nil
}

type Handler struct {
	Store  store.UserStore
	Auth   *middleware.Auth
	KV     rdx.KV
	Sender CodeSender
	// Generate returns a new code; GenerateOTP when nil.
	Generate func() (string, error)
}

func GenerateOTP() (string, error) {
	var b strings.Builder
	for i := 0; i < otpLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// RequestOTP handles POST /api/auth/otp/request.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in struct {
		Phone string `json:"phone"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		utils.RespondWithMissing(w, []string{"phone"})
		return
	}

	gen := h.Generate
	if gen == nil {
		gen = GenerateOTP
	}
	code, err := gen()
	if err != nil {
		utils.RespondServerError(w, "Failed to generate code", err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondServerError(w, "Failed to generate code", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	if err := h.KV.Set(ctx, otpKey(phone), string(hash), otpTTL); err != nil {
		utils.RespondServerError(w, "Failed to store code", err)
		return
	}
	if err := h.KV.Del(ctx, attemptsKey(phone)); err != nil {
		utils.RespondServerError(w, "Failed to store code", err)
		return
	}
	if err := h.Sender.SendCode(ctx, phone, code); err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("send otp")
		utils.RespondServerError(w, "Failed to send code", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":   "OTP sent",
		"expiresIn": int(otpTTL.Seconds()),
	})
}

// VerifyOTP handles POST /api/auth/otp/verify. A verified phone that belongs
// to an account also logs that account in.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in struct {
		Phone string `json:"phone"`
		OTP   string `json:"otp"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	phone := strings.TrimSpace(in.Phone)
	var missing []string
	if phone == "" {
		missing = append(missing, "phone")
	}
	if in.OTP == "" {
		missing = append(missing, "otp")
	}
	if len(missing) > 0 {
		utils.RespondWithMissing(w, missing)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	hash, err := h.KV.Get(ctx, otpKey(phone))
	if err != nil && !errors.Is(err, rdx.ErrMiss) {
		utils.RespondServerError(w, "Failed to verify code", err)
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired OTP")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(in.OTP)) != nil {
		h.countFailure(ctx, phone)
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired OTP")
		return
	}
	if err := h.KV.Del(ctx, otpKey(phone), attemptsKey(phone)); err != nil {
		log.Warn().Err(err).Str("phone", phone).Msg("delete otp")
	}

	user, err := h.Store.GetUserByPhone(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"verified": true})
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to load user", err)
		return
	}

	token, err := h.Auth.IssueToken(user.ID, user.Role, user.Phone)
	if err != nil {
		utils.RespondServerError(w, "Failed to generate token", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"verified": true,
		"token":    token,
		"user":     user,
	})
}

// countFailure discards the code once otpMaxAttempts wrong guesses are seen.
// A counter error also discards it.
func (h *Handler) countFailure(ctx context.Context, phone string) {
	n, err := h.KV.Incr(ctx, attemptsKey(phone), otpTTL)
	if err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("count otp attempt")
	}
	if err != nil || n >= otpMaxAttempts {
		if err := h.KV.Del(ctx, otpKey(phone), attemptsKey(phone)); err != nil {
			log.Error().Err(err).Str("phone", phone).Msg("discard otp")
		}
	}
}

// Logout handles POST /api/auth/logout by expiring the token cookie.
func Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Logged out successfully"})
}
