package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liftlogapp/liftlog/internal/auth"
	"github.com/liftlogapp/liftlog/internal/telemetry/metrics"
	"github.com/liftlogapp/liftlog/internal/telemetry/tracing"
	"github.com/liftlogapp/liftlog/pkg"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=users_test

type usersRepo interface {
	Add(ctx context.Context, username, passwordHash string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Get(ctx context.Context, id int) (*User, error)
}

type loginService interface {
	Login(ctx context.Context, userID int, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) error
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Handler struct {
	repo         usersRepo
	loginService loginService
	metrics      *metrics.Manager
}

func NewHandler(repo usersRepo, loginService loginService, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:         repo,
		loginService: loginService,
		metrics:      metrics,
	}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.register")
	defer span.End()

	var registerReq RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(registerReq.Username)
	if username == "" || registerReq.Password == "" {
		pkg.WriteJSONErrorDetails(w, http.StatusBadRequest, "invalid request body", map[string]string{
			"username": "required",
			"password": "required",
		})
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := h.repo.Add(ctx, username, passwordHash)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, http.StatusConflict, "username already taken")
			return
		}
		log.Errorf("register user [%s]: %s", username, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("register, marshal user: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	log.Debugf("new user registered: %s", user.Username)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "username or password empty")
		return
	}

	user, err := h.repo.GetByUsername(ctx, loginReq.Username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		log.Errorf("login, get user [%s]: %s", loginReq.Username, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if errors.Is(err, ErrUserNotFound) || !pkg.CheckPasswordHash(loginReq.Password, user.PasswordHash) {
		log.Tracef("failed login attempt for user: %s", loginReq.Username)
		pkg.WriteJSONError(w, http.StatusUnauthorized, "wrong credentials")
		return
	}

	token, err := h.loginService.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("login, create session for user [%s]: %s", user.Username, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if h.metrics != nil {
		h.metrics.CounterLogins.Inc()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	loginRespJson, err := json.Marshal(LoginResponse{
		Token: token,
		User:  *user,
	})
	if err != nil {
		log.Errorf("login, marshal response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "login failed")
		return
	}
	pkg.WriteJSONResponseOK(w, string(loginRespJson))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.logout")
	defer span.End()

	token := auth.TokenFromRequest(r)
	if token == "" {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.loginService.Logout(ctx, token); err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		log.Errorf("logout: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   auth.SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	pkg.WriteTextResponseOK(w, "logged-out")
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.me")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.Get(ctx, userID)
	if err != nil {
		log.Errorf("get user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get user %d", userID))
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("marshal user: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	pkg.WriteJSONResponseOK(w, string(userJson))
}
