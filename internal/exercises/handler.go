package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/liftlogapp/liftlog/internal/auth"
	"github.com/liftlogapp/liftlog/internal/telemetry/metrics"
	"github.com/liftlogapp/liftlog/internal/telemetry/tracing"
	"github.com/liftlogapp/liftlog/pkg"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=exercises_test

type exercisesRepo interface {
	Add(ctx context.Context, userID int, name string) (*Exercise, error)
	ListForUser(ctx context.Context, userID int) ([]Exercise, error)
	FindByName(ctx context.Context, userID int, name string) (*Exercise, error)
}

type AddExerciseRequest struct {
	Name string `json:"name"`
}

type Handler struct {
	repo    exercisesRepo
	metrics *metrics.Manager
}

func NewHandler(repo exercisesRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	exercises, err := h.repo.ListForUser(ctx, userID)
	if err != nil {
		log.Errorf("list exercises for user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list exercises")
		return
	}

	exercisesJson, err := json.Marshal(exercises)
	if err != nil {
		log.Errorf("marshal exercises: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list exercises")
		return
	}
	pkg.WriteJSONResponseOK(w, string(exercisesJson))
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.add")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var addReq AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		log.Tracef("add exercise, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(addReq.Name)
	if name == "" {
		pkg.WriteJSONErrorDetails(w, http.StatusBadRequest, "invalid request body", map[string]string{
			"name": "required",
		})
		return
	}

	exercise, err := h.repo.Add(ctx, userID, name)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, http.StatusConflict, "exercise already exists")
			return
		}
		log.Errorf("add exercise [%s] for user %d: %s", name, userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to add exercise")
		return
	}

	if h.metrics != nil {
		h.metrics.CounterExercisesCreated.Inc()
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("marshal exercise: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to add exercise")
		return
	}

	log.Debugf("user %d added exercise: %s", userID, exercise.Name)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusCreated)
}

// HandleEnsure finds the exercise by name (case-insensitive) or creates it.
// Safe to call concurrently for the same name, both callers get the same row.
func (h *Handler) HandleEnsure(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.ensure")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var ensureReq AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&ensureReq); err != nil {
		log.Tracef("ensure exercise, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(ensureReq.Name)
	if name == "" {
		pkg.WriteJSONErrorDetails(w, http.StatusBadRequest, "invalid request body", map[string]string{
			"name": "required",
		})
		return
	}

	exercise, status, err := h.ensure(ctx, userID, name)
	if err != nil {
		log.Errorf("ensure exercise [%s] for user %d: %s", name, userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to ensure exercise")
		return
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("marshal exercise: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to ensure exercise")
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, status)
}

func (h *Handler) ensure(ctx context.Context, userID int, name string) (*Exercise, int, error) {
	exercise, err := h.repo.FindByName(ctx, userID, name)
	if err == nil {
		return exercise, http.StatusOK, nil
	}
	if !errors.Is(err, ErrExerciseNotFound) {
		return nil, 0, err
	}

	exercise, err = h.repo.Add(ctx, userID, name)
	if err == nil {
		if h.metrics != nil {
			h.metrics.CounterExercisesCreated.Inc()
		}
		return exercise, http.StatusCreated, nil
	}

	// lost the race to a concurrent create, the existing row wins
	if pkg.IsUniqueViolationError(err) {
		exercise, err = h.repo.FindByName(ctx, userID, name)
		if err != nil {
			return nil, 0, err
		}
		return exercise, http.StatusOK, nil
	}
	return nil, 0, err
}
