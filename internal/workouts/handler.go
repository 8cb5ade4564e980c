package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/liftlogapp/liftlog/internal/auth"
	"github.com/liftlogapp/liftlog/internal/exercises"
	"github.com/liftlogapp/liftlog/internal/telemetry/metrics"
	"github.com/liftlogapp/liftlog/internal/telemetry/tracing"
	"github.com/liftlogapp/liftlog/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Add(ctx context.Context, workoutLog WorkoutLog) (*WorkoutLog, error)
	ListForDay(ctx context.Context, userID int, date time.Time) ([]WorkoutLog, error)
	Get(ctx context.Context, id, userID int) (*WorkoutLog, error)
	Delete(ctx context.Context, id, userID int) error
}

type exercisesGetter interface {
	GetOwned(ctx context.Context, id, userID int) (*exercises.Exercise, error)
}

type AddSetRequest struct {
	Reps   int     `json:"reps" validate:"gte=0"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

type AddWorkoutLogRequest struct {
	Date       string          `json:"date" validate:"required"`
	ExerciseID int             `json:"exerciseId" validate:"required,gt=0"`
	Sets       []AddSetRequest `json:"sets" validate:"required,min=1,dive"`
}

type Handler struct {
	repo          workoutsRepo
	exercisesRepo exercisesGetter
	validate      *validator.Validate
	metrics       *metrics.Manager
}

func NewHandler(repo workoutsRepo, exercisesRepo exercisesGetter, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:          repo,
		exercisesRepo: exercisesRepo,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		metrics:       metrics,
	}
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var addReq AddWorkoutLogRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		log.Tracef("add workout log, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(addReq); err != nil {
		pkg.WriteJSONErrorDetails(w, http.StatusBadRequest, "invalid request body", validationDetails(err))
		return
	}

	date, err := parseDate(addReq.Date)
	if err != nil {
		pkg.WriteJSONErrorDetails(w, http.StatusBadRequest, "invalid request body", map[string]string{
			"date": "must be an RFC 3339 timestamp or a YYYY-MM-DD date",
		})
		return
	}

	if _, err := h.exercisesRepo.GetOwned(ctx, addReq.ExerciseID, userID); err != nil {
		if errors.Is(err, exercises.ErrExerciseNotFound) {
			pkg.WriteJSONError(w, http.StatusBadRequest, "exercise not found")
			return
		}
		log.Errorf("add workout log, get exercise %d: %s", addReq.ExerciseID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save workout")
		return
	}

	workoutLog := WorkoutLog{
		Date:       date,
		UserID:     userID,
		ExerciseID: addReq.ExerciseID,
		Sets:       make([]Set, 0, len(addReq.Sets)),
	}
	for _, s := range addReq.Sets {
		workoutLog.Sets = append(workoutLog.Sets, Set{
			Reps:   s.Reps,
			Weight: s.Weight,
		})
	}

	addedLog, err := h.repo.Add(ctx, workoutLog)
	if err != nil {
		// the exercise can disappear between the ownership check and the insert
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteJSONError(w, http.StatusBadRequest, "exercise not found")
			return
		}
		if pkg.IsCheckViolationError(err) {
			pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout log")
			return
		}
		log.Errorf("add workout log for user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save workout")
		return
	}

	if h.metrics != nil {
		h.metrics.CounterWorkoutLogsSaved.Inc()
		h.metrics.CounterWorkoutSetsSaved.Add(float64(len(addedLog.Sets)))
	}

	addedLogJson, err := json.Marshal(addedLog)
	if err != nil {
		log.Errorf("marshal workout log: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save workout")
		return
	}

	log.Debugf("user %d logged exercise %d with %d sets", userID, addedLog.ExerciseID, len(addedLog.Sets))
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedLogJson, http.StatusCreated)
}

func (h *Handler) HandleListForDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.listForDay")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		pkg.WriteJSONErrorDetails(w, http.StatusBadRequest, "invalid request", map[string]string{
			"date": "required",
		})
		return
	}
	date, err := time.Parse(time.DateOnly, dateParam)
	if err != nil {
		pkg.WriteJSONErrorDetails(w, http.StatusBadRequest, "invalid request", map[string]string{
			"date": "must be a YYYY-MM-DD date",
		})
		return
	}

	workoutLogs, err := h.repo.ListForDay(ctx, userID, date)
	if err != nil {
		log.Errorf("list workout logs for user %d, day %s: %s", userID, dateParam, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list workouts")
		return
	}

	workoutLogsJson, err := json.Marshal(workoutLogs)
	if err != nil {
		log.Errorf("marshal workout logs: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list workouts")
		return
	}
	pkg.WriteJSONResponseOK(w, string(workoutLogsJson))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout log id")
		return
	}

	workoutLog, err := h.repo.Get(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrWorkoutLogNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "workout log not found")
			return
		}
		log.Errorf("get workout log %d: %s", id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to get workout")
		return
	}

	workoutLogJson, err := json.Marshal(workoutLog)
	if err != nil {
		log.Errorf("marshal workout log: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to get workout")
		return
	}
	pkg.WriteJSONResponseOK(w, string(workoutLogJson))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout log id")
		return
	}

	if err := h.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrWorkoutLogNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "workout log not found")
			return
		}
		log.Errorf("delete workout log %d: %s", id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to delete workout")
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}

// parseDate accepts a full RFC 3339 timestamp or a plain date.
func parseDate(raw string) (time.Time, error) {
	if date, err := time.Parse(time.RFC3339, raw); err == nil {
		return date, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		details["request"] = err.Error()
		return details
	}
	for _, fieldErr := range validationErrs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}
