package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fitdash/internal/auth"
	"github.com/2beens/fitdash/internal/telemetry/metrics"
	"github.com/2beens/fitdash/internal/telemetry/tracing"
	"github.com/2beens/fitdash/internal/workouts/repo"
	"github.com/2beens/fitdash/internal/workouts/stats"
	"github.com/2beens/fitdash/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Add(ctx context.Context, workout repo.Workout) (*repo.Workout, error)
	Get(ctx context.Context, userID, id int) (*repo.Workout, error)
	ListAll(ctx context.Context, params repo.ListParams) ([]repo.Workout, error)
	Delete(ctx context.Context, userID, id int) error
}

type AddWorkoutRequest struct {
	WorkoutType     string   `json:"workoutType"`
	DurationMinutes int      `json:"durationMinutes"`
	Calories        int      `json:"calories"`
	WorkoutDate     string   `json:"workoutDate"`
	Intensity       string   `json:"intensity"`
	Locations       []string `json:"locations"`
	Rating          *int     `json:"rating,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

type WorkoutsListResponse struct {
	Workouts []repo.Workout `json:"workouts"`
	Total    int            `json:"total"`
}

type DeleteWorkoutResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo           workoutsRepo
	cache          *DashboardCache
	goals          stats.Goals
	metricsManager *metrics.Manager
	// clock used only when the dashboard request has no explicit date
	now func() time.Time
}

func NewHandler(
	repo workoutsRepo,
	cache *DashboardCache,
	goals stats.Goals,
	metricsManager *metrics.Manager,
	now func() time.Time,
) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		repo:           repo,
		cache:          cache,
		goals:          goals,
		metricsManager: metricsManager,
		now:            now,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/workouts", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	router.HandleFunc("/workouts", handler.HandleList).Methods("GET").Name("list-workouts")
	router.HandleFunc("/workouts/{id}", handler.HandleGet).Methods("GET").Name("get-workout")
	router.HandleFunc("/workouts/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
	router.HandleFunc("/dashboard", handler.HandleDashboard).Methods("GET").Name("dashboard")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), pkg.ContentType.JSON) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	workout := repo.Workout{
		UserID:          userID,
		WorkoutType:     strings.TrimSpace(req.WorkoutType),
		DurationMinutes: req.DurationMinutes,
		Calories:        req.Calories,
		Intensity:       repo.Intensity(strings.ToLower(strings.TrimSpace(req.Intensity))),
		Locations:       req.Locations,
		Rating:          req.Rating,
		Notes:           req.Notes,
	}
	if workout.Locations == nil {
		workout.Locations = []string{}
	}
	if req.WorkoutDate != "" {
		date, err := repo.ParseDate(req.WorkoutDate)
		if err != nil {
			http.Error(w, "invalid workout date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		workout.Date = date
	}

	if err := workout.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	added, err := handler.repo.Add(ctx, workout)
	if err != nil {
		log.Errorf("failed to add new workout for user %d: %s", userID, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.cache.Invalidate(userID)
	handler.metricsManager.CounterWorkoutsAdded.Inc()
	log.Debugf("new workout added for user %d: %d", userID, added.ID)

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	listParams := repo.ListParams{UserID: userID}
	var err error
	if listParams.From, err = optionalDateParam(r, "from"); err != nil {
		http.Error(w, "invalid from date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if listParams.To, err = optionalDateParam(r, "to"); err != nil {
		http.Error(w, "invalid to date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if listParams.From != nil && listParams.To != nil && listParams.To.Before(*listParams.From) {
		http.Error(w, "to date before from date", http.StatusBadRequest)
		return
	}

	workouts, err := handler.repo.ListAll(ctx, listParams)
	if err != nil {
		log.Errorf("list workouts for user %d: %s", userID, err)
		http.Error(w, "failed to get workouts", http.StatusInternalServerError)
		return
	}
	if workouts == nil {
		workouts = []repo.Workout{}
	}

	respJson, err := json.Marshal(WorkoutsListResponse{
		Workouts: workouts,
		Total:    len(workouts),
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := workoutID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	workout, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repo.ErrWorkoutNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %d of user %d: %s", id, userID, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("marshal workout error: %s", err)
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := workoutID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repo.ErrWorkoutNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete workout %d of user %d: %s", id, userID, err)
		http.Error(w, "workout not deleted", http.StatusInternalServerError)
		return
	}

	handler.cache.Invalidate(userID)
	handler.metricsManager.CounterWorkoutsDeleted.Inc()

	deleteRespJson, err := json.Marshal(DeleteWorkoutResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}

func (handler *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.dashboard")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	referenceDate := repo.Day(handler.now())
	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		date, err := repo.ParseDate(dateParam)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		referenceDate = date
	}
	span.SetAttributes(attribute.String("dashboard.date", referenceDate.Format(repo.DateLayout)))

	dashboard, err := handler.dashboard(ctx, userID, referenceDate)
	if err != nil {
		log.Errorf("dashboard for user %d: %s", userID, err)
		http.Error(w, "failed to get dashboard", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(dashboard)
	if err != nil {
		log.Errorf("marshal dashboard error: %s", err)
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) dashboard(ctx context.Context, userID int, referenceDate time.Time) (*stats.DerivedStatistics, error) {
	generation := handler.cache.Generation(userID)
	if cached, found := handler.cache.Get(userID, generation, referenceDate); found {
		return cached, nil
	}

	workouts, err := handler.repo.ListAll(ctx, repo.ListParams{UserID: userID})
	if err != nil {
		return nil, err
	}

	dashboard := stats.Compute(workouts, referenceDate, handler.goals)
	handler.cache.Set(userID, generation, referenceDate, dashboard)

	return &dashboard, nil
}

func workoutID(r *http.Request) (int, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}

// optionalDateParam returns nil when the query param is absent.
func optionalDateParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	date, err := repo.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}
