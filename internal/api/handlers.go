package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pbaille/neuroassist/internal/domain"
	"github.com/pbaille/neuroassist/internal/onboarding"
	"github.com/pbaille/neuroassist/internal/store"
)

// CreateUserRequest is the request body for creating a user
type CreateUserRequest struct {
	Name        string `json:"name" binding:"required"`
	Role        string `json:"role" binding:"required"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	CaregiverID string `json:"caregiverId,omitempty"`
}

func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(c, http.StatusBadRequest, "name is required")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}

	user, err := s.store.CreateUser(c.Request.Context(), domain.User{
		Name:        strings.TrimSpace(req.Name),
		Role:        role,
		DateOfBirth: req.DateOfBirth,
		CaregiverID: req.CaregiverID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, user)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"users": orEmpty(users)})
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, user)
}

// LoginRequest is the request body for name-based login
type LoginRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(c, http.StatusBadRequest, "name is required")
		return
	}
	user, err := s.store.FindUserByName(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, user)
}

// BaselineRequest carries the raw onboarding results for a user
type BaselineRequest struct {
	UserID string `json:"userId" binding:"required"`
	onboarding.Attempt
}

func (s *Server) createBaseline(c *gin.Context) {
	var req BaselineRequest
	if !bindJSON(c, &req) {
		return
	}
	if !s.requireUser(c, req.UserID) {
		return
	}

	draft, err := onboarding.Assess(req.UserID, req.Attempt)
	if err != nil {
		s.fail(c, err)
		return
	}
	baseline, err := s.store.InsertBaseline(c.Request.Context(), draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, baseline)
}

func (s *Server) getBaseline(c *gin.Context) {
	baseline, err := s.store.GetBaseline(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if baseline == nil {
		writeError(c, http.StatusNotFound, "baseline not found")
		return
	}
	writeJSON(c, http.StatusOK, baseline)
}

// RoutineLogRequest is the request body for logging a routine activity
type RoutineLogRequest struct {
	UserID    string    `json:"userId" binding:"required"`
	Activity  string    `json:"activity" binding:"required"`
	Value     *float64  `json:"value,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (r RoutineLogRequest) toLog() (domain.RoutineLog, error) {
	activity, err := domain.ParseActivity(r.Activity)
	if err != nil {
		return domain.RoutineLog{}, err
	}
	mood, err := domain.ParseMood(r.Mood)
	if err != nil {
		return domain.RoutineLog{}, err
	}
	if activity == domain.ActivityMood && mood == "" {
		return domain.RoutineLog{}, fmt.Errorf("%w: mood is required for a mood log", domain.ErrInvalidValue)
	}
	return domain.RoutineLog{
		UserID:    r.UserID,
		Activity:  activity,
		Value:     r.Value,
		Mood:      mood,
		Timestamp: r.Timestamp,
	}, nil
}

func (s *Server) addRoutineLog(c *gin.Context) {
	var req RoutineLogRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := req.toLog()
	if err != nil {
		s.fail(c, err)
		return
	}
	if !s.requireUser(c, draft.UserID) {
		return
	}

	ctx := c.Request.Context()
	entry, err := s.store.InsertRoutineLog(ctx, draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	alerts, err := s.monitor.OnRoutineLogInserted(ctx, *entry)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"routineLog": entry, "alerts": orEmpty(alerts)})
}

func (s *Server) listRoutineLogs(c *gin.Context) {
	since, ok := s.since(c)
	if !ok {
		return
	}
	logs, err := s.store.RoutineLogs(c.Request.Context(), c.Param("userId"), since)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"routineLogs": orEmpty(logs)})
}

// CognitiveTestRequest is the request body for a cognitive test result
type CognitiveTestRequest struct {
	UserID    string          `json:"userId" binding:"required"`
	TestType  string          `json:"testType" binding:"required"`
	Score     *int            `json:"score" binding:"required"`
	MaxScore  int             `json:"maxScore" binding:"required"`
	TimeTaken *int            `json:"timeTaken,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (r CognitiveTestRequest) toTest() (domain.CognitiveTest, error) {
	testType, err := domain.ParseTestType(r.TestType)
	if err != nil {
		return domain.CognitiveTest{}, err
	}
	if r.MaxScore <= 0 || *r.Score < 0 || *r.Score > r.MaxScore {
		return domain.CognitiveTest{}, fmt.Errorf("%w: score must be between 0 and a positive maxScore", domain.ErrInvalidValue)
	}
	return domain.CognitiveTest{
		UserID:    r.UserID,
		TestType:  testType,
		Score:     *r.Score,
		MaxScore:  r.MaxScore,
		TimeTaken: r.TimeTaken,
		Details:   r.Details,
		Timestamp: r.Timestamp,
	}, nil
}

func (s *Server) addCognitiveTest(c *gin.Context) {
	var req CognitiveTestRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := req.toTest()
	if err != nil {
		s.fail(c, err)
		return
	}
	if !s.requireUser(c, draft.UserID) {
		return
	}

	ctx := c.Request.Context()
	test, err := s.store.InsertCognitiveTest(ctx, draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	alerts, err := s.monitor.OnCognitiveTestInserted(ctx, *test)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"cognitiveTest": test, "alerts": orEmpty(alerts)})
}

func (s *Server) listCognitiveTests(c *gin.Context) {
	since, ok := s.since(c)
	if !ok {
		return
	}
	tests, err := s.store.CognitiveTests(c.Request.Context(), c.Param("userId"), since)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"cognitiveTests": orEmpty(tests)})
}

// FunctionalTaskRequest is the request body for a functional task result
type FunctionalTaskRequest struct {
	UserID          string    `json:"userId" binding:"required"`
	TaskType        string    `json:"taskType" binding:"required"`
	Completed       bool      `json:"completed"`
	Errors          int       `json:"errors"`
	SequenceCorrect bool      `json:"sequenceCorrect"`
	TimeTaken       int       `json:"timeTaken"`
	Steps           []string  `json:"steps,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func (r FunctionalTaskRequest) toTask() (domain.FunctionalTask, error) {
	taskType, err := domain.ParseTaskType(r.TaskType)
	if err != nil {
		return domain.FunctionalTask{}, err
	}
	if r.Errors < 0 || r.TimeTaken < 0 {
		return domain.FunctionalTask{}, fmt.Errorf("%w: errors and timeTaken cannot be negative", domain.ErrInvalidValue)
	}
	return domain.FunctionalTask{
		UserID:          r.UserID,
		TaskType:        taskType,
		Completed:       r.Completed,
		Errors:          r.Errors,
		SequenceCorrect: r.SequenceCorrect,
		TimeTaken:       r.TimeTaken,
		Steps:           r.Steps,
		Timestamp:       r.Timestamp,
	}, nil
}

func (s *Server) addFunctionalTask(c *gin.Context) {
	var req FunctionalTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := req.toTask()
	if err != nil {
		s.fail(c, err)
		return
	}
	if !s.requireUser(c, draft.UserID) {
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.InsertFunctionalTask(ctx, draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	alerts, err := s.monitor.OnFunctionalTaskInserted(ctx, *task)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"functionalTask": task, "alerts": orEmpty(alerts)})
}

func (s *Server) listFunctionalTasks(c *gin.Context) {
	since, ok := s.since(c)
	if !ok {
		return
	}
	tasks, err := s.store.FunctionalTasks(c.Request.Context(), c.Param("userId"), since)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"functionalTasks": orEmpty(tasks)})
}

func (s *Server) riskScore(c *gin.Context) {
	userID := c.Param("userId")
	if !s.requireUser(c, userID) {
		return
	}
	rs, err := s.monitor.RecordRiskScore(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rs)
}

func (s *Server) riskHistory(c *gin.Context) {
	since, ok := s.since(c)
	if !ok {
		return
	}
	scores, err := s.store.RiskScores(c.Request.Context(), c.Param("userId"), since)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"riskScores": orEmpty(scores)})
}

func (s *Server) dashboard(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}
	d, err := s.monitor.Dashboard(c.Request.Context(), c.Param("userId"), days)
	if err != nil {
		s.fail(c, err)
		return
	}
	d.RoutineLogs = orEmpty(d.RoutineLogs)
	d.CognitiveTests = orEmpty(d.CognitiveTests)
	d.FunctionalTasks = orEmpty(d.FunctionalTasks)
	d.Alerts = orEmpty(d.Alerts)
	d.RiskHistory = orEmpty(d.RiskHistory)
	writeJSON(c, http.StatusOK, d)
}

func (s *Server) trend(c *gin.Context) {
	userID := c.Param("userId")
	if !s.requireUser(c, userID) {
		return
	}
	report, err := s.monitor.AnalyzeTrend(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (s *Server) listAlerts(c *gin.Context) {
	unreadOnly := c.Query("unreadOnly") == "true"
	alerts, err := s.store.ListAlerts(c.Request.Context(), c.Param("userId"), unreadOnly)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"alerts": orEmpty(alerts)})
}

func (s *Server) markAlertRead(c *gin.Context) {
	alert, err := s.store.MarkAlertRead(c.Request.Context(), c.Param("alertId"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(c, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, alert)
}
