// Package httpapi exposes the engine's four inbound operations (spec §6)
// over HTTP. Grounded on the teacher's pkg/api (pkg/api/handlers.go):
// a thin Server struct wrapping gin.Context handlers, c.ShouldBindJSON
// for request decoding, gin.H for ad-hoc JSON responses, and no business
// logic in the handler itself — everything delegates straight to the
// Evaluation Manager.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scotty-git/sidelinescott-sub003/pkg/engineerr"
	"github.com/scotty-git/sidelinescott-sub003/pkg/evaluation"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// Server holds the single collaborator every handler needs.
type Server struct {
	manager *evaluation.Manager
}

// NewServer builds a Server around an already-wired Evaluation Manager.
func NewServer(manager *evaluation.Manager) *Server {
	return &Server{manager: manager}
}

// Router builds the gin.Engine with every route registered, mirroring
// the teacher's "build one router in main, mount it" shape.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/health", s.Health)

	api := router.Group("/api")
	api.POST("/evaluations", s.CreateEvaluation)
	api.POST("/evaluations/:evaluationId/turns/:turnId/process", s.ProcessTurn)
	api.GET("/evaluations/:evaluationId", s.GetEvaluationDetails)
	api.GET("/evaluations/:evaluationId/turns/:turnId/gemini", s.GetGeminiDetails)

	return router
}

// Health reports liveness only; readiness (DB connectivity) is checked
// separately by the caller before Router is ever mounted, matching the
// teacher's health endpoint split between process liveness and service
// readiness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateEvaluationRequest is the create_evaluation request body (spec
// §6).
type CreateEvaluationRequest struct {
	ConversationID           string          `json:"conversation_id" binding:"required"`
	PromptTemplateID         string          `json:"prompt_template_id" binding:"required"`
	FunctionPromptTemplateID string          `json:"function_prompt_template_id" binding:"required"`
	Settings                 models.Settings `json:"settings"`
	UserID                   string          `json:"user_id"`
	SeedCustomer             map[string]any  `json:"seed_customer"`
}

// CreateEvaluation handles POST /api/evaluations.
func (s *Server) CreateEvaluation(c *gin.Context) {
	var req CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eval, err := s.manager.CreateEvaluation(
		c.Request.Context(),
		req.ConversationID,
		req.PromptTemplateID,
		req.FunctionPromptTemplateID,
		req.Settings,
		req.UserID,
		req.SeedCustomer,
	)
	if err != nil {
		writeEngineErr(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

// ProcessTurnRequest is the process_turn request body (spec §6):
// override_settings is optional and merges override-wins over the
// evaluation's pinned settings (spec §4.8 step 2).
type ProcessTurnRequest struct {
	OverrideSettings models.Settings `json:"override_settings"`
}

// ProcessTurn handles POST
// /api/evaluations/:evaluationId/turns/:turnId/process.
func (s *Server) ProcessTurn(c *gin.Context) {
	evaluationID := c.Param("evaluationId")
	turnID := c.Param("turnId")

	var req ProcessTurnRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := s.manager.ProcessTurn(c.Request.Context(), evaluationID, turnID, req.OverrideSettings)
	if err != nil {
		writeEngineErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetEvaluationDetails handles GET /api/evaluations/:evaluationId.
func (s *Server) GetEvaluationDetails(c *gin.Context) {
	evaluationID := c.Param("evaluationId")

	details, err := s.manager.GetEvaluationDetails(c.Request.Context(), evaluationID)
	if err != nil {
		writeEngineErr(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetGeminiDetails handles GET
// /api/evaluations/:evaluationId/turns/:turnId/gemini.
func (s *Server) GetGeminiDetails(c *gin.Context) {
	evaluationID := c.Param("evaluationId")
	turnID := c.Param("turnId")

	details, err := s.manager.GetGeminiDetails(c.Request.Context(), evaluationID, turnID)
	if err != nil {
		writeEngineErr(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// writeEngineErr maps a taxonomy error to an HTTP status, following the
// closed Kind set (spec §7) rather than trying to infer status from the
// error's text.
func writeEngineErr(c *gin.Context, err error) {
	var ee *engineerr.Error
	if !errors.As(err, &ee) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch ee.Kind {
	case engineerr.KindPersistence:
		status = http.StatusNotFound
	case engineerr.KindLLMTimeout:
		status = http.StatusGatewayTimeout
	case engineerr.KindLLMQuota:
		status = http.StatusTooManyRequests
	case engineerr.KindFunctionValidation, engineerr.KindDecisionParse, engineerr.KindConfiguration:
		status = http.StatusBadRequest
	}

	body := gin.H{"error": ee.Message, "kind": ee.Kind}
	if ee.Timing != nil {
		body["timing_breakdown"] = ee.Timing
	}
	c.JSON(status, body)
}
