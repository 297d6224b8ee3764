package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/scotty-git/sidelinescott-sub003/pkg/engineerr"
)

// We only test status-code mapping and request validation here — the
// happy path is covered by pkg/evaluation's end-to-end tests against a
// real database; this package adds no business logic of its own to
// verify beyond "does it wire the Manager's result onto the wire
// correctly".
func TestWriteEngineErr_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		kind engineerr.Kind
		want int
	}{
		{"persistence maps to not found", engineerr.KindPersistence, http.StatusNotFound},
		{"llm timeout maps to gateway timeout", engineerr.KindLLMTimeout, http.StatusGatewayTimeout},
		{"llm quota maps to too many requests", engineerr.KindLLMQuota, http.StatusTooManyRequests},
		{"function validation maps to bad request", engineerr.KindFunctionValidation, http.StatusBadRequest},
		{"decision parse maps to bad request", engineerr.KindDecisionParse, http.StatusBadRequest},
		{"configuration maps to bad request", engineerr.KindConfiguration, http.StatusBadRequest},
		{"llm transport maps to internal error", engineerr.KindLLMTransport, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			writeEngineErr(c, engineerr.New(tt.kind, "boom"))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWriteEngineErr_NonTaxonomyError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	writeEngineErr(c, assertError{"unexpected"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(nil)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateEvaluation_BadRequestOnMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(nil)
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/evaluations", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
