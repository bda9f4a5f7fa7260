package claims

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/claims-fraud/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(svc *Service) *gin.Engine {
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) common.Response {
	t.Helper()
	var resp common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_CreateInsured(t *testing.T) {
	svc, repo, obs, _ := newTestService()
	repo.On("CreateInsured", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*InsuredParty).ID = 1 }).
		Return(nil)
	obs.On("OnInsuredCreated", mock.Anything, mock.Anything).Return(nil)

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/insured", createInsuredReq())

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Message)
}

func TestHandler_CreateInsured_ValidationFails(t *testing.T) {
	svc, repo, _, _ := newTestService()

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/insured", map[string]string{
		"national_code": "123",
		"full_name":     "X",
		"phone_number":  "09121111111",
		"address":       "Tehran",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Message, "NationalCode must be exactly 10 digits")
	repo.AssertNotCalled(t, "CreateInsured", mock.Anything, mock.Anything)
}

func TestHandler_CreateInsured_Duplicate(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.On("CreateInsured", mock.Anything, mock.Anything).
		Return(fmt.Errorf("create insured party: %w", ErrDuplicateIdentifier))

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/insured", createInsuredReq())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_CreateInsured_SyncPending(t *testing.T) {
	svc, repo, obs, _ := newTestService()
	repo.On("CreateInsured", mock.Anything, mock.Anything).Return(nil)
	obs.On("OnInsuredCreated", mock.Anything, mock.Anything).Return(errGraphDown)

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/insured", createInsuredReq())

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, syncPendingMessage, resp.Message)
}

func TestHandler_DeleteInsured_Blocked(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.On("DeleteInsured", mock.Anything, int64(4)).
		Return(fmt.Errorf("delete insured party 4: %w", ErrReferentialBlock))

	w := doJSON(setupRouter(svc), http.MethodDelete, "/api/v1/insured/4", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insured party has claims and cannot be deleted", decode(t, w).Error.Message)
}

func TestHandler_GetInsured_InvalidAndMissing(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.On("GetInsured", mock.Anything, int64(8)).Return(nil, fmt.Errorf("get insured party 8: %w", ErrNotFound))
	r := setupRouter(svc)

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/api/v1/insured/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/api/v1/insured/8", nil).Code)
}

func TestHandler_ListInsured_Meta(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.On("ListInsured", mock.Anything, 10, 20).Return([]*InsuredParty{{ID: 1}}, int64(21), nil)

	w := doJSON(setupRouter(svc), http.MethodGet, "/api/v1/insured?limit=10&offset=20", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(21), resp.Meta.Total)
	assert.Equal(t, 10, resp.Meta.Limit)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.False(t, resp.Meta.HasMore)
}

func TestHandler_CreateClaim(t *testing.T) {
	svc, repo, _, obs := newTestService()
	repo.On("GetInsured", mock.Anything, int64(2)).Return(&InsuredParty{ID: 2}, nil)
	obs.On("OnClaimPreSave", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateClaim", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			c := args.Get(1).(*Claim)
			c.ID = 1
			c.ClaimNumber = FormatClaimNumber(1)
		}).Return(nil)
	obs.On("OnClaimPostSave", mock.Anything, mock.Anything, true).Return(nil)

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/claims", map[string]any{
		"insured_id":    2,
		"amount":        5000000,
		"accident_date": "2024-02-10",
		"description":   "collision",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CL-000001", body.Data["claim_number"])
	assert.Equal(t, "5.000.000", body.Data["formatted_amount"])
	assert.Equal(t, "2024-02-10", body.Data["accident_date"])
}

func TestHandler_CreateClaim_RejectsBadInput(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.On("GetInsured", mock.Anything, int64(99)).Return(nil, ErrNotFound)
	r := setupRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/v1/claims", map[string]any{
		"insured_id": 2, "amount": -5, "accident_date": "2024-02-10", "description": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/claims", map[string]any{
		"insured_id": 2, "amount": 5, "accident_date": "yesterday", "description": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/claims", map[string]any{
		"insured_id": 99, "amount": 5, "accident_date": "2024-02-10", "description": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insured party not found", decode(t, w).Error.Message)
}

func TestHandler_ListClaims_Filters(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.On("ListClaims", mock.Anything, mock.MatchedBy(func(f ClaimFilter) bool {
		return f.InsuredID != nil && *f.InsuredID == 2 &&
			f.Status != nil && *f.Status == StatusPending &&
			f.MinScore != nil && *f.MinScore == 30
	})).Return([]*Claim{{ID: 1, Amount: 1000}}, int64(1), nil)
	r := setupRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/v1/claims?insured_id=2&status=pending&min_score=30", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/api/v1/claims?min_score=high", nil).Code)
}

func TestHandler_UpdateClaim_InvalidStatus(t *testing.T) {
	svc, repo, _, _ := newTestService()

	w := doJSON(setupRouter(svc), http.MethodPut, "/api/v1/claims/1", map[string]any{"status": "closed"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "GetClaim", mock.Anything, mock.Anything)
}
