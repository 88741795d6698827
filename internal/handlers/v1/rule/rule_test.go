package rule

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/gofrs/uuid/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/ledger-rules/internal/matcher"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

type mockRuleService struct {
	mock.Mock
}

func (m *mockRuleService) ListRules(ctx context.Context) ([]*rule.Rule, error) {
	args := m.Called(ctx)
	rules, _ := args.Get(0).([]*rule.Rule)
	return rules, args.Error(1)
}

func (m *mockRuleService) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]string)
	return categories, args.Error(1)
}

func (m *mockRuleService) CreateRule(ctx context.Context, create rule.RuleCreate) (*rule.Rule, error) {
	args := m.Called(ctx, create)
	r, _ := args.Get(0).(*rule.Rule)
	return r, args.Error(1)
}

func (m *mockRuleService) UpdateRule(ctx context.Context, id uuid.UUID, update rule.RuleUpdate) (*rule.Rule, error) {
	args := m.Called(ctx, id, update)
	r, _ := args.Get(0).(*rule.Rule)
	return r, args.Error(1)
}

func (m *mockRuleService) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRuleService) ApplyRulesBatch(ctx context.Context, scope transaction.Scope) (int64, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRuleService) ResetAndReapply(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newTestAPI(t *testing.T, svc *mockRuleService) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	NewListRulesHandler(svc).Register(api)
	NewCreateRuleHandler(svc).Register(api)
	NewUpdateRuleHandler(svc).Register(api)
	NewApplyRulesHandler(svc).Register(api)
	return api
}

func sampleRule() *rule.Rule {
	created := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	return &rule.Rule{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      "Streaming",
		Field:     rule.FieldDescription,
		Operator:  rule.OperatorContains,
		Value:     "netflix,spotify",
		Category:  "Entertainment",
		Priority:  10,
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestHTTP_ListRules(t *testing.T) {
	r := sampleRule()
	svc := new(mockRuleService)
	svc.On("ListRules", mock.Anything).Return([]*rule.Rule{r}, nil)

	resp := newTestAPI(t, svc).Get("/v1/rule")

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Rules []Rule `json:"rules"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Rules, 1)
	assert.Equal(t, r.ID.String(), body.Rules[0].ID)
	assert.Equal(t, "contains", body.Rules[0].Operator)
	assert.Equal(t, "2025-02-01T12:00:00Z", body.Rules[0].CreatedAt)
}

func TestHTTP_Categories(t *testing.T) {
	svc := new(mockRuleService)
	svc.On("Categories", mock.Anything).Return([]string{"Food", "Travel"}, nil)

	resp := newTestAPI(t, svc).Get("/v1/category")

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Food", "Travel"}, body.Categories)
}

func TestHTTP_CreateRule_DefaultsActive(t *testing.T) {
	svc := new(mockRuleService)
	svc.On("CreateRule", mock.Anything, mock.MatchedBy(func(c rule.RuleCreate) bool {
		return c.Active && c.Field == rule.FieldAmount && c.Operator == rule.OperatorGreaterThan && c.Flag == "Large"
	})).Return(sampleRule(), nil)

	resp := newTestAPI(t, svc).Post("/v1/rule", CreateRuleBody{
		Name:     "Large",
		Field:    "amount",
		Operator: "greater_than",
		Value:    "1000",
		Flag:     "Large",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)
	svc.AssertExpectations(t)
}

func TestHTTP_CreateRule_UnknownOperator(t *testing.T) {
	svc := new(mockRuleService)

	resp := newTestAPI(t, svc).Post("/v1/rule", CreateRuleBody{
		Name:     "Bad",
		Field:    "description",
		Operator: "regex",
		Value:    "x",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	svc.AssertNotCalled(t, "CreateRule")
}

func TestHTTP_CreateRule_InvalidOperand(t *testing.T) {
	svc := new(mockRuleService)
	svc.On("CreateRule", mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(matcher.ErrInvalidOperand, `"ten" is not a number`))

	resp := newTestAPI(t, svc).Post("/v1/rule", CreateRuleBody{
		Name:     "Large",
		Field:    "amount",
		Operator: "greater_than",
		Value:    "ten",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHTTP_UpdateRule(t *testing.T) {
	r := sampleRule()
	svc := new(mockRuleService)
	svc.On("UpdateRule", mock.Anything, r.ID, mock.MatchedBy(func(u rule.RuleUpdate) bool {
		return u.Priority.GetOrZero() == 50 && u.Name.IsUnset() && u.Active.IsUnset()
	})).Return(r, nil)

	resp := newTestAPI(t, svc).Put("/v1/rule/"+r.ID.String(), map[string]any{"priority": 50})

	assert.Equal(t, http.StatusOK, resp.Code)
	svc.AssertExpectations(t)
}

func TestHTTP_DeleteRule_NotFound(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	svc := new(mockRuleService)
	svc.On("DeleteRule", mock.Anything, id).Return(errors.Wrap(sql.ErrNoRows, "rule"))

	resp := newTestAPI(t, svc).Delete("/v1/rule/" + id.String())

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHTTP_DeleteRule(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	svc := new(mockRuleService)
	svc.On("DeleteRule", mock.Anything, id).Return(nil)

	resp := newTestAPI(t, svc).Delete("/v1/rule/" + id.String())

	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestHTTP_ApplyRules_Scope(t *testing.T) {
	svc := new(mockRuleService)
	svc.On("ApplyRulesBatch", mock.Anything, transaction.ForIDs(4, 5)).Return(int64(2), nil)
	svc.On("ApplyRulesBatch", mock.Anything, transaction.AllTransactions()).Return(int64(9), nil)
	api := newTestAPI(t, svc)

	resp := api.Post("/v1/rules/apply", ApplyRulesBody{TransactionIDs: []int64{4, 5}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"updatedCount":2}`, trimSchema(t, resp.Body.Bytes()))

	resp = api.Post("/v1/rules/apply", ApplyRulesBody{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"updatedCount":9}`, trimSchema(t, resp.Body.Bytes()))
	svc.AssertExpectations(t)
}

func TestHTTP_ResetAndReapply(t *testing.T) {
	svc := new(mockRuleService)
	svc.On("ResetAndReapply", mock.Anything).Return(int64(12), nil)

	resp := newTestAPI(t, svc).Post("/v1/rules/reset-and-reapply", struct{}{})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"updatedCount":12}`, trimSchema(t, resp.Body.Bytes()))
}

// trimSchema drops the $schema link huma adds to JSON bodies.
func trimSchema(t *testing.T, raw []byte) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	delete(body, "$schema")
	out, err := json.Marshal(body)
	require.NoError(t, err)
	return string(out)
}
