package rule

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/mock"
)

// MockIRuleTable is a testify mock of IRuleTable.
type MockIRuleTable struct {
	mock.Mock
}

// NewMockIRuleTable registers the mock's expectations to be asserted when
// the test finishes.
func NewMockIRuleTable(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockIRuleTable {
	m := &MockIRuleTable{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIRuleTable) FindByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*Rule)
	return r, args.Error(1)
}

func (m *MockIRuleTable) Insert(ctx context.Context, create *RuleCreate) (uuid.UUID, error) {
	args := m.Called(ctx, create)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *MockIRuleTable) Update(ctx context.Context, id uuid.UUID, update *RuleUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *MockIRuleTable) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIRuleTable) List(ctx context.Context) ([]*Rule, error) {
	args := m.Called(ctx)
	rules, _ := args.Get(0).([]*Rule)
	return rules, args.Error(1)
}

func (m *MockIRuleTable) ListActive(ctx context.Context) ([]*Rule, error) {
	args := m.Called(ctx)
	rules, _ := args.Get(0).([]*Rule)
	return rules, args.Error(1)
}

func (m *MockIRuleTable) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]string)
	return categories, args.Error(1)
}
