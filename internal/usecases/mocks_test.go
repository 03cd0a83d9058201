package usecases_test

import (
	"context"
	"math/big"
	"time"

	"github.com/stretchr/testify/mock"

	"deal-chain.backend/internal/domain/entities"
	"deal-chain.backend/internal/infrastructure/blockchain"
	"deal-chain.backend/internal/infrastructure/bridge"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock DealRepository
type MockDealRepository struct {
	mock.Mock
}

func (m *MockDealRepository) Create(ctx context.Context, deal *entities.Deal) error {
	return m.Called(ctx, deal).Error(0)
}

func (m *MockDealRepository) GetByID(ctx context.Context, id string) (*entities.Deal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Deal), args.Error(1)
}

func (m *MockDealRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entities.Deal, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Deal), args.Get(1).(int64), args.Error(2)
}

func (m *MockDealRepository) Update(ctx context.Context, deal *entities.Deal) error {
	return m.Called(ctx, deal).Error(0)
}

func (m *MockDealRepository) UpdateCondition(ctx context.Context, condition *entities.Condition) error {
	return m.Called(ctx, condition).Error(0)
}

func (m *MockDealRepository) AppendTimeline(ctx context.Context, event *entities.TimelineEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockDealRepository) DealsPastFinalApproval(ctx context.Context, now time.Time) ([]*entities.Deal, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deal), args.Error(1)
}

func (m *MockDealRepository) DealsPastDisputeDeadline(ctx context.Context, now time.Time) ([]*entities.Deal, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deal), args.Error(1)
}

func (m *MockDealRepository) CrossChainDealsPastFinalApproval(ctx context.Context, now time.Time) ([]*entities.Deal, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deal), args.Error(1)
}

func (m *MockDealRepository) CrossChainDealsStuck(ctx context.Context, notUpdatedSince time.Time) ([]*entities.Deal, error) {
	args := m.Called(ctx, notUpdatedSince)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deal), args.Error(1)
}

// Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

// Mock CrossChainTxRepository
type MockCrossChainTxRepository struct {
	mock.Mock
}

func (m *MockCrossChainTxRepository) Create(ctx context.Context, tx *entities.CrossChainTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockCrossChainTxRepository) GetByID(ctx context.Context, id string) (*entities.CrossChainTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrossChainTransaction), args.Error(1)
}

func (m *MockCrossChainTxRepository) GetByDealID(ctx context.Context, dealID string) (*entities.CrossChainTransaction, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CrossChainTransaction), args.Error(1)
}

func (m *MockCrossChainTxRepository) Update(ctx context.Context, tx *entities.CrossChainTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockCrossChainTxRepository) UpdateStep(ctx context.Context, step *entities.CrossChainStep) error {
	return m.Called(ctx, step).Error(0)
}

func (m *MockCrossChainTxRepository) PendingStatusCheck(ctx context.Context, olderThan time.Time) ([]*entities.CrossChainTransaction, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CrossChainTransaction), args.Error(1)
}

// Mock bridge Router
type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) PlanRoute(ctx context.Context, query bridge.RouteQuery) (*bridge.Route, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.Route), args.Error(1)
}

func (m *MockRouter) Execute(ctx context.Context, route *bridge.Route, callbacks bridge.Callbacks) (*bridge.Execution, error) {
	args := m.Called(ctx, route)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.Execution), args.Error(1)
}

func (m *MockRouter) Status(ctx context.Context, executionID string) (*bridge.StatusResult, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.StatusResult), args.Error(1)
}

// Mock ContractDeployer
type MockContractDeployer struct {
	mock.Mock
}

func (m *MockContractDeployer) Deploy(ctx context.Context, params blockchain.DeployParams) (*blockchain.DeployResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blockchain.DeployResult), args.Error(1)
}

// Mock ChainInvoker
type MockChainInvoker struct {
	mock.Mock
}

func (m *MockChainInvoker) SendContractCall(ctx context.Context, contractAddress, method string, callArgs ...interface{}) (string, error) {
	args := m.Called(ctx, contractAddress, method)
	return args.String(0), args.Error(1)
}

func (m *MockChainInvoker) ReadContractState(ctx context.Context, contractAddress, method string, callArgs ...interface{}) ([]interface{}, error) {
	args := m.Called(ctx, contractAddress, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interface{}), args.Error(1)
}

func (m *MockChainInvoker) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}
