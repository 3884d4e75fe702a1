package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"diceduel/models"

	"github.com/stretchr/testify/mock"
)

// MockGameService is a mock implementation of GameService
type MockGameService struct {
	mock.Mock
}

func (m *MockGameService) EnsureUser(ctx context.Context, userID int64, username string, referredBy *int64) (*models.User, error) {
	args := m.Called(ctx, userID, username, referredBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockGameService) StartDraft(userID int64, opponentUsername string, opponentID int64) *Draft {
	args := m.Called(userID, opponentUsername, opponentID)
	return args.Get(0).(*Draft)
}

func (m *MockGameService) GetDraft(userID int64) *Draft {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*Draft)
}

func (m *MockGameService) UpdateDraft(userID int64, update DraftUpdate) (*Draft, error) {
	args := m.Called(userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Draft), args.Error(1)
}

func (m *MockGameService) ClearDraft(userID int64) {
	m.Called(userID)
}

func (m *MockGameService) CreateChallenge(ctx context.Context, chatID, challengerID, opponentID int64) (*models.Game, error) {
	args := m.Called(ctx, chatID, challengerID, opponentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameService) Accept(ctx context.Context, gameID, userID int64) (*models.Game, error) {
	args := m.Called(ctx, gameID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameService) Decline(ctx context.Context, gameID, userID int64) error {
	args := m.Called(ctx, gameID, userID)
	return args.Error(0)
}

func (m *MockGameService) Roll(ctx context.Context, chatID, userID int64, value int) (*RollOutcome, error) {
	args := m.Called(ctx, chatID, userID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RollOutcome), args.Error(1)
}

func (m *MockGameService) HandleEditedRoll(ctx context.Context, chatID, userID int64) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *MockGameService) Cancel(ctx context.Context, gameID, actorID int64) error {
	args := m.Called(ctx, gameID, actorID)
	return args.Error(0)
}

func (m *MockGameService) HandleTimeout(ctx context.Context, gameID int64) error {
	args := m.Called(ctx, gameID)
	return args.Error(0)
}

func (m *MockGameService) RematchVote(ctx context.Context, gameID, userID int64) (*models.Game, error) {
	args := m.Called(ctx, gameID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func TestTimeoutSupervisor_Tick_ResolvesExpiredDuels(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGameRepo := new(MockGameRepository)
	mockGames := new(MockGameService)
	mockUoW.SetRepositories(nil, mockGameRepo, nil, nil, nil)

	supervisor := NewTimeoutSupervisor(mockFactory, mockGames, testConfig())

	expired := []*models.Game{
		{ID: 1, Status: models.GameStatusActive},
		{ID: 2, Status: models.GameStatusActive},
		{ID: 3, Status: models.GameStatusActive},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockGameRepo.On("GetExpired", ctx, mock.AnythingOfType("time.Time")).Return(expired, nil)

	// One resolves, one raced a player action, one fails outright; the tick
	// handles all three and keeps going
	mockGames.On("HandleTimeout", ctx, int64(1)).Return(nil)
	mockGames.On("HandleTimeout", ctx, int64(2)).Return(ErrAlreadyProcessed)
	mockGames.On("HandleTimeout", ctx, int64(3)).Return(errors.New("store unreachable"))

	supervisor.tick(ctx)

	mockGames.AssertExpectations(t)
	mockGameRepo.AssertExpectations(t)
}

func TestTimeoutSupervisor_Tick_LoadFailureSkipsTick(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGameRepo := new(MockGameRepository)
	mockGames := new(MockGameService)
	mockUoW.SetRepositories(nil, mockGameRepo, nil, nil, nil)

	supervisor := NewTimeoutSupervisor(mockFactory, mockGames, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockGameRepo.On("GetExpired", ctx, mock.AnythingOfType("time.Time")).
		Return(nil, errors.New("store unreachable"))

	supervisor.tick(ctx)

	mockGames.AssertNotCalled(t, "HandleTimeout", mock.Anything, mock.Anything)
}

func TestTimeoutSupervisor_Start_StopsOnContextCancel(t *testing.T) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGameRepo := new(MockGameRepository)
	mockGames := new(MockGameService)
	mockUoW.SetRepositories(nil, mockGameRepo, nil, nil, nil)

	cfg := testConfig()
	cfg.TimeoutCheckInterval = 5 * time.Millisecond
	supervisor := NewTimeoutSupervisor(mockFactory, mockGames, cfg)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockGameRepo.On("GetExpired", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*models.Game{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		supervisor.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop after context cancellation")
	}
}
