package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"menudocs/internal/model"
	"menudocs/internal/service"
)

type MockLibraryService struct {
	mock.Mock
}

func (m *MockLibraryService) MenuContents(ctx context.Context, menu string) (*service.MenuContents, error) {
	args := m.Called(ctx, menu)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MenuContents), args.Error(1)
}

func (m *MockLibraryService) Create(ctx context.Context, in service.CreateInput) (*service.CreateResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateResult), args.Error(1)
}

func (m *MockLibraryService) Document(ctx context.Context, id int64) (*service.DocumentContent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentContent), args.Error(1)
}

func (m *MockLibraryService) Folders(ctx context.Context) ([]model.Folder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Folder), args.Error(1)
}
