// Package mocks provides mock implementations for testing the auth service.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our store interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockUserStore(ctrl)
//	mockStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(user, nil)
package mocks

// Generate mock for UserStore interface from internal/ports package.
// This creates MockUserStore with methods: FindByEmail, Save
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_store_mock.go github.com/target/user-auth-api/internal/ports UserStore

// Generate mock for SessionStore interface from internal/ports package.
// This creates MockSessionStore with methods: FindByTokenAndUser, Save
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/target/user-auth-api/internal/ports SessionStore
