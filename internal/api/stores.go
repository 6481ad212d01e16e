package api

import (
	"context"

	"github.com/phrazzld/todos-api/internal/api/middleware"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/store"
)

// StoreProvider returns stores bound to the request's database session.
type StoreProvider interface {
	Todos(ctx context.Context, rc *middleware.RequestContext) (store.TodoStore, error)
	Users(ctx context.Context, rc *middleware.RequestContext) (store.UserStore, error)
}

// SessionStores builds stores on top of the request session, so every store
// used while serving one request shares a single connection.
type SessionStores struct {
	newTodoStore func(db store.DBTX) store.TodoStore
	newUserStore func(db store.DBTX) store.UserStore
}

// NewSessionStores creates a SessionStores from store constructors.
func NewSessionStores(
	newTodoStore func(db store.DBTX) store.TodoStore,
	newUserStore func(db store.DBTX) store.UserStore,
) *SessionStores {
	return &SessionStores{
		newTodoStore: newTodoStore,
		newUserStore: newUserStore,
	}
}

var (
	_ StoreProvider         = (*SessionStores)(nil)
	_ middleware.UserLoader = (*SessionStores)(nil)
)

// Todos implements StoreProvider.
func (p *SessionStores) Todos(ctx context.Context, rc *middleware.RequestContext) (store.TodoStore, error) {
	sess, err := rc.Session(ctx)
	if err != nil {
		return nil, err
	}
	return p.newTodoStore(sess), nil
}

// Users implements StoreProvider.
func (p *SessionStores) Users(ctx context.Context, rc *middleware.RequestContext) (store.UserStore, error) {
	sess, err := rc.Session(ctx)
	if err != nil {
		return nil, err
	}
	return p.newUserStore(sess), nil
}

// LoadUser implements middleware.UserLoader.
func (p *SessionStores) LoadUser(ctx context.Context, rc *middleware.RequestContext, id int64) (*domain.User, error) {
	users, err := p.Users(ctx, rc)
	if err != nil {
		return nil, err
	}
	return users.GetByID(ctx, id)
}

// StaticStores serves fixed store instances regardless of the request. It
// backs single-connection tools and tests.
type StaticStores struct {
	TodoStore store.TodoStore
	UserStore store.UserStore
}

var (
	_ StoreProvider         = StaticStores{}
	_ middleware.UserLoader = StaticStores{}
)

// Todos implements StoreProvider.
func (s StaticStores) Todos(context.Context, *middleware.RequestContext) (store.TodoStore, error) {
	return s.TodoStore, nil
}

// Users implements StoreProvider.
func (s StaticStores) Users(context.Context, *middleware.RequestContext) (store.UserStore, error) {
	return s.UserStore, nil
}

// LoadUser implements middleware.UserLoader.
func (s StaticStores) LoadUser(ctx context.Context, _ *middleware.RequestContext, id int64) (*domain.User, error) {
	return s.UserStore.GetByID(ctx, id)
}
