package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoScope is returned when a repository runs without a request scope in context.
var ErrNoScope = errors.New("no database scope in context")

// Querier is the query surface shared by pooled connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Scope is a request-scoped connection. While a transaction is open through
// InTx, queries issued with the scope's context run inside it.
type Scope struct {
	Conn *pgxpool.Conn
	tx   pgx.Tx
}

// Close releases the connection back to the pool.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	s.Conn.Release()
	s.Conn = nil
}

// Acquire takes a connection from the pool for the lifetime of a request.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn}, nil
}

type contextKey string

// ScopeKey is the context key for storing the request-scoped database connection.
const ScopeKey contextKey = "dbScope"

// SetScope stores the request scope in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// GetScope retrieves the request scope from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok && scope != nil
}

// Q returns the querier for ctx: the open transaction if any, else the scope connection.
func Q(ctx context.Context) (Querier, error) {
	scope, ok := GetScope(ctx)
	if !ok || scope.Conn == nil {
		return nil, ErrNoScope
	}
	if scope.tx != nil {
		return scope.tx, nil
	}
	return scope.Conn, nil
}

// InTx runs fn inside a transaction on the scope connection.
// Nested calls join the outer transaction.
func InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	scope, ok := GetScope(ctx)
	if !ok || scope.Conn == nil {
		return ErrNoScope
	}
	if scope.tx != nil {
		return fn(ctx)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	scope.tx = tx
	defer func() {
		scope.tx = nil
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithScope acquires a scope, runs fn with it in context, and releases it.
// Used by commands that run outside the HTTP middleware.
func (db *DB) WithScope(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, err := db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer scope.Close()
	return fn(SetScope(ctx, scope))
}
