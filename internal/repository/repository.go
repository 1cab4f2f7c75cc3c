// Package repository implements the engine's store interfaces on
// postgres via pgx. Every repository runs against a Querier so the same
// code serves both pool-scoped reads and transaction-scoped mutations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrStoryNotFound     = errors.New("story not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrHighlightNotFound = errors.New("highlight not found")
	ErrReactionNotFound  = errors.New("reaction not found")
	ErrStickerNotFound   = errors.New("sticker not found")
	// ErrVersionConflict reports a lost optimistic compare-and-set race;
	// the caller should re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx alike.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}
