package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
)

// Retry runs fn and, when it fails with an unclassified storage error, runs it
// one more time. A second storage failure is reported as ServiceUnavailable.
// Domain errors and missing records are returned unchanged on the first try.
func Retry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if !transient(err) {
		return err
	}
	logger.WithCtx(ctx).Warn("storage failure, retrying", "op", op, "error", err)

	if ctx.Err() != nil {
		return apperr.Wrap(apperr.KindServiceUnavailable, "service temporarily unavailable", err)
	}
	err = fn()
	if !transient(err) {
		return err
	}
	logger.WithCtx(ctx).Error("storage failure after retry", "op", op, "error", err)
	return apperr.Wrap(apperr.KindServiceUnavailable, "service temporarily unavailable", err)
}

// Run executes fn inside a transaction with Retry semantics. Anything fn
// returns rolls the transaction back.
func Run(ctx context.Context, gdb *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	return Retry(ctx, op, func() error {
		return gdb.WithContext(ctx).Transaction(fn)
	})
}

func transient(err error) bool {
	if err == nil {
		return false
	}
	if apperr.IsClassified(err) {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// NotFound converts gorm.ErrRecordNotFound into the engine's NotFound kind.
func NotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, what+" not found", err)
	}
	return err
}
