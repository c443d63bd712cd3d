package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/gamemarket-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic. Используется для
// побочных задач вне транзакции: пуш уведомлений в WebSocket после
// коммита каскада.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		if logger.Log != nil {
			logger.Log.Errorf("panic in goroutine: %v\nstack:\n%s", r, debug.Stack())
		}
	}
}
