package safego

import (
	"context"
	"runtime/debug"

	"github.com/xh-polaris/docflow-core-api/pkg/logs"
)

// Go 启动一个协程, panic时记录堆栈而不是让进程退出
func Go(ctx context.Context, fn func()) {
	go func() {
		defer Recovery(ctx)

		fn()
	}()
}

func Recovery(ctx context.Context) {
	e := recover()
	if e == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	logs.CtxErrorf(ctx, "[catch panic] err = %v \n stacktrace:\n%s", e, debug.Stack())
}
