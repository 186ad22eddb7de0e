package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

type Func = func(ctx huma.Context, next func(huma.Context))

// Container собирает цепочки мидлварей для групп операций.
// Общие мидлвари (логгер) стоят первыми, чтобы видеть и отказы auth.
type Container struct {
	common  huma.Middlewares
	pending huma.Middlewares
}

// NewContainer создает контейнер с общими мидлварями
func NewContainer(common ...Func) *Container {
	return &Container{common: common}
}

// Add добавляет мидлварь в следующую цепочку
func (mc *Container) Add(middleware Func) *Container {
	mc.pending = append(mc.pending, middleware)
	return mc
}

// GetAllAndClear возвращает общие и добавленные мидлвари и очищает добавленные
func (mc *Container) GetAllAndClear() huma.Middlewares {
	result := make(huma.Middlewares, 0, len(mc.common)+len(mc.pending))
	result = append(result, mc.common...)
	result = append(result, mc.pending...)
	mc.pending = nil
	return result
}
