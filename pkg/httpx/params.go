package httpx

import (
	"cmp"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Clamp — значение v в границах [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// QueryInt — целый query-параметр; ok=false, если параметра нет или он не число.
func QueryInt(c *gin.Context, name string) (int, bool) {
	raw, present := c.GetQuery(name)
	if !present {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseLimit — limit из query: нет/не число -> def; итог всегда в [1, maxLimit].
func ParseLimit(c *gin.Context, def, maxLimit int) int {
	v, ok := QueryInt(c, "limit")
	if !ok {
		v = def
	}
	return Clamp(v, 1, maxLimit)
}
