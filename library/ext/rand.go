package ext

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/exp/constraints"
)

var (
	mu    sync.Mutex
	srand = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func IsHit(v int) bool {
	mu.Lock()
	defer mu.Unlock()
	return srand.Intn(100) < v
}

func RandFloat[T constraints.Float](min T, max T) T {
	if max <= min {
		return min
	}
	mu.Lock()
	defer mu.Unlock()
	return T(srand.Float64())*(max-min) + min
}

// RandInt 返回 [min, max) 区间的随机数
func RandInt[T constraints.Integer](min T, max T) T {
	if max <= min {
		return min
	}
	mu.Lock()
	defer mu.Unlock()
	return T(srand.Int63n(int64(max-min))) + min
}

// Pick 等概率选取一个元素, 空切片返回零值
func Pick[T any](vs []T) (T, bool) {
	var zero T
	if len(vs) == 0 {
		return zero, false
	}
	return vs[RandInt(0, len(vs))], true
}
