package model

// DefaultRecentCap 去重集合默认容量
const DefaultRecentCap = 100

// RecentSet 有界去重集合, 超出容量时淘汰最早加入的 id
type RecentSet struct {
	cap   int
	order []int64
	set   map[int64]struct{}
	high  int64 // 见过的最大 id, Clear 不重置
}

func NewRecentSet(capacity int) *RecentSet {
	if capacity <= 0 {
		capacity = DefaultRecentCap
	}
	return &RecentSet{
		cap:   capacity,
		order: make([]int64, 0, capacity),
		set:   make(map[int64]struct{}, capacity),
	}
}

// Add 加入 id, 已存在返回 false
func (r *RecentSet) Add(id int64) bool {
	if _, ok := r.set[id]; ok {
		return false
	}
	if len(r.order) >= r.cap {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.set, oldest)
	}
	r.order = append(r.order, id)
	r.set[id] = struct{}{}
	if id > r.high {
		r.high = id
	}
	return true
}

func (r *RecentSet) Contains(id int64) bool {
	_, ok := r.set[id]
	return ok
}

func (r *RecentSet) Len() int    { return len(r.order) }
func (r *RecentSet) High() int64 { return r.high }

func (r *RecentSet) Clear() {
	r.order = r.order[:0]
	r.set = make(map[int64]struct{}, r.cap)
}
