package danmaku

// LimitByCount keeps at most capThousands*1000 items, chosen at equal
// index intervals (floor(i*total/ceiling)) so the sample spans the whole
// list. A non-positive cap disables sampling.
func LimitByCount[T any](items []T, capThousands int) []T {
	if items == nil {
		return []T{}
	}
	if capThousands <= 0 {
		return items
	}
	ceiling := capThousands * 1000
	total := len(items)
	if total <= ceiling {
		return items
	}
	out := make([]T, ceiling)
	for i := range ceiling {
		out[i] = items[i*total/ceiling]
	}
	return out
}
