package feather2d

// arena stores world objects by integer id. Ids of removed objects are reused, most recently
// freed first, so the id sequence only depends on the order of creations and removals.
type arena[ID ~int, T any] struct {
	items []T
	live  []bool
	free  []ID
	count int
}

// nextID returns the id the next insert will use.
func (a *arena[ID, T]) nextID() ID {
	if n := len(a.free); n > 0 {
		return a.free[n-1]
	}
	return ID(len(a.items))
}

func (a *arena[ID, T]) insert(value T) ID {
	id := a.nextID()
	if n := len(a.free); n > 0 {
		a.free = a.free[:n-1]
		a.items[id] = value
		a.live[id] = true
	} else {
		a.items = append(a.items, value)
		a.live = append(a.live, true)
	}
	a.count++
	return id
}

func (a *arena[ID, T]) get(id ID) (T, bool) {
	if id < 0 || int(id) >= len(a.items) || !a.live[id] {
		var zero T
		return zero, false
	}
	return a.items[id], true
}

// at returns the object of a live id without checking it.
func (a *arena[ID, T]) at(id ID) T {
	return a.items[id]
}

func (a *arena[ID, T]) remove(id ID) bool {
	if _, ok := a.get(id); !ok {
		return false
	}
	var zero T
	a.items[id] = zero
	a.live[id] = false
	a.free = append(a.free, id)
	a.count--
	return true
}

// each calls fn on the live objects in id order until fn returns false.
// Objects removed by fn are skipped.
func (a *arena[ID, T]) each(fn func(id ID, value T) bool) {
	for i := range a.items {
		if !a.live[i] {
			continue
		}
		if !fn(ID(i), a.items[i]) {
			return
		}
	}
}

func (a *arena[ID, T]) len() int {
	return a.count
}

// span is one past the largest id ever used.
func (a *arena[ID, T]) span() int {
	return len(a.items)
}
