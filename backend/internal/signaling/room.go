package signaling

// RoomCapacity is the number of participants a room can hold.
const RoomCapacity = 2

// Room pairs at most two members under a short code. Members are kept in
// join order, so Members[0] is always the occupant that was there first.
//
// A Room is owned by the Hub and only touched while holding the hub lock.
type Room struct {
	ID      string
	Members []Member
}

func (r *Room) full() bool {
	return len(r.Members) >= RoomCapacity
}

func (r *Room) has(m Member) bool {
	return r.indexOf(m) >= 0
}

func (r *Room) indexOf(m Member) int {
	for i, existing := range r.Members {
		if existing == m {
			return i
		}
	}
	return -1
}

// remove drops m and reports whether it was present.
func (r *Room) remove(m Member) bool {
	i := r.indexOf(m)
	if i < 0 {
		return false
	}
	r.Members = append(r.Members[:i], r.Members[i+1:]...)
	return true
}
