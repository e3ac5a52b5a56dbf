package domain

import "time"

// DefaultOrderValue is the sentinel priority assigned to a machine the first
// time it registers. Lower values run earlier; ties break on MachineID.
const DefaultOrderValue = 9999

// Machine identifies one fleet member. MachineID is a stable UUID persisted
// to local disk (machine.json) so it survives process restarts.
type Machine struct {
	MachineID        string     `bson:"machine_id"`
	Hostname         string     `bson:"hostname"`
	OrderValue       int        `bson:"order"`
	Serial           int        `bson:"serial"`
	LastOnlineMinute *time.Time `bson:"last_online_minute,omitempty"`
	LastSeen         time.Time  `bson:"last_seen"`
	CreatedAt        time.Time  `bson:"created_at"`
}

// HeartbeatFor reports whether this machine heartbeat-reported for minute m.
func (m Machine) HeartbeatFor(minute time.Time) bool {
	return m.LastOnlineMinute != nil && m.LastOnlineMinute.Equal(minute)
}

// SortedMachines orders machines by (order_value ASC, machine_id ASC), the
// fleet-wide priority order defined in spec §3.
type SortedMachines []Machine

func (s SortedMachines) Len() int      { return len(s) }
func (s SortedMachines) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s SortedMachines) Less(i, j int) bool {
	if s[i].OrderValue != s[j].OrderValue {
		return s[i].OrderValue < s[j].OrderValue
	}
	return s[i].MachineID < s[j].MachineID
}

// PositionOf returns the 1-based position of machineID within the sorted
// list, and its order value. ok is false if machineID is absent.
func (s SortedMachines) PositionOf(machineID string) (position, orderValue int, ok bool) {
	for i, m := range s {
		if m.MachineID == machineID {
			return i + 1, m.OrderValue, true
		}
	}
	return 0, 0, false
}
