package domain

import "time"

// CommandType is the kind of reload instruction a Command carries (§3, §4.9).
type CommandType string

const (
	CommandReloadJobs   CommandType = "reload_jobs"
	CommandReloadConfig CommandType = "reload_config"
)

// TargetAll addresses every machine in the fleet.
const TargetAll = "all"

// Command is a fleet-wide instruction, consumed by each agent's Command
// Watcher via time-watermark polling (§4.9).
type Command struct {
	Type      CommandType `bson:"type" json:"type"`
	Target    string      `bson:"target" json:"target"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}

// AddressedTo reports whether this command targets machineID.
func (c Command) AddressedTo(machineID string) bool {
	return c.Target == TargetAll || c.Target == machineID
}

// NotificationConfig is the singleton Telegram notifier configuration (§3, §6).
type NotificationConfig struct {
	Token       string `bson:"token" json:"token"`
	SilentChat  string `bson:"silent_chat_id" json:"silent_chat_id"`
	AlertChat   string `bson:"alert_chat_id" json:"alert_chat_id"`
	ParseMode   string `bson:"parse_mode,omitempty" json:"parse_mode,omitempty"`
}
