package scoring

import "strings"

// Direction is the directive stance of a regulation.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionProhibited
	DirectionRequired
	DirectionOptional
)

func (d Direction) String() string {
	switch d {
	case DirectionProhibited:
		return "PROHIBITED"
	case DirectionRequired:
		return "REQUIRED"
	case DirectionOptional:
		return "OPTIONAL"
	default:
		return "UNKNOWN"
	}
}

// Status is the lifecycle state of a behavior.
type Status int

const (
	StatusUnknown Status = iota
	StatusCompleted
	StatusInProgress
	StatusPaused
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "COMPLETED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusPaused:
		return "PAUSED"
	case StatusTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// NormalizeDirection maps free text onto a Direction. Chinese keywords match as
// substrings, English words match exactly (case-insensitive). Anything else is
// DirectionUnknown.
func NormalizeDirection(raw string) Direction {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return DirectionUnknown
	case strings.Contains(v, "禁止"), v == "prohibited", v == "forbidden":
		return DirectionProhibited
	case strings.Contains(v, "必须"), v == "必要", v == "required", v == "mandatory":
		return DirectionRequired
	case strings.Contains(v, "可选"), v == "optional", v == "recommended":
		return DirectionOptional
	default:
		return DirectionUnknown
	}
}

// NormalizeStatus maps free text onto a Status, defaulting to StatusUnknown.
func NormalizeStatus(raw string) Status {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return StatusUnknown
	case strings.Contains(v, "已完成"), v == "completed", v == "done":
		return StatusCompleted
	case strings.Contains(v, "进行中"), v == "processing", v == "in_progress", v == "in-progress", v == "ongoing":
		return StatusInProgress
	case strings.Contains(v, "暂停"), v == "paused", v == "suspended":
		return StatusPaused
	case strings.Contains(v, "终止"), v == "terminated", v == "stopped":
		return StatusTerminated
	default:
		return StatusUnknown
	}
}
