package api

import (
	"encoding/json"
	"time"
)

// Profile is the account snapshot returned by the session endpoint
type Profile struct {
	UID                FlexString `json:"uid"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	ReferralLink       string     `json:"referral_link"`
	State              string     `json:"state"`
	NetworkEarningRate FlexNumber `json:"network_earning_rate"`
}

// EarnInfo is the season earnings summary
type EarnInfo struct {
	SeasonName   string     `json:"season_name"`
	TotalEarning FlexNumber `json:"total_earning"`
	TodayEarning FlexNumber `json:"today_earning"`
	CurrentPoint FlexNumber `json:"current_point"`
	PendingPoint FlexNumber `json:"pending_point"`
}

// MissionStatus is the server-reported state of a reward
type MissionStatus string

const (
	MissionAvailable MissionStatus = "AVAILABLE"
	MissionLock      MissionStatus = "LOCK"
	MissionSoon      MissionStatus = "SOON"
	MissionPending   MissionStatus = "PENDING"
	MissionWaiting   MissionStatus = "WAITING"
	MissionCompleted MissionStatus = "COMPLETED"
)

// Mission is one entry of the mission list
type Mission struct {
	ID             FlexString    `json:"id"`
	Status         MissionStatus `json:"status"`
	CurrentProcess int           `json:"current_process"`
	TargetProcess  int           `json:"target_process"`
	RemainTime     FlexNumber    `json:"remain_time"`
}

// UnmarshalJSON applies the server defaults: current_process 0,
// target_process 1.
func (m *Mission) UnmarshalJSON(b []byte) error {
	type raw struct {
		ID             FlexString    `json:"id"`
		Status         MissionStatus `json:"status"`
		CurrentProcess *FlexNumber   `json:"current_process"`
		TargetProcess  *FlexNumber   `json:"target_process"`
		RemainTime     FlexNumber    `json:"remain_time"`
	}
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}

	m.ID = r.ID
	m.Status = r.Status
	m.RemainTime = r.RemainTime
	m.CurrentProcess = 0
	if r.CurrentProcess != nil {
		m.CurrentProcess = int(*r.CurrentProcess)
	}
	m.TargetProcess = 1
	if r.TargetProcess != nil {
		m.TargetProcess = int(*r.TargetProcess)
	}
	return nil
}

// RemainingWait converts remain_time (milliseconds) to a duration
// truncated to whole seconds.
func (m Mission) RemainingWait() time.Duration {
	d := time.Duration(float64(m.RemainTime) * float64(time.Millisecond))
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// ClaimResult is the data of a successful mission completion
type ClaimResult struct {
	EarnedPoints FlexNumber `json:"earned_points"`
}

// PingPayload is the body sent to every ping endpoint
type PingPayload struct {
	ID        string `json:"id"`
	BrowserID string `json:"browser_id"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// DefaultClientVersion is assumed until a ping response reports one
const DefaultClientVersion = "2.2.7"

// PingData is the data object of a ping response
type PingData struct {
	Version string     `json:"version"`
	IPScore FlexNumber `json:"ip_score"`
}

// ActivatePayload is sent to the activation endpoint
type ActivatePayload struct{}

// ClaimPayload is sent to the mission completion endpoint
type ClaimPayload struct {
	MissionID string `json:"mission_id"`
}
