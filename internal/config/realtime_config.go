package config

type RealtimeConfig interface {
	GetRealtimePath() string
	GetNotificationTopic() string
	GetHeartbeat() string
}

type Realtime struct{}

var _ RealtimeConfig = Realtime{}

func (Realtime) GetRealtimePath() string {
	return GetEnv("CARPOOL_WS_PATH", "/api/ws")
}

func (Realtime) GetNotificationTopic() string {
	return "/user/queue/notification"
}

func (Realtime) GetHeartbeat() string {
	return GetEnv("CARPOOL_WS_HEARTBEAT", "10s")
}
