package config

type WorkerConfig interface {
	GetWorkerScript() string
	GetWorkerListen() string
	GetStaticPrefix() string
	GetSkipWaiting() bool
	GetRevalidateRate() float64
	GetCacheRedisURL() string
	GetNotificationIcon() string
	GetPushProjectID() string
	GetPushSenderID() string
}

type Worker struct{}

var _ WorkerConfig = Worker{}

func (Worker) GetWorkerScript() string {
	return "/sw.js"
}

func (Worker) GetWorkerListen() string {
	return GetEnv("CARPOOL_WORKER_LISTEN", ":8090")
}

func (Worker) GetStaticPrefix() string {
	return "/static/"
}

// GetSkipWaiting mirrors the PWA build setting: new workers activate as soon as they are installed.
func (Worker) GetSkipWaiting() bool {
	return GetEnvBool("CARPOOL_WORKER_SKIP_WAITING", true)
}

// GetRevalidateRate is the number of background cache refreshes allowed per second.
func (Worker) GetRevalidateRate() float64 {
	return GetEnvFloat("CARPOOL_REVALIDATE_RATE", 5)
}

// GetCacheRedisURL selects the Redis cache backend when set, otherwise caches live in memory.
func (Worker) GetCacheRedisURL() string {
	return GetEnv("CARPOOL_CACHE_REDIS_URL", "")
}

func (Worker) GetNotificationIcon() string {
	return "/icons/icon-192.png"
}

func (Worker) GetPushProjectID() string {
	return GetEnv("CARPOOL_PUSH_PROJECT_ID", "carpool-app-2025")
}

func (Worker) GetPushSenderID() string {
	return GetEnv("CARPOOL_PUSH_SENDER_ID", "")
}
