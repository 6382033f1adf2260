package models

// CacheStats summarizes cache health for monitoring
type CacheStats struct {
	TotalEntries int64   `json:"totalEntries"`
	FreshEntries int64   `json:"freshEntries"`
	StaleEntries int64   `json:"staleEntries"`
	HitRate      float64 `json:"hitRate"`
}
