package util

import "time"

// GetCurrentTimeMillis returns the wall clock in milliseconds, the
// page-header timestamp unit.
func GetCurrentTimeMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// GetCurrentTimeNanos returns the wall clock in nanoseconds.
func GetCurrentTimeNanos() int64 {
	return time.Now().UnixNano()
}

// GetCurrentTimestamp returns the wall clock in seconds.
func GetCurrentTimestamp() int64 {
	return time.Now().Unix()
}
