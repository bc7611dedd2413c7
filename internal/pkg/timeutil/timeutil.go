package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// NowUnixMilli is the resolution used for ctime columns.
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
