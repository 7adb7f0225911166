package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPayloadKey returns the cache key for an exam's student-facing question list.
func (r *CacheKeyStruct) ExamPayloadKey(examID int64) string {
	return fmt.Sprintf("exam:%d:payload", examID)
}

// ExamAnswerKey returns the cache key for an exam's answer key hash.
func (r *CacheKeyStruct) ExamAnswerKey(examID int64) string {
	return fmt.Sprintf("exam:%d:key", examID)
}

// AbsenceSweepLockKey guards against overlapping sweeper runs.
func (r *CacheKeyStruct) AbsenceSweepLockKey() string {
	return "lock:absence_sweep"
}

var CacheKey = NewCacheKeyStruct()
