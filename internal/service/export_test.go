package service

import "time"

func SetClock(s *TaskService, now func() time.Time) {
	s.now = now
}
