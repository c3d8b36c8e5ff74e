package core

import "time"

// Clock supplies the current time. It is injected into services whose
// behavior depends on elapsed time so that tests can drive time explicitly.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewClock() Clock { return realClock{} }
