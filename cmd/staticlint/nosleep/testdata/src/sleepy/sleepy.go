package sleepy

import (
	"time"
	clock "time"
)

type pause struct{}

func (pause) Sleep(d time.Duration) {}

func wait() {
	time.Sleep(time.Second) // want "time.Sleep запрещён"
	clock.Sleep(time.Millisecond) // want "time.Sleep запрещён"

	var p pause
	p.Sleep(time.Second)

	<-time.After(time.Second)
	time.AfterFunc(time.Second, func() {})
}
