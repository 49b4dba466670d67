package app

import "time"

// Clock supplies the current time to the schedulers and services. Production
// wiring passes time.Now; tests pass a settable fake so window and alarm
// math runs without real sleeps.
type Clock func() time.Time
