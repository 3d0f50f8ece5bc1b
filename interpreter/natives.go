package interpreter

import "time"

// builtins are the natives every interpreter starts with.
func builtins() []*Native {
	return []*Native{Clock(time.Now)}
}

// Clock returns the `clock` native: seconds since the Unix epoch, with a
// fractional part, read from now.
func Clock(now func() time.Time) *Native {
	return &Native{
		Name:   "clock",
		Params: 0,
		Fn: func([]Value) (Value, error) {
			return float64(now().UnixNano()) / float64(time.Second), nil
		},
	}
}
