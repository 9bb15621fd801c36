package outpost

import "time"

type IssuerOpt func(*Issuer)

// WithCount limits valid outpost ids to [0, count).
func WithCount(count uint32) IssuerOpt {
	return func(i *Issuer) {
		i.count = count
	}
}

// WithInterval sets how long one token window lasts. Anything below a second
// is ignored.
func WithInterval(d time.Duration) IssuerOpt {
	return func(i *Issuer) {
		if d >= time.Second {
			i.interval = d
		}
	}
}

// WithValidAround sets how many windows either side of now are accepted.
func WithValidAround(n int) IssuerOpt {
	return func(i *Issuer) {
		if n >= 0 {
			i.validAround = n
		}
	}
}
