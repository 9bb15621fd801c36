package outpost

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	DefaultInterval    = 30 * time.Second
	DefaultValidAround = 2
)

// ErrInvalidToken is returned for tokens that are malformed, forged or
// outside the accepted time windows.
var ErrInvalidToken = errors.New("invalid outpost token")

// Issuer issues and checks the rotating codes shown at outposts. A token
// names its outpost and carries a keyed hash of the outpost id and the
// current time window.
type Issuer struct {
	key         [32]byte
	count       uint32
	interval    time.Duration
	validAround int
}

func NewIssuer(secret string, opts ...IssuerOpt) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("outpost secret is required")
	}

	i := &Issuer{
		key:         blake2b.Sum256([]byte(secret)),
		interval:    DefaultInterval,
		validAround: DefaultValidAround,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Count returns the number of outposts, zero when unbounded.
func (i *Issuer) Count() uint32 {
	return i.count
}

// Token returns the code for an outpost at now.
func (i *Issuer) Token(outpost uint32, now time.Time) string {
	raw := fmt.Sprintf("%d:%s", outpost, i.hash(outpost, i.window(now, 0)))
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Validate checks a token against the windows around now and returns the
// outpost it was issued for.
func (i *Issuer) Validate(token string, now time.Time) (uint32, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return 0, ErrInvalidToken
	}
	idPart, hash, ok := strings.Cut(string(raw), ":")
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil {
		return 0, ErrInvalidToken
	}
	outpost := uint32(id)
	if i.count > 0 && outpost >= i.count {
		return 0, ErrInvalidToken
	}

	for offset := -i.validAround; offset <= i.validAround; offset++ {
		expected := i.hash(outpost, i.window(now, offset))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(hash)) == 1 {
			return outpost, nil
		}
	}
	return 0, ErrInvalidToken
}

func (i *Issuer) window(now time.Time, offset int) int64 {
	return now.Unix()/int64(i.interval/time.Second) + int64(offset)
}

func (i *Issuer) hash(outpost uint32, window int64) string {
	h, err := blake2b.New256(i.key[:])
	if err != nil {
		// the key is always 32 bytes
		panic(err)
	}
	fmt.Fprintf(h, "%d:%d", outpost, window)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
