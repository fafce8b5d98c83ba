// Package s2s implements the signed service-to-service trust channel. A
// caller proves it is a registered internal service by sending its name and
// an HMAC over that name and a coarse time bucket; the signature is only
// valid for the current bucket and the one immediately before it.
package s2s

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// BucketSize is the width of the time window a signature stays valid for.
const BucketSize = time.Minute

// Signer computes and validates service signatures against a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner constructs a Signer for the given shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign computes the signature for serviceName in the current time bucket.
func (s *Signer) Sign(serviceName string) string {
	return s.signBucket(serviceName, s.bucket(0))
}

// Verify recomputes the signature for the current bucket and, to tolerate
// clock or processing skew at a bucket boundary, the immediately preceding
// bucket. Anything else is rejected.
func (s *Signer) Verify(serviceName, signature string) bool {
	if serviceName == "" || signature == "" {
		return false
	}
	for _, offset := range []int64{0, -1} {
		expected := s.signBucket(serviceName, s.bucket(offset))
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return true
		}
	}
	return false
}

// signBucket HMACs the canonical payload: service name first, then the
// bucket index, newline separated. The order is fixed; both ends must agree.
func (s *Signer) signBucket(serviceName string, bucket int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(serviceName))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(bucket, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Signer) bucket(offset int64) int64 {
	return s.now().Unix()/int64(BucketSize.Seconds()) + offset
}
