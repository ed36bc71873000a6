package certificate

import (
	"crypto/sha256"
	"encoding/hex"
)

const hashLen = 16

// CertificateHash is the deterministic public identifier of the (course, learner) certificate.
func CertificateHash(courseID, userID string) string {
	sum := sha256.Sum256([]byte(courseID + ":" + userID))
	return hex.EncodeToString(sum[:])[:hashLen]
}
