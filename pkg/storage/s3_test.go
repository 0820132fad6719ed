package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "certificates/u-1/CERT-2026-ABC123.pdf", CertificateKey("u-1", "CERT-2026-ABC123"))
	assert.Equal(t, "diplomas/u-1/DIP-ABCDEFGHIJKL.pdf", DiplomaKey("u-1", "DIP-ABCDEFGHIJKL"))
	assert.Equal(t, "certificates/u-1/x.pdf", CertificateKey("u-1", "../u-1/x"), "keys stay inside the user prefix")
}

func TestPresignExpire(t *testing.T) {
	assert.Equal(t, 15*time.Minute, (&S3{}).PresignExpire())
	assert.Equal(t, 5*time.Minute, (&S3{cfg: S3Config{PresignExpireMinutes: 5}}).PresignExpire())
}
