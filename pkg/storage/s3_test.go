package storage

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	key := GenerateKey("ipn", "ORD/12 34", now)
	assert.Equal(t, "ipn/2026/03/07/ORD_12_34_"+strconv.FormatInt(now.UnixMilli(), 10)+".txt", key)
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(S3Config{Region: "auto"})
	assert.Error(t, err)
}
