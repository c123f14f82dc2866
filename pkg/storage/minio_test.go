package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimPrefix(t *testing.T) {
	assert.Equal(t, "claims/CLM-1/xray/", ClaimPrefix("CLM-1", "xray"))
}

func TestNewImageStoreRequiresEndpoint(t *testing.T) {
	_, err := NewImageStore(MinioConfig{Bucket: "claims"})
	require.Error(t, err)
}
