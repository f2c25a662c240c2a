package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/config"
)

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		ssl     bool
		host    string
		wantSSL bool
	}{
		{in: "localhost:9000", host: "localhost:9000"},
		{in: "localhost:9000", ssl: true, host: "localhost:9000", wantSSL: true},
		{in: "https://s3.example.com", host: "s3.example.com", wantSSL: true},
		{in: "http://minio:9000", ssl: true, host: "minio:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, ssl, err := resolveEndpoint(tt.in, tt.ssl)
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.wantSSL, ssl)
		})
	}
}

func TestNewObjectStore(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:       "http://localhost:9000",
		AccessKey:      "minio",
		SecretKey:      "minio123",
		BucketMaildrop: "maildrop",
		Region:         "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "maildrop", store.Bucket())
}
