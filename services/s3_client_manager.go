package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"site-deployer/config"
)

// S3ClientManager caches MinIO clients per S3 configuration, so repeated deploys in watch mode reuse them
type S3ClientManager struct {
	clients map[string]*MinIO
	mutex   sync.RWMutex
}

// NewS3ClientManager creates a new S3ClientManager
func NewS3ClientManager() *S3ClientManager {
	return &S3ClientManager{
		clients: make(map[string]*MinIO),
	}
}

// getClientKey creates a unique key for an S3 configuration
func (scm *S3ClientManager) getClientKey(s3Config config.S3Config) string {
	data := fmt.Sprintf("%s:%s:%s:%t:%s",
		s3Config.Endpoint,
		s3Config.AccessKey,
		s3Config.SecretKey,
		s3Config.SSL,
		s3Config.Region)
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

// GetOrCreateClient returns a MinIO client for the given S3 configuration
func (scm *S3ClientManager) GetOrCreateClient(ctx context.Context, s3Config config.S3Config) (*MinIO, error) {
	key := scm.getClientKey(s3Config)

	scm.mutex.RLock()
	if client, exists := scm.clients[key]; exists {
		scm.mutex.RUnlock()
		return client, nil
	}
	scm.mutex.RUnlock()

	scm.mutex.Lock()
	defer scm.mutex.Unlock()

	// Check again, in case another goroutine has already created it
	if client, exists := scm.clients[key]; exists {
		return client, nil
	}

	minioClient, err := NewMinIOConnection(
		s3Config.Endpoint,
		s3Config.AccessKey,
		s3Config.SecretKey,
		s3Config.Region,
		s3Config.SSL,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating MinIO client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := minioClient.HealthCheck(checkCtx); err != nil {
		return nil, fmt.Errorf("MinIO health check failed: %w", err)
	}

	scm.clients[key] = minioClient

	slog.Info("New MinIO client created and cached",
		"endpoint", s3Config.Endpoint,
		"key", key[:8]) // Only show first 8 characters of key

	return minioClient, nil
}

// Close drops all cached clients
func (scm *S3ClientManager) Close() {
	scm.mutex.Lock()
	defer scm.mutex.Unlock()

	// MinIO clients have no explicit close method
	for key := range scm.clients {
		delete(scm.clients, key)
	}

	slog.Debug("All MinIO clients released")
}

// GetActiveClientCount returns the number of active clients
func (scm *S3ClientManager) GetActiveClientCount() int {
	scm.mutex.RLock()
	defer scm.mutex.RUnlock()
	return len(scm.clients)
}
