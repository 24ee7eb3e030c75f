package fileupload

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryProvider implements StorageProvider in memory, for local runs and tests.
type MemoryProvider struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

type memoryFile struct {
	data        []byte
	contentType string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{files: make(map[string]memoryFile)}
}

func (p *MemoryProvider) SaveFile(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	p.mu.Lock()
	p.files[key] = memoryFile{data: buf, contentType: contentType}
	p.mu.Unlock()
	return nil
}

func (p *MemoryProvider) GetFile(_ context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.files[key]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", key)
	}
	return f.data, nil
}

func (p *MemoryProvider) DeleteFile(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.files, key)
	p.mu.Unlock()
	return nil
}

func (p *MemoryProvider) GenerateAccessURL(_ context.Context, key string, _ time.Duration) (string, error) {
	p.mu.RLock()
	_, ok := p.files[key]
	p.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("file not found: %s", key)
	}
	return "memory://" + key, nil
}

// Len reports how many files are stored.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.files)
}
