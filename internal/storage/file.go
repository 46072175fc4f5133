package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"eduverse/internal/logger"
)

// documentVersion 文件存储文档格式版本
const documentVersion = "1.0"

// FileStore 基于单个 JSON 文件的键值存储
// 使用 sync.Mutex 保证同一进程内读写串行
type FileStore struct {
	filePath string
	mu       sync.Mutex
	logger   *logger.Logger
}

// fileDocument 文件存储的文档结构，包含全部键值
type fileDocument struct {
	Version   string            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]string `json:"entries"`
}

// NewFileStore 创建新的文件存储
// 参数:
//
//	filePath: 文档路径 (例如 "data/eduverse.json")
//	loggerInstance: 日志记录器实例
//
// 返回: 初始化的文件存储
func NewFileStore(filePath string, loggerInstance *logger.Logger) *FileStore {
	if loggerInstance == nil {
		loggerInstance = logger.NewLogger(logger.INFO)
	}
	return &FileStore{
		filePath: filePath,
		logger:   loggerInstance,
	}
}

// Path 返回文档路径
func (fs *FileStore) Path() string {
	return fs.filePath
}

// Get 读取键对应的值
func (fs *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDocument()
	if err != nil {
		return nil, false, err
	}
	value, exists := doc.Entries[key]
	if !exists {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Set 写入键对应的值并立即落盘
func (fs *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDocument()
	if err != nil {
		return err
	}
	doc.Entries[key] = string(value)
	doc.UpdatedAt = time.Now()

	if err := fs.writeDocument(doc); err != nil {
		return err
	}
	fs.logger.Debug("存储写入成功: key=%s, bytes=%d", key, len(value))
	return nil
}

// Remove 删除键，键不存在时不做任何写入
func (fs *FileStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDocument()
	if err != nil {
		return err
	}
	if _, exists := doc.Entries[key]; !exists {
		fs.logger.Debug("存储删除: 键不存在，key=%s", key)
		return nil
	}
	delete(doc.Entries, key)
	doc.UpdatedAt = time.Now()
	return fs.writeDocument(doc)
}

// Close 文件存储无需释放资源
func (fs *FileStore) Close() error { return nil }

// readDocument 读取文档内容
// 文件不存在或格式错误时返回空文档
func (fs *FileStore) readDocument() (*fileDocument, error) {
	empty := &fileDocument{
		Version:   documentVersion,
		UpdatedAt: time.Now(),
		Entries:   make(map[string]string),
	}

	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取存储文件失败: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		fs.logger.Warn("存储文件格式错误，将重新初始化: %v", err)
		return empty, nil
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]string)
	}
	return &doc, nil
}

// writeDocument 先写临时文件再重命名，避免写入中断留下半个文档
func (fs *FileStore) writeDocument(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化存储数据失败: %w", err)
	}

	if dir := filepath.Dir(fs.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建存储目录失败: %w", err)
		}
	}

	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入存储文件失败: %w", err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("替换存储文件失败: %w", err)
	}
	return nil
}
