// Package media 管理进程内的本地上传视频
// 上传的视频只在当前进程有效，不会写入课程快照
package media

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"eduverse/internal/course"
	"eduverse/internal/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// URLPrefix 本地视频的访问路径前缀
const URLPrefix = "/media/"

var (
	// ErrNotFound 句柄不存在或已释放
	ErrNotFound = errors.New("media not found")
	// ErrTooLarge 文件超过上传大小限制
	ErrTooLarge = errors.New("media exceeds upload limit")
)

// Item 已登记的本地视频
type Item struct {
	Handle      string
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Registry 本地视频登记表，实现 course.VideoRegistry
type Registry struct {
	mu       sync.RWMutex
	items    map[string]*Item
	maxBytes int64
	logger   *logger.Logger
}

// NewRegistry 创建登记表
// 参数:
//
//	maxBytes: 单个文件大小上限，<=0 表示不限制
func NewRegistry(maxBytes int64) *Registry {
	return &Registry{
		items:    make(map[string]*Item),
		maxBytes: maxBytes,
		logger:   logger.NewLogger(logger.INFO),
	}
}

// SetLogger 设置日志记录器实例
func (r *Registry) SetLogger(loggerInstance *logger.Logger) {
	r.logger = loggerInstance
}

// DetectVideo 判断文件是否为视频
// 优先使用声明的 Content-Type，缺失或不是 video/* 时按内容嗅探
// 返回: 最终确定的 MIME 类型
func DetectVideo(file course.Upload) (string, error) {
	declared := strings.ToLower(strings.TrimSpace(file.ContentType))
	if strings.HasPrefix(declared, "video/") {
		return declared, nil
	}
	detected := mimetype.Detect(file.Data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return detected.String(), nil
		}
	}
	return "", fmt.Errorf("%w: detected %s", course.ErrNotVideo, detected.String())
}

// Register 校验并登记上传文件
func (r *Registry) Register(file course.Upload) (course.VideoRef, error) {
	if r.maxBytes > 0 && int64(len(file.Data)) > r.maxBytes {
		return course.VideoRef{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(file.Data))
	}
	contentType, err := DetectVideo(file)
	if err != nil {
		return course.VideoRef{}, err
	}

	handle := uuid.NewString()
	item := &Item{
		Handle:      handle,
		Name:        file.Name,
		ContentType: contentType,
		Data:        file.Data,
		CreatedAt:   time.Now(),
	}

	r.mu.Lock()
	r.items[handle] = item
	r.mu.Unlock()

	r.logger.Debug("已登记本地视频: handle=%s, name=%s, type=%s, size=%d", handle, file.Name, contentType, len(file.Data))
	return course.LocalVideo(handle, URLPrefix+handle), nil
}

// Release 释放本地视频
func (r *Registry) Release(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[handle]; ok {
		delete(r.items, handle)
		r.logger.Debug("已释放本地视频: %s", handle)
	}
}

// Open 根据句柄获取视频
func (r *Registry) Open(handle string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

// Len 当前登记的视频数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
