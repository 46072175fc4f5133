// Package user 管理当前登录用户资料
// 进程内最多存在一个用户；登录不校验密码，任何邮箱都会被接受
package user

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"eduverse/internal/logger"
	"eduverse/internal/storage"
)

// StorageKey 用户资料在持久化存储中的键
const StorageKey = "eduverse_user"

// DefaultName 登录时新建资料使用的默认名称
const DefaultName = "Learner"

const persistTimeout = 5 * time.Second

// Service 用户服务，持有至多一个用户资料
type Service struct {
	current   *User
	kv        storage.KV
	listeners map[int]func(*User)
	nextSubID int
	mu        sync.RWMutex
	logger    *logger.Logger
}

// NewService 创建用户服务，kv 为 nil 时不做持久化
func NewService(kv storage.KV) *Service {
	return &Service{
		kv:        kv,
		listeners: make(map[int]func(*User)),
		logger:    logger.NewLogger(logger.INFO),
	}
}

// SetLogger 设置日志记录器实例
func (s *Service) SetLogger(loggerInstance *logger.Logger) {
	s.logger = loggerInstance
}

// Load 从存储恢复用户资料；记录格式错误时视为未登录
func (s *Service) Load(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	data, found, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("读取用户资料失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if !found {
		return nil
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil || strings.TrimSpace(u.Email) == "" {
		s.logger.Warn("用户资料格式错误，按未登录处理: %v", err)
		return nil
	}
	s.current = &u
	s.logger.Debug("已恢复用户资料: %s", u.Email)
	return nil
}

// Current 返回当前用户副本
func (s *Service) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return User{}, false
	}
	return *s.current, true
}

// ViewCurrent 在读锁内以当前资料副本调用 fn，未登录时参数为 nil
// fn 不得回调 Service 的变更方法
func (s *Service) ViewCurrent(fn func(*User)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		fn(nil)
		return
	}
	u := *s.current
	fn(&u)
}

// IsPremium 当前用户是否为付费用户，未登录时为 false
func (s *Service) IsPremium() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.IsPremium
}

// Login 使用邮箱登录
// 已加载相同邮箱的用户时为空操作（保留付费状态与身份），否则创建默认学生资料
func (s *Service) Login(email string) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Email == email {
		return *s.current
	}
	s.current = &User{
		Name:      DefaultName,
		Email:     email,
		IsPremium: false,
		Role:      RoleStudent,
	}
	s.logger.Info("用户登录: %s", email)
	s.commitLocked()
	return *s.current
}

// Signup 注册新用户，总是替换当前会话
func (s *Service) Signup(name, email string) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &User{
		Name:      name,
		Email:     email,
		IsPremium: false,
	}
	s.logger.Info("用户注册: %s", email)
	s.commitLocked()
	return *s.current
}

// Logout 清除当前用户并删除持久化记录
func (s *Service) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.commitLocked()
}

// Update 浅合并资料字段，未登录时为空操作
// 返回: 是否存在可更新的用户
func (s *Service) Update(p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	updated := p.Apply(*s.current)
	s.current = &updated
	s.commitLocked()
	return true
}

// UpgradeToPremium 等价于 Update(Patch{IsPremium: true})
func (s *Service) UpgradeToPremium() bool {
	premium := true
	return s.Update(Patch{IsPremium: &premium})
}

// Subscribe 注册资料变更监听，参数为 nil 表示已登出
// 监听函数在持有写锁时执行，不得回调 Service
func (s *Service) Subscribe(fn func(*User)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Service) commitLocked() {
	s.persistLocked()
	for _, fn := range s.listeners {
		if s.current == nil {
			fn(nil)
			continue
		}
		u := *s.current
		fn(&u)
	}
}

// persistLocked 写入或删除用户记录，失败只记录日志
func (s *Service) persistLocked() {
	if s.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if s.current == nil {
		if err := s.kv.Remove(ctx, StorageKey); err != nil {
			s.logger.Warn("删除用户资料失败: %v", err)
		}
		return
	}
	data, err := json.Marshal(s.current)
	if err != nil {
		s.logger.Error("用户资料序列化失败: %v", err)
		return
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		s.logger.Warn("用户资料写入失败（不影响内存状态）: %v", err)
	}
}
