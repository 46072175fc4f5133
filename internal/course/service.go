// Package course 提供课程目录管理功能
// 包括种子加载、快照合并、进度计算与课程/课时状态变更
//
// 主要功能:
//   - 从 YAML 种子（磁盘或嵌入式FS）加载规范课程目录
//   - 将持久化快照中的进度与锁状态合并进种子
//   - 课时完成、锁切换、视频替换等变更，每次成功变更后整体持久化
//   - 线程安全的课程数据访问
//
// 使用示例:
//
//	seed, _ := course.LoadSeedFromDir("./catalog")
//	service := course.NewService(seed, kv)
//	service.LoadCourses(ctx)
//	courses := service.GetCourses()
package course

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eduverse/internal/logger"
	"eduverse/internal/storage"
)

// persistTimeout 单次快照写入的超时时间
const persistTimeout = 5 * time.Second

// ErrNotVideo 上传的文件不是视频
var ErrNotVideo = errors.New("please upload a valid video file")

// Upload 待上传的本地视频文件
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// VideoRegistry 将本地文件转换为进程内有效的播放引用
type VideoRegistry interface {
	// Register 校验并登记文件，非视频文件返回 ErrNotVideo
	Register(file Upload) (VideoRef, error)
	// Release 释放不再使用的本地引用
	Release(handle string)
}

// Service 课程服务，负责课程目录的加载、访问与变更
// 线程安全，变更与持久化在同一把写锁内完成
type Service struct {
	seed      *Seed
	courses   []Course // 当前课程列表，顺序与种子一致
	kv        storage.KV
	videos    VideoRegistry
	listeners map[int]func([]Course)
	nextSubID int
	mu        sync.RWMutex
	logger    *logger.Logger
}

// NewService 创建新的课程服务实例
// 参数:
//
//	seed: 规范种子数据
//	kv: 持久化存储，为 nil 时不做持久化
//
// 返回: 初始化的课程服务实例，课程列表为种子副本，调用 LoadCourses 合并快照
func NewService(seed *Seed, kv storage.KV) *Service {
	if seed == nil {
		seed = &Seed{}
	}
	return &Service{
		seed:      seed,
		courses:   CloneCourses(seed.Courses),
		kv:        kv,
		listeners: make(map[int]func([]Course)),
		logger:    logger.NewLogger(logger.INFO),
	}
}

// SetLogger 设置日志记录器实例
func (s *Service) SetLogger(loggerInstance *logger.Logger) {
	s.logger = loggerInstance
}

// SetVideoRegistry 设置视频上传登记器
func (s *Service) SetVideoRegistry(registry VideoRegistry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = registry
}

// LoadCourses 以种子为基础合并已保存的快照
// 快照格式错误时回退到种子数据；存储读取失败时同样使用种子，并返回错误供调用方记录
func (s *Service) LoadCourses(ctx context.Context) error {
	courses := CloneCourses(s.seed.Courses)
	var loadErr error

	if s.kv != nil {
		data, found, err := s.kv.Get(ctx, SnapshotKey)
		switch {
		case err != nil:
			loadErr = fmt.Errorf("读取课程快照失败: %w", err)
		case found:
			saved, err := DecodeSnapshot(data)
			if err != nil {
				s.logger.Warn("课程快照无效，回退到种子数据: %v", err)
			} else {
				courses = Reconcile(s.seed.Courses, saved)
				s.logger.Debug("已合并课程快照: %d 条保存记录", len(saved))
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = courses
	if loadErr == nil {
		s.persistLocked()
	}

	s.logger.Info("Successfully loaded %d courses", len(courses))
	return loadErr
}

// GetCourses 获取全部课程的副本，顺序与种子一致
func (s *Service) GetCourses() []Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneCourses(s.courses)
}

// ViewCourses 在读锁内以课程副本调用 fn
// 变更与监听通知持有写锁，fn 看到的状态与随后的变更通知之间不会遗漏
// fn 不得回调 Service 的变更方法
func (s *Service) ViewCourses(fn func([]Course)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(CloneCourses(s.courses))
}

// GetCourse 根据ID获取课程
// 返回:
//
//	course: 课程副本
//	exists: 课程是否存在
func (s *Service) GetCourse(id string) (Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.courses[i].Clone(), true
	}
	return Course{}, false
}

// Certificates 返回种子中的证书列表
func (s *Service) Certificates() []Certificate {
	return append([]Certificate(nil), s.seed.Certificates...)
}

// Internships 返回种子中的实习岗位列表
func (s *Service) Internships() []Internship {
	return append([]Internship(nil), s.seed.Internships...)
}

// UpdateCourseProgress 直接设置课程进度（限制在 0..100）
// 仅适用于没有课时列表的课程；有课时的课程进度始终由课时完成情况推导，此时为空操作
// 返回: 课程是否存在
func (s *Service) UpdateCourseProgress(id string, progress int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	c := &s.courses[i]
	if len(c.Lessons) > 0 {
		s.logger.Warn("课程 %s 的进度由课时推导，忽略直接设置: %d", id, progress)
		return true
	}
	c.Progress = ClampProgress(progress)
	s.commitLocked()
	return true
}

// MarkLessonComplete 标记课时完成并重新计算课程进度
// 重复标记已完成课时不会改变进度
// 返回: 课程与课时是否存在
func (s *Service) MarkLessonComplete(courseID, lessonID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, j := s.lessonLocked(courseID, lessonID)
	if c == nil {
		return false
	}
	c.Lessons[j].IsCompleted = true
	c.Progress = DeriveProgress(c.Lessons)
	s.commitLocked()
	return true
}

// UploadLessonVideo 用本地上传的视频替换课时视频
// 非视频文件返回 ErrNotVideo，且不修改任何状态
// 返回:
//
//	found: 课程与课时是否存在
//	err: 登记失败的原因
func (s *Service) UploadLessonVideo(courseID, lessonID string, file Upload) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, j := s.lessonLocked(courseID, lessonID)
	if c == nil {
		return false, nil
	}
	if s.videos == nil {
		return true, fmt.Errorf("video registry is not configured")
	}

	ref, err := s.videos.Register(file)
	if err != nil {
		return true, err
	}

	old := c.Lessons[j].Video
	c.Lessons[j].Video = ref
	if old.IsLocal() && old.Handle != ref.Handle {
		s.videos.Release(old.Handle)
	}
	s.logger.Info("课时视频已替换: course=%s, lesson=%s, file=%s", courseID, lessonID, file.Name)
	s.commitLocked()
	return true, nil
}

// ToggleLessonLock 切换课时锁
func (s *Service) ToggleLessonLock(courseID, lessonID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, j := s.lessonLocked(courseID, lessonID)
	if c == nil {
		return false
	}
	c.Lessons[j].IsLocked = !c.Lessons[j].IsLocked
	s.commitLocked()
	return true
}

// ToggleCourseLock 切换讲师级课程锁
func (s *Service) ToggleCourseLock(courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(courseID)
	if i < 0 {
		return false
	}
	s.courses[i].IsLocked = !s.courses[i].IsLocked
	s.commitLocked()
	return true
}

// Subscribe 注册变更监听，每次成功变更后以课程副本调用
// 监听函数在持有写锁时执行，不得回调 Service
// 返回: 取消注册函数
func (s *Service) Subscribe(fn func([]Course)) func() {
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

func (s *Service) indexOf(id string) int {
	for i := range s.courses {
		if s.courses[i].ID == id {
			return i
		}
	}
	return -1
}

// lessonLocked 查找课程与课时下标，任一不存在时返回 nil
func (s *Service) lessonLocked(courseID, lessonID string) (*Course, int) {
	i := s.indexOf(courseID)
	if i < 0 {
		return nil, -1
	}
	c := &s.courses[i]
	j := c.lessonIndex(lessonID)
	if j < 0 {
		return nil, -1
	}
	return c, j
}

func (s *Service) commitLocked() {
	s.persistLocked()
	if len(s.listeners) == 0 {
		return
	}
	for _, fn := range s.listeners {
		fn(CloneCourses(s.courses))
	}
}

// persistLocked 写入完整快照，失败只记录日志
func (s *Service) persistLocked() {
	if s.kv == nil {
		return
	}
	data, err := EncodeSnapshot(s.courses)
	if err != nil {
		s.logger.Error("课程快照序列化失败: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, SnapshotKey, data); err != nil {
		s.logger.Warn("课程快照写入失败（不影响内存状态）: %v", err)
	}
}
