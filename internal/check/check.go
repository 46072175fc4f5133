// Package check 执行启动前的环境检查，CLI 与 /api/check 共用
package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"eduverse/internal/config"
	"eduverse/internal/course"
	"eduverse/internal/logger"
	"eduverse/internal/storage"
)

// healthMessage /health 响应中用于识别本服务的标识
const healthMessage = "Eduverse is running"

// Item 单项检查结果
type Item struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Summary 检查汇总
type Summary struct {
	OK    bool   `json:"ok"`
	Items []Item `json:"items"`
}

// NewSummary 汇总检查项，任一失败则整体失败
func NewSummary(items []Item) Summary {
	ok := true
	for _, it := range items {
		if !it.OK {
			ok = false
		}
	}
	return Summary{OK: ok, Items: items}
}

// RunFromConfig 使用配置与种子来源（嵌入或磁盘）执行检查
func RunFromConfig(ctx context.Context, catalogFS fs.FS, cfg *config.Config) Summary {
	items := make([]Item, 0, 5)

	// 1) 种子目录
	seed, err := course.OpenSeed(cfg.Catalog.UseEmbed, cfg.Catalog.Dir, catalogFS)
	if err != nil {
		items = append(items, Item{Name: "课程种子", OK: false, Message: fmt.Sprintf("种子加载失败：%v", err)})
	} else {
		ok, msg := CatalogIntegrity(seed.Courses)
		items = append(items, Item{Name: "课程种子", OK: ok, Message: msg})
	}

	// 2) 存储
	kv, err := storage.Open(ctx, cfg.Storage, logger.NewLogger(logger.ERROR))
	if err != nil {
		items = append(items, Item{Name: fmt.Sprintf("存储 (%s)", cfg.Storage.Driver), OK: false, Message: fmt.Sprintf("存储不可用：%v", err)})
	} else {
		ok, msg := StorageReachable(ctx, kv)
		items = append(items, Item{Name: fmt.Sprintf("存储 (%s)", cfg.Storage.Driver), OK: ok, Message: msg})

		// 3) 快照兼容性
		if seed != nil {
			ok, msg, details := SnapshotCompatibility(ctx, kv, seed)
			items = append(items, Item{Name: "课程快照", OK: ok, Message: msg, Details: details})
		}
		_ = kv.Close()
	}

	// 4) 端口占用
	portOK, portMsg, procInfo := PortOccupation(cfg.Server.Host, cfg.Server.Port)
	details := ""
	if !portOK && procInfo != "" {
		details = procInfo
	}
	items = append(items, Item{Name: fmt.Sprintf("端口占用 (%s:%d)", cfg.Server.Host, cfg.Server.Port), OK: portOK, Message: portMsg, Details: details})

	// 5) 服务健康
	serviceOK, serviceMsg := ServiceHealth(cfg.Server.Host, cfg.Server.Port)
	items = append(items, Item{Name: fmt.Sprintf("服务健康检查 (%s:%d)", cfg.Server.Host, cfg.Server.Port), OK: serviceOK, Message: serviceMsg})

	return NewSummary(items)
}

// CatalogIntegrity 课程目录的基础完整性检查
func CatalogIntegrity(courses []course.Course) (bool, string) {
	if len(courses) == 0 {
		return false, "未找到任何课程，请检查种子目录或嵌入资源"
	}
	problems := make([]string, 0)
	lessons := 0
	for _, c := range courses {
		if strings.TrimSpace(c.Title) == "" {
			problems = append(problems, fmt.Sprintf("课程 %s 缺少标题", c.ID))
		}
		for i, l := range c.Lessons {
			if strings.TrimSpace(l.Title) == "" {
				problems = append(problems, fmt.Sprintf("课程 %s 的第 %d 个课时缺少标题", c.ID, i+1))
			}
			if !l.Video.Durable() {
				problems = append(problems, fmt.Sprintf("课程 %s 的课时 %s 缺少视频地址", c.ID, l.ID))
			}
		}
		lessons += len(c.Lessons)
	}
	if len(problems) > 0 {
		return false, "课程加载成功，但存在数据完整性问题：\n" + strings.Join(problems, "\n")
	}
	return true, fmt.Sprintf("课程加载成功，共 %d 门 / %d 个课时，数据完整性检查通过", len(courses), lessons)
}

// StorageReachable 通过读取课程快照键确认存储可访问
func StorageReachable(ctx context.Context, kv storage.KV) (bool, string) {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, _, err := kv.Get(probeCtx, course.SnapshotKey); err != nil {
		return false, fmt.Sprintf("存储读取失败：%v", err)
	}
	return true, "存储连接正常"
}

// SnapshotCompatibility 检查已保存快照能否与当前种子合并
func SnapshotCompatibility(ctx context.Context, kv storage.KV, seed *course.Seed) (bool, string, string) {
	data, found, err := kv.Get(ctx, course.SnapshotKey)
	if err != nil {
		return false, fmt.Sprintf("快照读取失败：%v", err), ""
	}
	if !found {
		return true, "尚未保存快照，首次启动将使用种子数据", ""
	}
	saved, err := course.DecodeSnapshot(data)
	if err != nil {
		if errors.Is(err, course.ErrMalformedSnapshot) {
			return true, "快照格式无效，启动时将回退到种子数据并覆盖", err.Error()
		}
		return false, fmt.Sprintf("快照解析失败：%v", err), ""
	}

	known := make(map[string]bool, len(seed.Courses))
	for _, c := range seed.Courses {
		known[c.ID] = true
	}
	dropped := make([]string, 0)
	for _, sc := range saved {
		if !known[sc.ID] {
			dropped = append(dropped, sc.ID)
		}
	}
	if len(dropped) > 0 {
		return true, fmt.Sprintf("快照包含 %d 门课程，其中 %d 门已不在种子中，将被丢弃", len(saved), len(dropped)),
			strings.Join(dropped, "\n")
	}
	return true, fmt.Sprintf("快照包含 %d 门课程，可与种子合并", len(saved)), ""
}

// PortOccupation 检查端口占用
func PortOccupation(host string, port int) (bool, string, string) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, 800*time.Millisecond)
	if err != nil {
		return true, "端口未被占用，可用", ""
	}
	_ = conn.Close()

	if IsPortUsedByCurrentService(host, port) {
		return true, "端口被本服务使用（正常）", ""
	}

	procInfo, lerr := ListPortProcesses(port)
	if lerr != nil {
		return false, "端口已被占用（进程信息获取失败，可能未安装 lsof）", ""
	}
	if procInfo == "" {
		return false, "端口已被占用（但未能获取到进程信息）", ""
	}
	return false, "端口已被占用", procInfo
}

// IsPortUsedByCurrentService 通过 /health 识别是否为本服务
func IsPortUsedByCurrentService(host string, port int) bool {
	url := fmt.Sprintf("http://%s/health", net.JoinHostPort(host, strconv.Itoa(port)))
	client := &http.Client{Timeout: 800 * time.Millisecond}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var payload struct{ Status, Message string }
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}
	return strings.EqualFold(payload.Status, "ok") && payload.Message == healthMessage
}

// ListPortProcesses 使用 lsof 列出监听进程（最佳努力）
func ListPortProcesses(port int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, _ := exec.CommandContext(ctx, "lsof", "-i", fmt.Sprintf(":%d", port), "-sTCP:LISTEN", "-n", "-P").CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("查询端口占用超时")
	}
	return string(out), nil
}

// ServiceHealth 调用 /health 检查服务状态
func ServiceHealth(host string, port int) (bool, string) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, 800*time.Millisecond)
	if err != nil {
		return true, "服务未运行"
	}
	_ = conn.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/health", addr))
	if err != nil {
		return false, fmt.Sprintf("服务已监听，但健康端点访问失败：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("服务已监听，但健康端点返回非 200 状态码：%d", resp.StatusCode)
	}
	return true, "服务正在运行且健康（/health 返回 200）"
}

// HealthMessage /health 响应的 message 字段
func HealthMessage() string {
	return healthMessage
}
