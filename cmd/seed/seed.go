package seed

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"eduverse/internal/config"
	"eduverse/internal/course"
	"eduverse/internal/logger"
	"eduverse/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// catalogDoc 与 courses.yaml 相同的顶层结构，便于直接回写为种子文件
type catalogDoc struct {
	Courses []course.Course `yaml:"courses"`
}

// NewCommand 创建 seed 子命令：输出种子与已保存快照合并后的课程目录（YAML）
func NewCommand(catalogFS fs.FS) *cobra.Command {
	var (
		catalogDir string
		useEmbed   bool
		driver     string
		seedOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "输出合并后的课程目录（YAML）",
		Long:  "加载课程种子，与存储中保存的进度与锁状态合并后以 YAML 输出。\n使用 --seed-only 跳过存储，仅输出种子本身。",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			if cmd.Flags().Changed("catalog-dir") && catalogDir != "" {
				_ = os.Setenv("CATALOG_DIR", catalogDir)
			}
			if cmd.Flags().Changed("catalog-use-embed") {
				_ = os.Setenv("CATALOG_USE_EMBED", strconv.FormatBool(useEmbed))
			}
			if cmd.Flags().Changed("storage-driver") && driver != "" {
				_ = os.Setenv("STORAGE_DRIVER", driver)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("配置加载失败: %w", err)
			}
			// 日志写到 stderr，stdout 只保留 YAML
			log := logger.New(logger.ParseLogLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			courses, err := Reconciled(ctx, cfg, catalogFS, log, seedOnly)
			if err != nil {
				return err
			}
			return Write(cmd.OutOrStdout(), courses)
		},
	}

	cmd.Flags().StringVar(&catalogDir, "catalog-dir", "", "种子目录（未设置时从配置读取）")
	cmd.Flags().BoolVar(&useEmbed, "catalog-use-embed", false, "使用嵌入式种子目录")
	cmd.Flags().StringVar(&driver, "storage-driver", "", "存储驱动 file|sqlite|postgres|memory（未设置时从配置读取）")
	cmd.Flags().BoolVar(&seedOnly, "seed-only", false, "不读取存储，仅输出种子")

	return cmd
}

// Reconciled 加载种子并与存储中的快照合并
// 参数:
//   - seedOnly: 为 true 时不打开存储
//
// 返回: 按种子顺序排列的课程列表
func Reconciled(ctx context.Context, cfg *config.Config, catalogFS fs.FS, log *logger.Logger, seedOnly bool) ([]course.Course, error) {
	s, err := course.OpenSeed(cfg.Catalog.UseEmbed, cfg.Catalog.Dir, catalogFS)
	if err != nil {
		return nil, fmt.Errorf("加载课程种子失败: %w", err)
	}
	if seedOnly {
		return course.CloneCourses(s.Courses), nil
	}

	kv, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("打开存储失败: %w", err)
	}
	defer kv.Close()

	data, found, err := kv.Get(ctx, course.SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("读取快照失败: %w", err)
	}
	if !found {
		return course.CloneCourses(s.Courses), nil
	}
	saved, err := course.DecodeSnapshot(data)
	if err != nil {
		log.Warn("已保存的快照无法解析，输出种子数据: %v", err)
		return course.CloneCourses(s.Courses), nil
	}
	return course.Reconcile(s.Courses, saved), nil
}

// Write 以 courses.yaml 的格式输出课程列表
func Write(w io.Writer, courses []course.Course) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(catalogDoc{Courses: courses}); err != nil {
		return fmt.Errorf("输出 YAML 失败: %w", err)
	}
	return enc.Close()
}
