package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"eduverse/internal/check"
	"eduverse/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewCommand 创建 check 子命令：
// - 课程种子加载与完整性检查
// - 存储可用性与快照兼容性检查
// - 端口占用检查
// - 服务健康检查（端口未监听不判失败）
func NewCommand(catalogFS fs.FS) *cobra.Command {
	// 不在命令构造阶段加载配置，避免在执行 help/-h 时触发配置加载
	var (
		host       string
		port       int
		catalogDir string
		useEmbed   bool
		driver     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "检查本地运行环境（课程种子、存储、端口占用、服务健康）",
		Long:  "全面检查本地运行环境：\n1) 课程种子加载与数据完整性\n2) 存储是否可用，已保存快照能否合并\n3) 指定端口是否被占用\n4) 服务运行与健康状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			// Flags > Env > 默认值
			if cmd.Flags().Changed("host") && host != "" {
				_ = os.Setenv("SERVER_HOST", host)
			}
			if cmd.Flags().Changed("port") && port != 0 {
				_ = os.Setenv("SERVER_PORT", strconv.Itoa(port))
			}
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

			summary := check.RunFromConfig(context.Background(), catalogFS, cfg)
			if jsonOutput {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), check.RenderSummaryCLI(summary))
			}

			if !summary.OK {
				return fmt.Errorf("环境检查存在失败项，请根据提示修复后重试")
			}
			return nil
		},
	}

	// Flags（仅在用户显式设置时覆盖配置）
	cmd.Flags().StringVar(&host, "host", "", "指定服务主机（默认从环境变量/配置读取）")
	cmd.Flags().IntVar(&port, "port", 0, "指定服务端口（默认从环境变量/配置读取）")
	cmd.Flags().StringVar(&catalogDir, "catalog-dir", "", "种子目录（未设置时从配置读取）")
	cmd.Flags().BoolVar(&useEmbed, "catalog-use-embed", false, "是否使用嵌入种子进行检查（未设置时从配置读取）")
	cmd.Flags().StringVar(&driver, "storage-driver", "", "存储驱动 file|sqlite|postgres|memory（未设置时从配置读取）")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "以 JSON 格式输出检查结果")

	return cmd
}

// writeJSON 输出缩进的 JSON 检查结果
func writeJSON(cmd *cobra.Command, summary check.Summary) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
