package check

import (
	"fmt"
	"strings"
)

// RenderSummaryCLI 将环境检查结果渲染为适合 CLI 输出的文本
func RenderSummaryCLI(summary Summary) string {
	var b strings.Builder
	b.WriteString("================ 环境检查开始 ================\n")

	for _, it := range summary.Items {
		mark := "✅"
		if !it.OK {
			mark = "❌"
		}
		fmt.Fprintf(&b, "[%s] %s：%s\n", mark, it.Name, it.Message)
		if strings.TrimSpace(it.Details) != "" {
			b.WriteString(indent(strings.TrimRight(it.Details, "\n"), "    "))
			b.WriteString("\n")
		}
	}

	b.WriteString("================ 环境检查结束 ================")
	return b.String()
}

// indent 为多行文本的每一行添加前缀
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
