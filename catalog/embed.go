// Package catalog 嵌入默认课程目录种子，发布模式下无需外部文件
package catalog

import "embed"

// FS 包含 courses.yaml、certificates.yaml 与 internships.yaml
//
//go:embed *.yaml
var FS embed.FS
