package course

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// 种子目录中的文件名
const (
	CoursesFile      = "courses.yaml"
	CertificatesFile = "certificates.yaml"
	InternshipsFile  = "internships.yaml"
)

// Seed 规范种子数据：课程目录、证书与实习岗位
// 课程的结构字段、课时身份与测验内容以种子为准
type Seed struct {
	Courses      []Course
	Certificates []Certificate
	Internships  []Internship
}

type coursesDoc struct {
	Courses []Course `yaml:"courses"`
}

type certificatesDoc struct {
	Certificates []Certificate `yaml:"certificates"`
}

type internshipsDoc struct {
	Internships []Internship `yaml:"internships"`
}

// LoadSeedFromDir 从磁盘目录加载种子数据（开发模式）
func LoadSeedFromDir(dir string) (*Seed, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog directory does not exist: %s", dir)
	}
	return LoadSeedFromFS(os.DirFS(dir), ".")
}

// LoadSeedFromFS 从文件系统加载种子数据（通常为 embed.FS）
// 参数:
//
//	fsys: 提供种子文件的文件系统
//	basePath: 种子文件所在目录，例如 "." 或 "catalog"
//
// 返回: 校验通过的种子数据；courses.yaml 缺失或内容非法时返回错误，
// 证书与实习文件缺失时视为空列表
func LoadSeedFromFS(fsys fs.FS, basePath string) (*Seed, error) {
	if fsys == nil {
		return nil, fmt.Errorf("catalog FS is nil")
	}

	var courses coursesDoc
	if err := readYAML(fsys, path.Join(basePath, CoursesFile), &courses, true); err != nil {
		return nil, err
	}
	var certs certificatesDoc
	if err := readYAML(fsys, path.Join(basePath, CertificatesFile), &certs, false); err != nil {
		return nil, err
	}
	var internships internshipsDoc
	if err := readYAML(fsys, path.Join(basePath, InternshipsFile), &internships, false); err != nil {
		return nil, err
	}

	seed := &Seed{
		Courses:      courses.Courses,
		Certificates: certs.Certificates,
		Internships:  internships.Internships,
	}
	for i := range seed.Courses {
		// 如果没有设置标题，使用ID作为默认标题
		if seed.Courses[i].Title == "" {
			seed.Courses[i].Title = seed.Courses[i].ID
		}
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return seed, nil
}

func readYAML(fsys fs.FS, name string, out interface{}, required bool) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		if required {
			return fmt.Errorf("seed file is empty: %s", name)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Validate 校验种子数据的结构完整性
func (s *Seed) Validate() error {
	if len(s.Courses) == 0 {
		return fmt.Errorf("seed catalog has no courses")
	}
	courseIDs := make(map[string]bool, len(s.Courses))
	for _, c := range s.Courses {
		if c.ID == "" {
			return fmt.Errorf("seed course %q has no id", c.Title)
		}
		if courseIDs[c.ID] {
			return fmt.Errorf("duplicate seed course id: %s", c.ID)
		}
		courseIDs[c.ID] = true

		if !c.Category.Valid() {
			return fmt.Errorf("course %s: invalid category %q", c.ID, c.Category)
		}
		if c.Progress < 0 || c.Progress > 100 {
			return fmt.Errorf("course %s: progress %d out of range", c.ID, c.Progress)
		}

		lessonIDs := make(map[string]bool, len(c.Lessons))
		for _, l := range c.Lessons {
			if l.ID == "" {
				return fmt.Errorf("course %s: lesson %q has no id", c.ID, l.Title)
			}
			if lessonIDs[l.ID] {
				return fmt.Errorf("course %s: duplicate lesson id %s", c.ID, l.ID)
			}
			lessonIDs[l.ID] = true
			if l.Video.IsLocal() {
				return fmt.Errorf("course %s lesson %s: seed video must be remote", c.ID, l.ID)
			}
			for _, q := range l.Quiz {
				if q.ID == "" {
					return fmt.Errorf("course %s lesson %s: quiz question without id", c.ID, l.ID)
				}
				if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
					return fmt.Errorf("course %s lesson %s question %s: correctAnswer %d out of range",
						c.ID, l.ID, q.ID, q.CorrectAnswer)
				}
			}
		}
	}
	return nil
}

// Summary 返回种子数据的统计信息，供环境检查使用
func (s *Seed) Summary() (courses, lessons, quizzes int) {
	for _, c := range s.Courses {
		courses++
		lessons += len(c.Lessons)
		for _, l := range c.Lessons {
			if len(l.Quiz) > 0 {
				quizzes++
			}
		}
	}
	return courses, lessons, quizzes
}

// OpenSeed 按运行模式加载种子数据
// 参数:
//
//	useEmbed: true 时从嵌入式FS读取（发布模式），否则从磁盘目录读取（开发模式）
//	dir: 磁盘模式下的种子目录
//	embedded: 嵌入式种子文件系统，文件位于根目录
func OpenSeed(useEmbed bool, dir string, embedded fs.FS) (*Seed, error) {
	if useEmbed {
		return LoadSeedFromFS(embedded, ".")
	}
	return LoadSeedFromDir(dir)
}
