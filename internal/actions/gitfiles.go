package actions

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// GitCLI 直接调用 git 可执行文件。
// GitCLI shells out to the git executable.
type GitCLI struct {
	run Runner
}

func NewGitCLI(run Runner) *GitCLI {
	return &GitCLI{run: run}
}

func (g *GitCLI) Status(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, "git", "-C", dir, "status", "--short", "--branch")
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return "Working tree clean.", nil
	}
	return out, nil
}

func (g *GitCLI) Commit(ctx context.Context, dir, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("git commit: empty message")
	}
	if _, err := g.run(ctx, "git", "-C", dir, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}
	out, err := g.run(ctx, "git", "-C", dir, "commit", "-m", message)
	if err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// maxFileBytes 读取文件的大小上限。
// maxFileBytes caps how much of a file is read back.
const maxFileBytes = 256 * 1024

// Workspace 限定在根目录内的文件操作。
// Workspace restricts file operations to paths under its root.
type Workspace struct {
	root string
}

func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

// resolve 拒绝逃出根目录的路径。
// resolve rejects paths escaping the root.
func (w *Workspace) resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(w.root, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(w.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return full, nil
}

func (w *Workspace) Read(_ context.Context, path string) (string, error) {
	full, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxFileBytes {
		data = data[:maxFileBytes]
	}
	return string(data), nil
}

func (w *Workspace) Write(_ context.Context, path, content string) (string, error) {
	full, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return fmt.Sprintf("💾 Wrote %s (%d bytes)", path, len(content)), nil
}

// importLineRe 匹配 Go 源码中的单个导入路径。
// importLineRe matches one import path in Go source.
var importLineRe = regexp.MustCompile(`^\s*(?:import\s+)?(?:\w+\s+|\.\s+|_\s+)?"([^"]+)"`)

// Graph 汇总工作区的目录结构与各目录 Go 文件的导入，作为代码库关系概览。
// Graph summarizes the workspace's directory layout and the imports of each
// directory's Go files, as a codebase relationship overview.
func (w *Workspace) Graph(_ context.Context) (string, error) {
	files := map[string][]string{}   // dir -> go files
	imports := map[string][]string{} // dir -> sorted unique imports

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".go") {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		dir := filepath.Dir(rel)
		files[dir] = append(files[dir], d.Name())

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		inBlock := false
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case strings.HasPrefix(line, "import ("):
				inBlock = true
				continue
			case inBlock && line == ")":
				inBlock = false
				continue
			case strings.HasPrefix(line, "func "):
				return nil // imports only appear before the first function
			}
			if !inBlock && !strings.HasPrefix(line, "import ") {
				continue
			}
			if m := importLineRe.FindStringSubmatch(line); m != nil {
				imports[dir] = append(imports[dir], m[1])
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("graph: %w", err)
	}
	if len(files) == 0 {
		return "📦 No Go files found in the workspace.", nil
	}

	dirs := make([]string, 0, len(files))
	for dir := range files {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var b strings.Builder
	b.WriteString("📦 Codebase graph:\n")
	for _, dir := range dirs {
		fmt.Fprintf(&b, "%s (%d files)\n", dir, len(files[dir]))
		seen := map[string]bool{}
		var uniq []string
		for _, imp := range imports[dir] {
			if !seen[imp] {
				seen[imp] = true
				uniq = append(uniq, imp)
			}
		}
		sort.Strings(uniq)
		if len(uniq) > 0 {
			fmt.Fprintf(&b, "  imports: %s\n", strings.Join(uniq, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Grep 在工作区内逐行正则匹配，跳过隐藏目录，最多返回 100 条。
// Grep regex-matches lines under the workspace, skipping hidden directories,
// capped at 100 hits.
func (w *Workspace) Grep(_ context.Context, dir, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("bad pattern: %w", err)
	}
	root, err := w.resolve(dir)
	if err != nil {
		return "", err
	}

	var hits []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			if re.MatchString(scanner.Text()) {
				rel, _ := filepath.Rel(w.root, path)
				hits = append(hits, fmt.Sprintf("%s:%d: %s", rel, line, strings.TrimSpace(scanner.Text())))
				if len(hits) >= 100 {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("grep: %w", err)
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No matches for %q", pattern), nil
	}
	return strings.Join(hits, "\n"), nil
}
