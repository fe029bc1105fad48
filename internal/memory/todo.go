package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TodoItem 待办事项。
// TodoItem is one todo entry.
type TodoItem struct {
	Text      string     `json:"text"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"created_at"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}

// TodoList 基于 JSON 文件的简单待办清单，每次修改同步写盘。
// TodoList is a simple JSON-file todo list, persisted on every mutation.
type TodoList struct {
	mu    sync.Mutex
	path  string
	items []TodoItem
}

func NewTodoList(dir string) (*TodoList, error) {
	l := &TodoList{path: filepath.Join(dir, "todos.json")}
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}
	if err := json.Unmarshal(data, &l.items); err != nil {
		return nil, fmt.Errorf("parse todos: %w", err)
	}
	return l, nil
}

// save 调用方必须持有 l.mu。
// save requires l.mu held.
func (l *TodoList) save() error {
	data, err := json.MarshalIndent(l.items, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o644)
}

// Add 追加一条待办。
// Add appends a todo.
func (l *TodoList) Add(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, TodoItem{Text: text, CreatedAt: time.Now()})
	return l.save()
}

// Complete 按 1 起始的序号完成待办。
// Complete marks the 1-based entry done.
func (l *TodoList) Complete(index int) (TodoItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 1 || index > len(l.items) {
		return TodoItem{}, fmt.Errorf("todo %d not found (have %d)", index, len(l.items))
	}
	it := &l.items[index-1]
	if !it.Done {
		it.Done = true
		now := time.Now()
		it.DoneAt = &now
	}
	if err := l.save(); err != nil {
		return TodoItem{}, err
	}
	return *it, nil
}

// Render 渲染编号清单；为空时返回提示文案。
// Render prints the numbered list, or a hint when empty.
func (l *TodoList) Render() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return "📝 Todo list is empty."
	}
	var b strings.Builder
	b.WriteString("📝 Todos:\n")
	for i, it := range l.items {
		mark := "⬜"
		if it.Done {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, mark, it.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
