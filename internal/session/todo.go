package session

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TodoItem represents a todo item
type TodoItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Created   time.Time `json:"created"`
	ParentID  string    `json:"parent_id,omitempty"` // Empty string means top-level todo
}

// TodoList is the per-session task list. Items keep insertion order.
type TodoList struct {
	mu     sync.Mutex
	items  []*TodoItem
	nextID int
}

func NewTodoList() *TodoList {
	return &TodoList{nextID: 1}
}

// Add appends a todo, optionally under parentID.
func (l *TodoList) Add(text, parentID string) (TodoItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if parentID != "" && l.findLocked(parentID) == nil {
		return TodoItem{}, fmt.Errorf("parent todo %s not found", parentID)
	}
	item := &TodoItem{
		ID:       "t" + strconv.Itoa(l.nextID),
		Text:     text,
		Created:  time.Now(),
		ParentID: parentID,
	}
	l.nextID++
	l.items = append(l.items, item)
	return *item, nil
}

// SetCompleted checks or unchecks a todo.
func (l *TodoList) SetCompleted(id string, completed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	item := l.findLocked(id)
	if item == nil {
		return fmt.Errorf("todo %s not found", id)
	}
	item.Completed = completed
	return nil
}

// Delete removes a todo and its sub-todos.
func (l *TodoList) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findLocked(id) == nil {
		return fmt.Errorf("todo %s not found", id)
	}
	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, item := range l.items {
			if !doomed[item.ID] && doomed[item.ParentID] {
				doomed[item.ID] = true
				changed = true
			}
		}
	}
	kept := l.items[:0]
	for _, item := range l.items {
		if !doomed[item.ID] {
			kept = append(kept, item)
		}
	}
	l.items = kept
	return nil
}

// Items returns a copy of all todos.
func (l *TodoList) Items() []TodoItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TodoItem, len(l.items))
	for i, item := range l.items {
		out[i] = *item
	}
	return out
}

func (l *TodoList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.nextID = 1
}

// Format renders the list as a checklist with sub-todos indented.
func (l *TodoList) Format() string {
	items := l.Items()
	if len(items) == 0 {
		return "No todos."
	}
	var b strings.Builder
	var write func(parent string, depth int)
	write = func(parent string, depth int) {
		for _, item := range items {
			if item.ParentID != parent {
				continue
			}
			mark := " "
			if item.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "%s- [%s] %s: %s\n", strings.Repeat("  ", depth), mark, item.ID, item.Text)
			write(item.ID, depth+1)
		}
	}
	write("", 0)
	return strings.TrimRight(b.String(), "\n")
}

func (l *TodoList) findLocked(id string) *TodoItem {
	for _, item := range l.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}
