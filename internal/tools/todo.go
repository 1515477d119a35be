package tools

import (
	"context"
	"fmt"
)

// TodoTool manages the session task list.
type TodoTool struct{}

func NewTodoTool() *TodoTool {
	return &TodoTool{}
}

func (t *TodoTool) Name() string {
	return ToolNameTodo
}

func (t *TodoTool) Description() string {
	return "Manage todo items with hierarchical sub-todos. Supports listing, adding, checking/unchecking and deleting todos. Use it to plan multi-step work."
}

func (t *TodoTool) Params() []Param {
	return []Param{
		{Name: "action", Type: TypeString, Description: "Action to perform", Required: true, Enum: []string{"list", "add", "check", "uncheck", "delete"}},
		{Name: "text", Type: TypeString, Description: "Todo text (for 'add')"},
		{Name: "id", Type: TypeString, Description: "Todo ID (for 'check', 'uncheck', 'delete')"},
		{Name: "parent_id", Type: TypeString, Description: "Parent todo ID (for 'add', optional; creates a sub-todo)"},
	}
}

func (t *TodoTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	if tc.Todos == nil {
		return nil, fmt.Errorf("todo list is not available")
	}
	todos := tc.Todos

	switch action := args.String("action", ""); action {
	case "list":
		return &Output{Text: todos.Format()}, nil

	case "add":
		text := args.String("text", "")
		if text == "" {
			return nil, fmt.Errorf("text is required for add")
		}
		item, err := todos.Add(text, args.String("parent_id", ""))
		if err != nil {
			return nil, err
		}
		return &Output{Text: fmt.Sprintf("Added %s\n\n%s", item.ID, todos.Format())}, nil

	case "check", "uncheck":
		id := args.String("id", "")
		if id == "" {
			return nil, fmt.Errorf("id is required for %s", action)
		}
		if err := todos.SetCompleted(id, action == "check"); err != nil {
			return nil, err
		}
		return &Output{Text: todos.Format()}, nil

	case "delete":
		id := args.String("id", "")
		if id == "" {
			return nil, fmt.Errorf("id is required for delete")
		}
		if err := todos.Delete(id); err != nil {
			return nil, err
		}
		return &Output{Text: fmt.Sprintf("Deleted %s\n\n%s", id, todos.Format())}, nil

	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}
