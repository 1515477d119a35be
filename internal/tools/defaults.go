package tools

import "github.com/dimslaev/ai-chat/internal/logger"

// NewDefaultRegistry returns a registry with the built-in workspace tools.
func NewDefaultRegistry(log *logger.Logger) *Registry {
	r := NewRegistry(log)
	r.Register(NewReadFileTool())
	r.Register(NewListDirectoryTool())
	r.Register(NewSearchFilesTool())
	r.Register(NewSearchTextTool())
	r.Register(NewCodeOutlineTool())
	r.Register(NewWriteFileTool())
	r.Register(NewEditFileTool())
	r.Register(NewTodoTool())
	return r
}
