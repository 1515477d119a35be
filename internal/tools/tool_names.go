package tools

const (
	ToolNameReadFile      = "read_file"
	ToolNameWriteFile     = "write_file"
	ToolNameEditFile      = "edit_file"
	ToolNameListDirectory = "list_directory"
	ToolNameSearchFiles   = "search_files"
	ToolNameSearchText    = "search_text"
	ToolNameCodeOutline   = "code_outline"
	ToolNameTodo          = "todo"
)
