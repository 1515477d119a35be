package orchestrator

import "strings"

const fenceMarker = "```"

// RepairContinuation prepares the first text of a continuation round. When
// the truncated text ends inside an open code block and the model resumes by
// opening a new fence, the dangling block is closed first so the rendered
// message stays balanced.
func RepairContinuation(buffered, next string) string {
	if !endsInsideFence(buffered) {
		return next
	}
	if !strings.HasPrefix(strings.TrimLeft(next, " \t\r\n"), fenceMarker) {
		return next
	}
	return "\n" + fenceMarker + "\n" + next
}

func endsInsideFence(text string) bool {
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			inBlock = !inBlock
		}
	}
	return inBlock
}
