package mcp

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/repograph/repograph-go/internal/errors"
)

// maxValueLength caps how much of any single value lands in the tool
// output.
const maxValueLength = 100

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}

func errResult(msg string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: msg}},
		IsError: true,
	}
}

// toolError renders an error for the client. Internal failures are
// reduced to their correlation id; everything else is actionable as-is.
func toolError(err error) *sdk.CallToolResult {
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return errResult(appErr.UserMessage())
	}
	return errResult(err.Error())
}

// formatRows renders query rows as readable text, one numbered line
// per row with sorted keys and truncated values.
func formatRows(rows []map[string]any) string {
	if len(rows) == 0 {
		return "No results found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d result(s):\n", len(rows))
	for i, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, formatValue(row[k])))
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(parts, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatValue(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		s = val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		s = "[" + strings.Join(parts, ", ") + "]"
	default:
		s = fmt.Sprintf("%v", val)
	}
	if len(s) > maxValueLength {
		return s[:maxValueLength] + "..."
	}
	return s
}
